// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package search retrieves web results that feed the deep search pipeline.
//
// A Backend returns title/url/snippet triples for a query. The Searcher
// wraps a Backend with the behavior every caller wants: blank queries are
// rejected, duplicate URLs are dropped, the result count is capped and
// transport failures come back as classified network errors.
//
// Results are kept in the order the backend returned them; no re-ranking
// is applied.
//
// Subpackage web provides the production Backend.
package search
