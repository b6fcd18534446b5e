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


package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/poiesic/gist/core"
)

const (
	workspacePrefix      = "wsrec"
	workspaceOwnerPrefix = "wsown"
	documentPrefix       = "docrec"
	workspaceDocPrefix   = "wsdoc"
	documentHashPrefix   = "dochash"
	documentIDSeq        = "docrecseq"
)

// makeWorkspaceKey generates a key for a workspace by ID.
func makeWorkspaceKey(id ulid.ULID) []byte {
	return []byte(fmt.Sprintf("%s:%s", workspacePrefix, id))
}

// makeWorkspaceOwnerKey generates a composite key for the owner index.
// Format: prefix:ownerHash:workspaceID
// ULIDs sort by creation time, so an owner's workspaces iterate oldest first.
func makeWorkspaceOwnerKey(owner string, id ulid.ULID) []byte {
	buf := makePartialWorkspaceOwnerKey(owner)
	return append(buf, id[:]...)
}

// makePartialWorkspaceOwnerKey generates the prefix shared by one owner's workspaces.
func makePartialWorkspaceOwnerKey(owner string) []byte {
	prefix := workspaceOwnerPrefix + ":"
	buf := make([]byte, len(prefix)+8, len(prefix)+8+len(ulid.ULID{}))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(owner)))
	return buf
}

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeWorkspaceDocKey generates a composite key for the workspace document index.
// Format: prefix:workspaceID:documentID
// Document IDs come from a sequence, so iteration follows insertion order.
func makeWorkspaceDocKey(wsID ulid.ULID, docID core.ID) []byte {
	buf := makePartialWorkspaceDocKey(wsID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(docID))
	return buf
}

// makePartialWorkspaceDocKey generates the prefix shared by one workspace's documents.
func makePartialWorkspaceDocKey(wsID ulid.ULID) []byte {
	prefix := workspaceDocPrefix + ":"
	buf := make([]byte, 0, len(prefix)+len(wsID)+8)
	buf = append(buf, prefix...)
	return append(buf, wsID[:]...)
}

// makeDocumentHashKey generates a composite key for duplicate detection.
// Format: prefix:workspaceID:contentHash
func makeDocumentHashKey(wsID ulid.ULID, hash core.ID) []byte {
	prefix := documentHashPrefix + ":"
	buf := make([]byte, 0, len(prefix)+len(wsID)+8)
	buf = append(buf, prefix...)
	buf = append(buf, wsID[:]...)
	return binary.BigEndian.AppendUint64(buf, uint64(hash))
}
