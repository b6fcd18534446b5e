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


package storage

import (
	"context"

	"github.com/poiesic/gist/core"
)

// Repository is the base interface for all storage operations.
// Each operation runs in its own transaction.
type Repository interface {
	// Close releases resources held by the repository.
	// Operations on a closed backend return ErrStorageClosed.
	Close() error
}

// DocumentSource is the read side consumed by the pipeline.
type DocumentSource interface {
	// ListDocuments returns a workspace's documents in insertion order.
	// Returns ErrNotFound if the workspace doesn't exist.
	ListDocuments(ctx context.Context, workspaceID string) ([]*core.Document, error)
}

// WorkspaceRepository provides operations for managing workspaces and their documents.
type WorkspaceRepository interface {
	Repository
	DocumentSource

	// CreateWorkspace stores a new workspace.
	// Generates a ULID when ID is empty and sets InsertedAt/UpdatedAt.
	// Returns ErrDuplicateKey if a workspace with the same ID exists.
	CreateWorkspace(ctx context.Context, ws *core.Workspace) (*core.Workspace, error)

	// GetWorkspace retrieves a workspace by ID.
	// Returns ErrNotFound if the workspace doesn't exist.
	GetWorkspace(ctx context.Context, id string) (*core.Workspace, error)

	// ListWorkspaces returns the workspaces of one owner, oldest first.
	ListWorkspaces(ctx context.Context, owner string) ([]*core.Workspace, error)

	// DeleteWorkspace removes a workspace and every document in it.
	// Returns ErrNotFound if the workspace doesn't exist.
	DeleteWorkspace(ctx context.Context, id string) error

	// AddDocuments stores documents in their workspaces.
	// IDs come from a sequence; ContentHash and InsertedAt are filled in.
	// Returns ErrNotFound if a workspace doesn't exist and ErrDuplicateKey
	// if the workspace already holds identical content.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// DeleteDocuments removes documents by their IDs.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error
}
