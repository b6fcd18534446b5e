package badger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
	"github.com/poiesic/gist/core"
	"github.com/poiesic/gist/storage"
)

// WorkspaceRepository implements storage.WorkspaceRepository using BadgerDB.
type WorkspaceRepository struct {
	backend *Backend
	idSeq   *badger.Sequence

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var _ storage.WorkspaceRepository = (*WorkspaceRepository)(nil)

// NewWorkspaceRepository creates a new WorkspaceRepository.
func NewWorkspaceRepository(backend *Backend) (storage.WorkspaceRepository, error) {
	return newWorkspaceRepository(backend)
}

func newWorkspaceRepository(backend *Backend) (*WorkspaceRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	idSeq, err := backend.GetSequence(documentIDSeq)
	if err != nil {
		return nil, err
	}

	return &WorkspaceRepository{
		backend: backend,
		idSeq:   idSeq,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close releases the ID sequence.
func (r *WorkspaceRepository) Close() error {
	return r.idSeq.Release()
}

func (r *WorkspaceRepository) newWorkspaceID(now time.Time) (ulid.ULID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.New(ulid.Timestamp(now), r.entropy)
}

// CreateWorkspace stores a new workspace.
func (r *WorkspaceRepository) CreateWorkspace(ctx context.Context, ws *core.Workspace) (*core.Workspace, error) {
	if err := core.ValidateWorkspace(ws); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var id ulid.ULID
	if ws.ID == "" {
		var err error
		id, err = r.newWorkspaceID(now)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		id, err = parseWorkspaceID(ws.ID)
		if err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeWorkspaceKey(id)
		existing, err := readWorkspace(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: workspace %s", storage.ErrDuplicateKey, id)
		}

		ws.ID = id.String()
		ws.Name = strings.TrimSpace(ws.Name)
		ws.InsertedAt = now
		ws.UpdatedAt = now

		value, err := storage.MarshalWorkspace(ws)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		// Update owner index
		if err := tx.Set(makeWorkspaceOwnerKey(ws.Owner, id), nil); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// GetWorkspace retrieves a workspace by ID.
func (r *WorkspaceRepository) GetWorkspace(ctx context.Context, id string) (*core.Workspace, error) {
	wsID, err := parseWorkspaceID(id)
	if err != nil {
		return nil, err
	}

	var result *core.Workspace
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readWorkspace(tx, makeWorkspaceKey(wsID))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListWorkspaces returns the workspaces of one owner, oldest first.
func (r *WorkspaceRepository) ListWorkspaces(ctx context.Context, owner string) ([]*core.Workspace, error) {
	results := []*core.Workspace{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialWorkspaceOwnerKey(owner)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := iter.Item().Key()
			var id ulid.ULID
			copy(id[:], key[len(prefix):])

			ws, err := readWorkspace(tx, makeWorkspaceKey(id))
			if err != nil {
				return err
			}
			// Hash collisions between owners are filtered here.
			if ws != nil && ws.Owner == owner {
				results = append(results, ws)
			}
		}
		return nil
	}, false)
	return results, err
}

// DeleteWorkspace removes a workspace and every document in it.
func (r *WorkspaceRepository) DeleteWorkspace(ctx context.Context, id string) error {
	wsID, err := parseWorkspaceID(id)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeWorkspaceKey(wsID)
		ws, err := readWorkspace(tx, key)
		if err != nil {
			return err
		}
		if ws == nil {
			return storage.ErrNotFound
		}

		docIDs, err := workspaceDocumentIDs(tx, wsID)
		if err != nil {
			return err
		}
		for _, docID := range docIDs {
			if err := deleteDocument(tx, docID); err != nil {
				return err
			}
		}

		if err := tx.Delete(makeWorkspaceOwnerKey(ws.Owner, wsID)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// AddDocuments stores documents in their workspaces.
func (r *WorkspaceRepository) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			wsID, err := parseWorkspaceID(doc.WorkspaceID)
			if err != nil {
				return err
			}
			ws, err := readWorkspace(tx, makeWorkspaceKey(wsID))
			if err != nil {
				return err
			}
			if ws == nil {
				return fmt.Errorf("%w: workspace %s", storage.ErrNotFound, doc.WorkspaceID)
			}

			// Reject identical content within one workspace
			doc.ContentHash = core.IDFromContent(doc.Content)
			hashKey := makeDocumentHashKey(wsID, doc.ContentHash)
			if _, err := tx.Get(hashKey); err == nil {
				return fmt.Errorf("%w: %q already exists in workspace", storage.ErrDuplicateKey, doc.Name)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			// Always generate new ID from sequence
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			doc.Id = core.ID(nextID)
			doc.InsertedAt = time.Now().UTC()

			value, err := storage.MarshalDocument(doc)
			if err != nil {
				return err
			}
			if err := tx.Set(makeDocumentKey(doc.Id), value); err != nil {
				return err
			}
			if err := tx.Set(makeWorkspaceDocKey(wsID, doc.Id), storage.MarshalID(doc.Id)); err != nil {
				return err
			}
			if err := tx.Set(hashKey, storage.MarshalID(doc.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDocument retrieves a single document by ID.
func (r *WorkspaceRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// DeleteDocuments removes documents by their IDs.
func (r *WorkspaceRepository) DeleteDocuments(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := deleteDocument(tx, id); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListDocuments returns a workspace's documents in insertion order.
func (r *WorkspaceRepository) ListDocuments(ctx context.Context, workspaceID string) ([]*core.Document, error) {
	wsID, err := parseWorkspaceID(workspaceID)
	if err != nil {
		return nil, err
	}

	results := []*core.Document{}
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		ws, err := readWorkspace(tx, makeWorkspaceKey(wsID))
		if err != nil {
			return err
		}
		if ws == nil {
			return storage.ErrNotFound
		}

		docIDs, err := workspaceDocumentIDs(tx, wsID)
		if err != nil {
			return err
		}
		for _, docID := range docIDs {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := readDocument(tx, makeDocumentKey(docID))
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// workspaceDocumentIDs reads the workspace document index in key order.
func workspaceDocumentIDs(tx *badger.Txn, wsID ulid.ULID) ([]core.ID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialWorkspaceDocKey(wsID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var docID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			docID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}
		ids = append(ids, docID)
	}
	return ids, nil
}

// deleteDocument removes a document and its index entries.
func deleteDocument(tx *badger.Txn, id core.ID) error {
	key := makeDocumentKey(id)
	doc, err := readDocument(tx, key)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("%w: document %d", storage.ErrNotFound, id)
	}

	wsID, err := parseWorkspaceID(doc.WorkspaceID)
	if err != nil {
		return err
	}
	if err := tx.Delete(makeWorkspaceDocKey(wsID, id)); err != nil {
		return err
	}
	if err := tx.Delete(makeDocumentHashKey(wsID, doc.ContentHash)); err != nil {
		return err
	}
	return tx.Delete(key)
}

func readWorkspace(tx *badger.Txn, key []byte) (*core.Workspace, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ws *core.Workspace
	err = item.Value(func(val []byte) error {
		var err error
		ws, err = storage.UnmarshalWorkspace(val)
		return err
	})
	return ws, err
}

func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}

func parseWorkspaceID(id string) (ulid.ULID, error) {
	parsed, err := ulid.ParseStrict(strings.TrimSpace(id))
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("%w: workspace %q", storage.ErrNotFound, id)
	}
	return parsed, nil
}
