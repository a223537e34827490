package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofrs/flock"
)

// lockRetry is how often a blocked operation retries the document lock.
const lockRetry = 10 * time.Millisecond

// document is the on-disk layout of the file store.
type document struct {
	Sessions map[string]*Session `json:"sessions"`
}

// FileStore keeps every session in one JSON document. Each operation
// re-reads the file, so edits made outside the process are picked up and a
// corrupt file surfaces as a StorageError rather than being overwritten.
//
// Writers hold an exclusive advisory lock on {path}.lock from read to
// rename, readers a shared one, so processes sharing the document never
// write back a stale copy.
type FileStore struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// OpenFile creates an empty document at path if none exists.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	fs := &FileStore{path: path, lock: flock.New(path + ".lock")}
	if err := fs.withLock(context.Background(), "open", true, fs.create); err != nil {
		return nil, err
	}
	return fs, nil
}

// create writes an empty document unless one exists. Called under the lock.
func (f *FileStore) create() error {
	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return f.write(&document{Sessions: map[string]*Session{}})
	} else if err != nil {
		return storageErr("open", err)
	}
	return nil
}

// withLock runs fn holding the in-process mutex and the file lock, exclusive
// for writers and shared for readers.
func (f *FileStore) withLock(ctx context.Context, op string, exclusive bool, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = f.lock.TryLockContext(ctx, lockRetry)
	} else {
		locked, err = f.lock.TryRLockContext(ctx, lockRetry)
	}
	if err != nil {
		return storageErr(op, fmt.Errorf("lock %s: %w", f.lock.Path(), err))
	}
	if !locked {
		return storageErr(op, fmt.Errorf("lock %s: not acquired", f.lock.Path()))
	}
	defer f.lock.Unlock()

	return fn()
}

func (f *FileStore) read() (*document, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if doc.Sessions == nil {
		doc.Sessions = map[string]*Session{}
	}
	return &doc, nil
}

// write replaces the document atomically: temp file in the same directory,
// then rename.
func (f *FileStore) write(doc *document) error {
	data, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return storageErr("write", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return storageErr("write", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return storageErr("write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return storageErr("write", err)
	}
	if err := tmp.Close(); err != nil {
		return storageErr("write", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return storageErr("write", err)
	}
	return nil
}

func (f *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	var sess *Session
	err := f.withLock(ctx, "get", false, func() error {
		doc, err := f.read()
		if err != nil {
			return storageErr("get", err)
		}
		found, ok := doc.Sessions[id]
		if !ok || found == nil {
			return ErrNotFound
		}
		sess = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	sess.ID = id
	sess.normalize()
	return sess, nil
}

func (f *FileStore) Save(ctx context.Context, sess *Session) error {
	next := *sess
	err := f.withLock(ctx, "save", true, func() error {
		doc, err := f.read()
		if err != nil {
			return storageErr("save", err)
		}

		current, exists := doc.Sessions[sess.ID]
		switch {
		case sess.Version == 0 && exists:
			return ErrConflict
		case sess.Version != 0 && (!exists || current.Version != sess.Version):
			return ErrConflict
		}

		next.normalize()
		next.Version = sess.Version + 1
		next.stamp(time.Now().UTC())
		doc.Sessions[sess.ID] = &next
		return f.write(doc)
	})
	if err != nil {
		return err
	}
	*sess = next
	return nil
}

func (f *FileStore) List(ctx context.Context) ([]Summary, error) {
	var doc *document
	err := f.withLock(ctx, "list", false, func() error {
		var err error
		if doc, err = f.read(); err != nil {
			return storageErr("list", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(doc.Sessions))
	for id, sess := range doc.Sessions {
		if sess == nil {
			continue
		}
		sess.ID = id
		out = append(out, sess.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (f *FileStore) Delete(ctx context.Context, id string) error {
	return f.withLock(ctx, "delete", true, func() error {
		doc, err := f.read()
		if err != nil {
			return storageErr("delete", err)
		}
		if _, ok := doc.Sessions[id]; !ok {
			return ErrNotFound
		}
		delete(doc.Sessions, id)
		return f.write(doc)
	})
}

func (f *FileStore) Close() error { return f.lock.Close() }
