package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/apresai/duet/internal/article"
	"github.com/apresai/duet/internal/dialogue"
)

// backends returns one fresh store per locally runnable backend.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := OpenSQLite(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	file, err := OpenFile(filepath.Join(dir, "session.json"))
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	t.Cleanup(func() { _ = file.Close() })

	return map[string]Store{"sqlite": sqlite, "file": file}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := New("golang", "Ana")
			sess.History = append(sess.History, dialogue.Turn{Speaker: "Ana", Text: "hi"})
			sess.ArticleContentHistory = append(sess.ArticleContentHistory, article.Content{
				Title:       "Slices",
				Description: []article.Segment{{Type: "paragraph", Content: "len and cap"}},
				Code:        "s := []int{}",
				Language:    "go",
			})
			sess.Step = 1

			if err := store.Save(ctx, sess); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if sess.Version != 1 {
				t.Errorf("Version after create = %d, want 1", sess.Version)
			}
			if sess.CreatedAt.IsZero() || sess.UpdatedAt.IsZero() {
				t.Error("timestamps not set")
			}

			got, err := store.Get(ctx, sess.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Topic != "golang" || got.UserName != "Ana" || got.Step != 1 || got.Version != 1 {
				t.Errorf("Get() = %+v", got)
			}
			if len(got.History) != 1 || got.History[0].Text != "hi" {
				t.Errorf("History = %+v", got.History)
			}
			cur := got.CurrentArticle()
			if cur == nil || cur.Title != "Slices" || cur.Description[0].Content != "len and cap" || cur.Language != "go" {
				t.Errorf("CurrentArticle() = %+v", cur)
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() error = %v, want ErrNotFound", err)
			}
			if err := store.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Delete() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_OptimisticConcurrency(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := New("general", "User")
			if err := store.Save(ctx, sess); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			a, err := store.Get(ctx, sess.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			b, err := store.Get(ctx, sess.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}

			a.Step = 1
			if err := store.Save(ctx, a); err != nil {
				t.Fatalf("first Save() error = %v", err)
			}
			b.Step = 5
			if err := store.Save(ctx, b); !errors.Is(err, ErrConflict) {
				t.Fatalf("stale Save() error = %v, want ErrConflict", err)
			}

			got, err := store.Get(ctx, sess.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Step != 1 || got.Version != 2 {
				t.Errorf("after conflict: Step = %d Version = %d, want 1 and 2", got.Step, got.Version)
			}
		})
	}
}

func TestStore_CreateTwice(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := New("general", "User")
			if err := store.Save(ctx, first); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			dup := New("other", "User")
			dup.ID = first.ID
			if err := store.Save(ctx, dup); !errors.Is(err, ErrConflict) {
				t.Errorf("duplicate create error = %v, want ErrConflict", err)
			}
		})
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ids := map[string]bool{}
			for i := 0; i < 3; i++ {
				sess := New("general", "User")
				sess.History = []dialogue.Turn{{Speaker: "Mike", Text: "a"}, {Speaker: "Miley", Text: "b"}}
				if err := store.Save(ctx, sess); err != nil {
					t.Fatalf("Save() error = %v", err)
				}
				ids[sess.ID] = true
			}

			list, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(list) != 3 {
				t.Fatalf("List() returned %d sessions, want 3", len(list))
			}
			for _, s := range list {
				if !ids[s.ID] {
					t.Errorf("List() returned unknown id %q", s.ID)
				}
				if s.Turns != 2 {
					t.Errorf("Turns = %d, want 2", s.Turns)
				}
			}

			if err := store.Delete(ctx, list[0].ID); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(ctx, list[0].ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_ConcurrentCreatesAreDistinct(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const n = 8
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- store.Save(ctx, New("general", "User"))
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Fatalf("Save() error = %v", err)
				}
			}

			list, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(list) != n {
				t.Errorf("List() returned %d sessions, want %d", len(list), n)
			}
		})
	}
}

func TestStore_ListEmptyIsNotNil(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			list, err := store.List(context.Background())
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if list == nil || len(list) != 0 {
				t.Errorf("List() = %#v, want an empty non-nil slice", list)
			}
		})
	}
}

func TestFileStore_SharedDocumentKeepsEveryWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	a, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer a.Close()
	b, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	const perHandle = 40
	var wg sync.WaitGroup
	errs := make(chan error, 2*perHandle)
	for _, store := range []*FileStore{a, b} {
		for i := 0; i < perHandle; i++ {
			wg.Add(1)
			go func(store *FileStore) {
				defer wg.Done()
				errs <- store.Save(ctx, New("general", "User"))
			}(store)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	for name, store := range map[string]*FileStore{"a": a, "b": b} {
		list, err := store.List(ctx)
		if err != nil {
			t.Fatalf("%s: List() error = %v", name, err)
		}
		if len(list) != 2*perHandle {
			t.Errorf("%s: List() returned %d sessions, want %d", name, len(list), 2*perHandle)
		}
	}
}

func TestFileStore_CreatesEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	if _, err := OpenFile(path); err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var doc document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		t.Fatalf("initial document is not JSON: %v", err)
	}
	if doc.Sessions == nil || len(doc.Sessions) != 0 {
		t.Errorf("initial document = %q, want an empty sessions object", data)
	}
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = store.Get(context.Background(), "anything")
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Get() error = %v, want *StorageError", err)
	}
	if storageErr.Op != "get" {
		t.Errorf("Op = %q, want get", storageErr.Op)
	}

	if err := store.Save(context.Background(), New("general", "User")); !errors.As(err, &storageErr) {
		t.Errorf("Save() error = %v, want *StorageError", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "{not json" {
		t.Error("corrupt document was overwritten")
	}
}

func TestNew(t *testing.T) {
	a, b := New("general", "User"), New("general", "User")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("New() ids %q and %q should be distinct and non-empty", a.ID, b.ID)
	}
	if a.Step != 0 || a.Version != 0 || a.CurrentArticle() != nil {
		t.Errorf("New() = %+v", a)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), Options{Backend: "redis"}); err == nil {
		t.Error("Open(redis) should fail")
	}
	if _, err := Open(context.Background(), Options{Backend: "dynamodb"}); err == nil {
		t.Error("Open(dynamodb) without a client should fail")
	}
}
