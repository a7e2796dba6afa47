package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"aimdot-bot/internal/database"

	"github.com/rs/zerolog"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	logger := zerolog.Nop()

	fs, err := NewFileStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	sqlite := NewSQLiteStore(db, logger)
	t.Cleanup(func() { sqlite.Close() })

	out := map[string]Store{
		"file":   fs,
		"sqlite": sqlite,
	}

	if url := os.Getenv("REDIS_URL"); url != "" {
		rs, err := NewRedisStore(context.Background(), url, logger)
		if err != nil {
			t.Fatalf("NewRedisStore: %v", err)
		}
		t.Cleanup(func() {
			keys, _ := rs.Keys(context.Background(), "")
			for _, k := range keys {
				rs.Delete(context.Background(), k)
			}
			rs.Close()
		})
		out["redis"] = rs
	}
	return out
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Read(ctx, "party_missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Read missing err = %v, want ErrNotFound", err)
			}

			if err := PutJSON(ctx, s, "party_a", doc{Name: "a", Count: 1}); err != nil {
				t.Fatalf("PutJSON: %v", err)
			}
			if err := PutJSON(ctx, s, "party_user_1", doc{Name: "u"}); err != nil {
				t.Fatalf("PutJSON: %v", err)
			}
			if err := PutJSON(ctx, s, "web_1", doc{Name: "w"}); err != nil {
				t.Fatalf("PutJSON: %v", err)
			}

			got, err := GetJSON[doc](ctx, s, "party_a")
			if err != nil || got.Name != "a" || got.Count != 1 {
				t.Fatalf("GetJSON = %+v, %v", got, err)
			}

			ok, err := s.Exists(ctx, "party_a")
			if err != nil || !ok {
				t.Fatalf("Exists = %v, %v", ok, err)
			}

			keys, err := s.Keys(ctx, "party_")
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if want := []string{"party_a", "party_user_1"}; !reflect.DeepEqual(keys, want) {
				t.Errorf("Keys(party_) = %v, want %v", keys, want)
			}

			ns, err := Namespaces(ctx, s)
			if err != nil {
				t.Fatalf("Namespaces: %v", err)
			}
			if ns["parties"] != 1 || ns["userRecords"] != 1 || ns["webUsers"] != 1 {
				t.Errorf("Namespaces = %v", ns)
			}

			deleted, err := s.Delete(ctx, "party_a")
			if err != nil || !deleted {
				t.Fatalf("Delete = %v, %v", deleted, err)
			}
			deleted, err = s.Delete(ctx, "party_a")
			if err != nil || deleted {
				t.Fatalf("second Delete = %v, %v", deleted, err)
			}
		})
	}
}

func TestFileStoreAppendsExtension(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Write(context.Background(), "party_x", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "party_x.json")); err != nil {
		t.Fatalf("expected party_x.json on disk: %v", err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(context.Background(), "../escape", []byte(`{}`)); err == nil {
		t.Fatal("expected invalid key error")
	}
}

type countingStore struct {
	Store
	reads int
}

func (c *countingStore) Read(ctx context.Context, key string) ([]byte, error) {
	c.reads++
	return c.Store.Read(ctx, key)
}

func TestCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	counting := &countingStore{Store: fs}
	c := NewCache(counting, "file", zerolog.Nop())

	if err := fs.Write(ctx, "party_a", []byte(`{"name":"a"}`)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		raw, err := c.Read(ctx, "party_a")
		if err != nil {
			t.Fatal(err)
		}
		raw[0] = 'X'
	}
	if counting.reads != 1 {
		t.Errorf("backend reads = %d, want 1", counting.reads)
	}

	raw, _ := c.Read(ctx, "party_a")
	if string(raw) != `{"name":"a"}` {
		t.Errorf("cached value mutated: %s", raw)
	}

	if err := c.Write(ctx, "party_a", []byte(`{"name":"b"}`)); err != nil {
		t.Fatal(err)
	}
	raw, _ = c.Read(ctx, "party_a")
	if string(raw) != `{"name":"b"}` || counting.reads != 1 {
		t.Errorf("write-through failed: %s reads=%d", raw, counting.reads)
	}

	if _, err := c.Delete(ctx, "party_a"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Read(ctx, "party_a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("read after delete err = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("cache Len = %d", c.Len())
	}
}

// gatedStore holds its first Read open after loading the document, until
// release is closed.
type gatedStore struct {
	Store
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore(next Store) *gatedStore {
	return &gatedStore{Store: next, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) Read(ctx context.Context, key string) ([]byte, error) {
	raw, err := g.Store.Read(ctx, key)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.started)
		<-g.release
	}
	return raw, err
}

func TestCacheSlowReadDoesNotOverwriteNewerState(t *testing.T) {
	ctx := context.Background()

	t.Run("write during read", func(t *testing.T) {
		fs, err := NewFileStore(t.TempDir(), zerolog.Nop())
		if err != nil {
			t.Fatal(err)
		}
		if err := fs.Write(ctx, "party_a", []byte(`{"name":"old"}`)); err != nil {
			t.Fatal(err)
		}
		gated := newGatedStore(fs)
		c := NewCache(gated, "file", zerolog.Nop())

		done := make(chan []byte)
		go func() {
			raw, _ := c.Read(ctx, "party_a")
			done <- raw
		}()
		<-gated.started

		if err := c.Write(ctx, "party_a", []byte(`{"name":"new"}`)); err != nil {
			t.Fatal(err)
		}
		close(gated.release)
		if raw := <-done; string(raw) != `{"name":"old"}` {
			t.Errorf("in-flight read = %s", raw)
		}

		raw, err := c.Read(ctx, "party_a")
		if err != nil {
			t.Fatal(err)
		}
		if string(raw) != `{"name":"new"}` {
			t.Errorf("read after write = %s, want new", raw)
		}
	})

	t.Run("delete during read", func(t *testing.T) {
		fs, err := NewFileStore(t.TempDir(), zerolog.Nop())
		if err != nil {
			t.Fatal(err)
		}
		if err := fs.Write(ctx, "party_a", []byte(`{"name":"old"}`)); err != nil {
			t.Fatal(err)
		}
		gated := newGatedStore(fs)
		c := NewCache(gated, "file", zerolog.Nop())

		done := make(chan struct{})
		go func() {
			c.Read(ctx, "party_a")
			close(done)
		}()
		<-gated.started

		if _, err := c.Delete(ctx, "party_a"); err != nil {
			t.Fatal(err)
		}
		close(gated.release)
		<-done

		if _, err := c.Read(ctx, "party_a"); !errors.Is(err, ErrNotFound) {
			t.Errorf("read after delete err = %v, want ErrNotFound", err)
		}
		if c.Len() != 0 {
			t.Errorf("cache Len = %d, want 0", c.Len())
		}
	})
}
