package task

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prxssh/dfdaemon/internal/storage"
)

func TestStartedIsIdempotent(t *testing.T) {
	m := NewManager(nil)

	if err := m.Started("t1", 4096); err != nil {
		t.Fatalf("Started() error = %v", err)
	}
	if err := m.Started("t1", 4096); err != nil {
		t.Fatalf("Started() second call error = %v", err)
	}

	if _, ok := m.Get("t1"); !ok {
		t.Fatalf("Get() did not find started task")
	}
}

func TestStartedRejectsEmptyID(t *testing.T) {
	m := NewManager(nil)

	if err := m.Started("", 4096); err == nil {
		t.Errorf("Started() with empty id returned nil error")
	}
}

func TestContentLengthCachesResult(t *testing.T) {
	calls := 0
	m := NewManager(func(ctx context.Context, url string) (int64, error) {
		calls++
		return 1024, nil
	})

	m.Started("t1", 4096)

	for i := 0; i < 3; i++ {
		n, err := m.ContentLength(context.Background(), "t1", "https://example.com")
		if err != nil {
			t.Fatalf("ContentLength() error = %v", err)
		}
		if n != 1024 {
			t.Errorf("ContentLength() = %d, want 1024", n)
		}
	}

	if calls != 1 {
		t.Errorf("prober called %d times, want 1 (cached)", calls)
	}
}

func TestStateTransitions(t *testing.T) {
	m := NewManager(func(ctx context.Context, url string) (int64, error) { return 10, nil })
	m.Started("t1", 4096)

	tk, _ := m.Get("t1")
	if tk.State() != StatePending {
		t.Fatalf("initial state = %v, want Pending", tk.State())
	}

	m.ContentLength(context.Background(), "t1", "https://example.com")
	if tk.State() != StateRunning {
		t.Errorf("state after ContentLength = %v, want Running", tk.State())
	}

	m.Finished("t1")
	if tk.State() != StateFinished {
		t.Errorf("state after Finished = %v, want Finished", tk.State())
	}

	m.Failed("t1")
	if tk.State() != StateFailed {
		t.Errorf("state after Failed = %v, want Failed", tk.State())
	}
}

func TestDownloadIntoFileFetchesAllPieces(t *testing.T) {
	body := []byte("0123456789abcdef") // 16 bytes, 4 pieces of 4 bytes

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var start, end int
		fmt.Sscanf(r.Header.Get("Range"), "bytes=%d-%d", &start, &end)
		w.WriteHeader(http.StatusPartialContent)
		w.Write(body[start : end+1])
	}))
	defer srv.Close()

	m := NewManager(func(ctx context.Context, url string) (int64, error) { return int64(len(body)), nil })
	m.Started("t1", 4)
	if _, err := m.ContentLength(context.Background(), "t1", srv.URL); err != nil {
		t.Fatalf("ContentLength() error = %v", err)
	}

	store := storage.NewDisk(t.TempDir(), 8)
	req := DownloadRequest{URL: srv.URL, PieceLength: 4}

	if err := m.DownloadIntoFile(context.Background(), "t1", req, store); err != nil {
		t.Fatalf("DownloadIntoFile() error = %v", err)
	}

	for n := uint32(0); n < 4; n++ {
		rec, ok, err := store.Get("t1", n)
		if err != nil || !ok {
			t.Fatalf("Get(%d) = (%v, %v, %v)", n, rec, ok, err)
		}
	}
}
