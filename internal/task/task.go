// Package task is the task manager collaborator DownloadTask (C5) drives:
// it tracks task lifecycle state, probes origin content length, and runs
// the background piece-fetch worker, the same way pkg/peer/manager.go
// supervises per-torrent peer loops with an errgroup and reports state
// through a shared, mutex-guarded registry.
package task

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/prxssh/dfdaemon/internal/dfdaemonerrors"
	"github.com/prxssh/dfdaemon/internal/piece"
	"github.com/prxssh/dfdaemon/internal/retry"
	"github.com/prxssh/dfdaemon/internal/storage"
	"github.com/prxssh/dfdaemon/internal/syncmap"
)

// State mirrors a task's lifecycle as tracked by the manager.
type State int

const (
	StatePending State = iota
	StateRunning
	StateFinished
	StatePartial
	StateFailed
)

// Task is one tracked download.
type Task struct {
	ID          string
	PieceLength uint32

	mu            sync.RWMutex
	contentLength int64
	state         State
}

func (t *Task) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Task) ContentLength() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.contentLength
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// ContentLengthProber resolves the byte size of url, typically via a
// HEAD-style probe against the origin.
type ContentLengthProber func(ctx context.Context, url string) (int64, error)

// DownloadRequest is the subset of the Download sub-message the worker
// needs to fetch bytes.
type DownloadRequest struct {
	URL         string
	PieceLength uint32
	RangeStart  *uint64
	RangeEnd    *uint64
}

// Manager tracks task lifecycle and runs background download workers.
type Manager struct {
	tasks  *syncmap.Map[string, *Task]
	prober ContentLengthProber

	httpClient *http.Client
}

// NewManager returns a Manager. A nil prober defaults to an HTTP HEAD
// probe against the origin.
func NewManager(prober ContentLengthProber) *Manager {
	m := &Manager{
		tasks:      syncmap.New[string, *Task](),
		httpClient: &http.Client{},
	}

	if prober != nil {
		m.prober = prober
	} else {
		m.prober = m.headProbe
	}

	return m
}

// Started records that a task has begun and must be tracked going
// forward. Failure is terminal per the spec: callers should map the
// returned error to Internal.
func (m *Manager) Started(taskID string, pieceLength uint32) error {
	if taskID == "" {
		return fmt.Errorf("task: empty task id")
	}

	if _, ok := m.tasks.Get(taskID); ok {
		return nil
	}

	m.tasks.Put(taskID, &Task{ID: taskID, PieceLength: pieceLength, state: StatePending})

	return nil
}

// Get returns the tracked task, if any.
func (m *Manager) Get(taskID string) (*Task, bool) {
	return m.tasks.Get(taskID)
}

// ContentLength resolves and caches url's byte size for taskID.
func (m *Manager) ContentLength(ctx context.Context, taskID, url string) (int64, error) {
	t, ok := m.tasks.Get(taskID)
	if !ok {
		return 0, fmt.Errorf("task: %s not started", taskID)
	}

	if cl := t.ContentLength(); cl > 0 {
		return cl, nil
	}

	var length int64
	err := retry.Do(ctx, func(ctx context.Context) error {
		l, err := m.prober(ctx, url)
		if err != nil {
			return err
		}
		length = l
		return nil
	}, retry.WithMaxAttempts(3))
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	t.contentLength = length
	t.state = StateRunning
	t.mu.Unlock()

	return length, nil
}

func (m *Manager) headProbe(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("task: origin did not report content length")
	}

	return resp.ContentLength, nil
}

// Finished marks taskID finished.
func (m *Manager) Finished(taskID string) {
	if t, ok := m.tasks.Get(taskID); ok {
		t.setState(StateFinished)
	}
}

// Partial marks taskID partially complete (a byte range was requested).
func (m *Manager) Partial(taskID string) {
	if t, ok := m.tasks.Get(taskID); ok {
		t.setState(StatePartial)
	}
}

// Failed marks taskID failed so subsequent stat/delete calls see a
// consistent state.
func (m *Manager) Failed(taskID string) {
	if t, ok := m.tasks.Get(taskID); ok {
		t.setState(StateFailed)
	}
}

// DownloadIntoFile fetches req's pieces from the origin into store, at
// most eight at a time through an errgroup (mirroring how
// pkg/peer/manager.go's Run spawns its supervised loops), and returns once
// every piece is stored or the first fetch fails. It reports no per-piece
// progress; store.Progress reflects finished pieces.
func (m *Manager) DownloadIntoFile(ctx context.Context, taskID string, req DownloadRequest, store storage.Store) error {
	t, ok := m.tasks.Get(taskID)
	if !ok {
		return fmt.Errorf("task: %s not started", taskID)
	}

	contentLength := t.ContentLength()
	if contentLength <= 0 {
		return dfdaemonerrors.Internal("task: content length unresolved for %s", taskID)
	}

	count, ok := piece.Count(uint64(contentLength), req.PieceLength)
	if !ok {
		return dfdaemonerrors.Internal("task: cannot compute piece count for %s", taskID)
	}

	if err := store.Open(taskID, contentLength, count); err != nil {
		return err
	}

	start, end := uint32(0), count
	if req.RangeStart != nil {
		if n, ok := piece.IndexForOffset(*req.RangeStart, uint64(contentLength), req.PieceLength); ok {
			start = n
		}
	}
	if req.RangeEnd != nil {
		if n, ok := piece.IndexForOffset(*req.RangeEnd, uint64(contentLength), req.PieceLength); ok {
			end = n + 1
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)

	for n := start; n < end; n++ {
		n := n
		eg.Go(func() error {
			return m.fetchPiece(ctx, taskID, req, n, contentLength, store)
		})
	}

	return eg.Wait()
}

func (m *Manager) fetchPiece(ctx context.Context, taskID string, req DownloadRequest, number uint32, contentLength int64, store storage.Store) error {
	length, ok := piece.LengthAt(number, uint64(contentLength), req.PieceLength)
	if !ok {
		return dfdaemonerrors.Internal("task: piece %d out of range for %s", number, taskID)
	}
	offset := piece.OffsetAt(number, req.PieceLength)

	store.MarkStarted(taskID, piece.Piece{Number: number, Length: uint64(length), Offset: offset})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		store.MarkFailed(taskID, number)
		return err
	}
	httpReq.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+uint64(length)-1))

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		store.MarkFailed(taskID, number)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		store.MarkFailed(taskID, number)
		return err
	}

	if _, err := store.Put(taskID, piece.Piece{Number: number, Length: uint64(length), Offset: offset}, data); err != nil {
		store.MarkFailed(taskID, number)
		return err
	}

	return nil
}
