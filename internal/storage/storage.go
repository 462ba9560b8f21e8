// Package storage implements the PieceStore collaborator: piece bytes
// buffer in memory until verified, then get written to a pre-allocated
// per-task file, the same verify-then-flush technique
// pkg/storage/storage.go uses for BitTorrent blocks, generalized from
// "block assembles into piece" to "piece assembles into task" since
// dfdaemon fetches whole pieces per origin/peer request rather than
// fixed-size wire blocks.
package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/prxssh/dfdaemon/internal/bitfield"
	"github.com/prxssh/dfdaemon/internal/cache"
	"github.com/prxssh/dfdaemon/internal/piece"
)

// ErrNotFound is returned when a (taskID, pieceNumber) pair has no known
// metadata.
var ErrNotFound = errors.New("storage: piece not found")

// Record is the metadata the piece-sync and download-piece endpoints read.
type Record struct {
	Piece piece.Piece
	State piece.State
}

// Store is what C3/C4/C5 require of a piece store: lookup, byte access,
// and state transitions. internal/dfdaemon depends on this interface, not
// on *Disk, so tests can substitute a fake.
type Store interface {
	// Open prepares a task's backing file of totalSize bytes, split into
	// pieceCount pieces. Safe to call more than once for the same task.
	Open(taskID string, totalSize int64, pieceCount uint32) error

	// Get returns a piece's current record. ok is false if unknown.
	Get(taskID string, pieceNumber uint32) (Record, bool, error)

	// Reader opens the piece's bytes for reading. The piece must be
	// Finished.
	Reader(taskID string, pieceNumber uint32) (io.ReadCloser, error)

	// MarkStarted records that bytes for a piece are being fetched.
	MarkStarted(taskID string, p piece.Piece)

	// Put supplies a fully-downloaded piece's bytes. It verifies the
	// digest (sha256 hex), writes to the task file, caches the bytes for
	// fast repeat reads, and marks the piece Finished. A digest mismatch
	// marks the piece Failed and returns false with no error.
	Put(taskID string, p piece.Piece, data []byte) (bool, error)

	// MarkFailed records that a piece could not be fetched.
	MarkFailed(taskID string, pieceNumber uint32)

	// Close releases a task's backing file.
	Close(taskID string) error

	// Progress returns how many of a task's pieces have finished and the
	// total piece count. ok is false if the task hasn't been opened.
	Progress(taskID string) (finished, total int, ok bool)
}

type taskFile struct {
	f *os.File

	mu      sync.RWMutex
	records map[uint32]*Record
	done    bitfield.Bitfield
	total   int // piece count passed to Open; done.Len() is byte-rounded, not this
}

// Disk is the concrete, filesystem-backed Store.
type Disk struct {
	dataDir string

	mu    sync.RWMutex
	tasks map[string]*taskFile

	cacheMu sync.Mutex
	cache   *cache.LruCache
	hot     map[string][]byte // "taskID/pieceNumber" -> bytes, bounded by cache
}

// NewDisk returns a Disk rooted at dataDir, keeping at most
// hotCacheCapacity finished pieces' bytes resident.
func NewDisk(dataDir string, hotCacheCapacity int) *Disk {
	return &Disk{
		dataDir: dataDir,
		tasks:   make(map[string]*taskFile),
		cache:   cache.New(hotCacheCapacity),
		hot:     make(map[string][]byte),
	}
}

func hotKey(taskID string, pieceNumber uint32) string {
	return fmt.Sprintf("%s/%d", taskID, pieceNumber)
}

func (d *Disk) taskPath(taskID string) string {
	return filepath.Join(d.dataDir, taskID)
}

// Open implements Store.
func (d *Disk) Open(taskID string, totalSize int64, pieceCount uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tasks[taskID]; ok {
		return nil
	}

	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir data dir: %w", err)
	}

	f, err := os.OpenFile(d.taskPath(taskID), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("storage: open task file: %w", err)
	}

	if err := f.Truncate(totalSize); err != nil {
		_ = f.Close()
		return fmt.Errorf("storage: allocate task file: %w", err)
	}

	d.tasks[taskID] = &taskFile{
		f:       f,
		records: make(map[uint32]*Record),
		done:    bitfield.New(int(pieceCount)),
		total:   int(pieceCount),
	}

	return nil
}

// Progress implements Store.
func (d *Disk) Progress(taskID string) (finished, total int, ok bool) {
	tf, exists := d.taskFileFor(taskID)
	if !exists {
		return 0, 0, false
	}

	tf.mu.RLock()
	defer tf.mu.RUnlock()

	return tf.done.Count(), tf.total, true
}

func (d *Disk) taskFileFor(taskID string) (*taskFile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tf, ok := d.tasks[taskID]
	return tf, ok
}

// Get implements Store.
func (d *Disk) Get(taskID string, pieceNumber uint32) (Record, bool, error) {
	tf, ok := d.taskFileFor(taskID)
	if !ok {
		return Record{}, false, nil
	}

	tf.mu.RLock()
	defer tf.mu.RUnlock()

	rec, ok := tf.records[pieceNumber]
	if !ok {
		return Record{}, false, nil
	}

	return *rec, true, nil
}

// MarkStarted implements Store.
func (d *Disk) MarkStarted(taskID string, p piece.Piece) {
	tf, ok := d.taskFileFor(taskID)
	if !ok {
		return
	}

	tf.mu.Lock()
	defer tf.mu.Unlock()

	tf.records[p.Number] = &Record{Piece: p, State: piece.StateStarted}
}

// MarkFailed implements Store.
func (d *Disk) MarkFailed(taskID string, pieceNumber uint32) {
	tf, ok := d.taskFileFor(taskID)
	if !ok {
		return
	}

	tf.mu.Lock()
	defer tf.mu.Unlock()

	if rec, ok := tf.records[pieceNumber]; ok {
		rec.State = piece.StateFailed
		return
	}

	tf.records[pieceNumber] = &Record{Piece: piece.Piece{Number: pieceNumber}, State: piece.StateFailed}
}

// Put implements Store.
func (d *Disk) Put(taskID string, p piece.Piece, data []byte) (bool, error) {
	tf, ok := d.taskFileFor(taskID)
	if !ok {
		return false, fmt.Errorf("storage: task %s not open", taskID)
	}

	if p.Digest != "" {
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != p.Digest {
			d.MarkFailed(taskID, p.Number)
			return false, nil
		}
	}

	if _, err := tf.f.WriteAt(data, int64(p.Offset)); err != nil {
		return false, fmt.Errorf("storage: write piece %d: %w", p.Number, err)
	}
	if err := tf.f.Sync(); err != nil {
		return false, fmt.Errorf("storage: sync piece %d: %w", p.Number, err)
	}

	tf.mu.Lock()
	tf.records[p.Number] = &Record{Piece: p, State: piece.StateFinished}
	tf.done.Set(int(p.Number))
	tf.mu.Unlock()

	d.cacheMu.Lock()
	key := hotKey(taskID, p.Number)
	d.cache.Put(key, uint64(len(data)))
	d.hot[key] = data
	for hk := range d.hot {
		if !d.cache.Contains(hk) {
			delete(d.hot, hk)
		}
	}
	d.cacheMu.Unlock()

	return true, nil
}

// Reader implements Store.
func (d *Disk) Reader(taskID string, pieceNumber uint32) (io.ReadCloser, error) {
	rec, ok, err := d.Get(taskID, pieceNumber)
	if err != nil {
		return nil, err
	}
	if !ok || rec.State != piece.StateFinished {
		return nil, ErrNotFound
	}

	d.cacheMu.Lock()
	key := hotKey(taskID, pieceNumber)
	if data, cached := d.hot[key]; cached {
		d.cache.Get(key) // promote to MRU
		d.cacheMu.Unlock()

		return io.NopCloser(bytes.NewReader(data)), nil
	}
	d.cacheMu.Unlock()

	tf, ok := d.taskFileFor(taskID)
	if !ok {
		return nil, ErrNotFound
	}

	buf := make([]byte, rec.Piece.Length)
	if _, err := tf.f.ReadAt(buf, int64(rec.Piece.Offset)); err != nil && err != io.EOF {
		return nil, fmt.Errorf("storage: read piece %d: %w", pieceNumber, err)
	}

	return io.NopCloser(bytes.NewReader(buf)), nil
}

// Close implements Store.
func (d *Disk) Close(taskID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tf, ok := d.tasks[taskID]
	if !ok {
		return nil
	}

	delete(d.tasks, taskID)

	return tf.f.Close()
}
