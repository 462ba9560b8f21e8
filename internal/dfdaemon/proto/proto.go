// Package proto defines the transport-neutral message shapes for the
// dfdaemon RPC surface described in the logical interface table: plain Go
// structs, not protobuf-generated types. Wire framing, compression
// negotiation, and codegen are external collaborators this module doesn't
// own.
package proto

import "time"

// Piece mirrors the wire Piece message. Content is populated only on
// DownloadPiece responses.
type Piece struct {
	Number      uint32
	ParentID    string // empty when unknown
	Offset      uint64
	Length      uint64
	Digest      string
	Content     []byte // nil except in DownloadPiece responses
	TrafficType TrafficType
	Cost        time.Duration
	CreatedAt   time.Time
}

// TrafficType classifies where a piece's bytes came from, for accounting.
type TrafficType int

const (
	TrafficTypeUnknown TrafficType = iota
	TrafficTypeLocalPeer
	TrafficTypeRemotePeer
	TrafficTypeBackToOrigin
)

// TaskState is the lifecycle of a whole task, as exposed by StatTask.
type TaskState int

const (
	TaskStatePending TaskState = iota
	TaskStateRunning
	TaskStateFinished
	TaskStatePartial
	TaskStateFailed
)

// Task mirrors the wire Task message returned by StatTask.
type Task struct {
	ID          string
	State       TaskState
	ContentLength int64
	PieceLength uint32
	PieceCount  uint32
}

// SyncPiecesRequest is C3's request: a task and the piece numbers this
// caller is interested in watching.
type SyncPiecesRequest struct {
	TaskID                string
	InterestedPieceNumbers []uint32
}

// SyncPiecesResponse is one event on C3's response stream: a piece number
// that transitioned to Finished during the observation window.
type SyncPiecesResponse struct {
	PieceNumber uint32
}

// DownloadPieceRequest is C4's request.
type DownloadPieceRequest struct {
	TaskID      string
	PieceNumber uint32
}

// DownloadPieceResponse is C4's response: the piece plus its bytes.
type DownloadPieceResponse struct {
	Piece Piece
}

// Download is the sub-message driving C5: what to fetch and how to split
// it.
type Download struct {
	URL         string
	Digest      string // optional
	Tag         string // optional
	Application string
	PieceLength uint32
	Filters     []string // query parameters removed from URL before computing the task id; the fetch uses URL as given
	RangeStart  *uint64  // optional byte range
	RangeEnd    *uint64  // optional byte range, inclusive
	Timeout     *time.Duration
	Header      map[string]string
}

// DownloadTaskRequest is C5's request.
type DownloadTaskRequest struct {
	Download Download
}

// DownloadTaskResponse is one progress event on C5's response stream.
type DownloadTaskResponse struct {
	TaskID         string
	PeerID         string
	CompletedLength int64
	State          TaskState
}

// UploadTaskRequest is the reserved UploadTask request.
type UploadTaskRequest struct {
	TaskID string
}

// DeleteTaskRequest is the reserved DeleteTask request.
type DeleteTaskRequest struct {
	TaskID string
}

// StatTaskRequest asks for a task's current state.
type StatTaskRequest struct {
	TaskID string
}
