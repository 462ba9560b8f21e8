// Package dfdaemon implements the RPC-facing piece-lifecycle endpoints:
// SyncPieces (C3), DownloadPiece (C4), and DownloadTask (C5). Methods take
// transport-neutral stream interfaces shaped like generated gRPC
// server-stream parameters, since proto definitions and wire framing are
// external collaborators this module doesn't own.
package dfdaemon

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/prxssh/dfdaemon/internal/dfdaemon/proto"
	"github.com/prxssh/dfdaemon/internal/dfdaemonerrors"
	"github.com/prxssh/dfdaemon/internal/idgen"
	"github.com/prxssh/dfdaemon/internal/logging"
	"github.com/prxssh/dfdaemon/internal/piece"
	"github.com/prxssh/dfdaemon/internal/storage"
	"github.com/prxssh/dfdaemon/internal/task"
)

// SyncPiecesStream is the shape a generated server-stream parameter for
// SyncPieces has: Send pushes one response, Context carries cancellation.
type SyncPiecesStream interface {
	Send(*proto.SyncPiecesResponse) error
	Context() context.Context
}

// DownloadTaskStream is the same shape for DownloadTask's progress
// stream.
type DownloadTaskStream interface {
	Send(*proto.DownloadTaskResponse) error
	Context() context.Context
}

// SchedulerClient is the collaborator StatTask delegates to verbatim.
type SchedulerClient interface {
	StatTask(ctx context.Context, req *proto.StatTaskRequest) (*proto.Task, error)
}

// Service implements the dfdaemon RPC surface.
type Service struct {
	Store        storage.Store
	Tasks        *task.Manager
	IDs          *idgen.Generator
	Scheduler    SchedulerClient
	Log          *slog.Logger
	PollInterval time.Duration
}

// SyncPieces implements C3: it polls storage for each interested piece
// number until the interest set is satisfied or no further progress can
// be observed, emitting each finished piece number at most once.
func (s *Service) SyncPieces(req *proto.SyncPiecesRequest, stream SyncPiecesStream) error {
	interested := lo.Uniq(req.InterestedPieceNumbers)

	ticker := time.NewTicker(s.pollInterval())
	defer ticker.Stop()

	for {
		hasStarted := false
		var finished []uint32

		for _, n := range interested {
			rec, ok, err := s.Store.Get(req.TaskID, n)
			if err != nil {
				return dfdaemonerrors.Internal("sync_pieces: get piece %d: %v", n, err)
			}
			if !ok {
				continue
			}

			switch rec.State {
			case piece.StateFinished:
				if err := stream.Send(&proto.SyncPiecesResponse{PieceNumber: n}); err != nil {
					return dfdaemonerrors.Canceled("sync_pieces: send: %v", err)
				}
				if s.Log != nil {
					s.Log.Debug("sync_pieces piece finished",
						slog.String("task_id", req.TaskID), logging.PieceAttr(n))
				}
				finished = append(finished, n)
			case piece.StateStarted:
				hasStarted = true
			}
		}

		interested = lo.Without(interested, finished...)

		if len(interested) == 0 {
			return nil
		}
		if !hasStarted {
			return nil
		}

		select {
		case <-stream.Context().Done():
			return dfdaemonerrors.Canceled("sync_pieces: %v", stream.Context().Err())
		case <-ticker.C:
		}
	}
}

func (s *Service) pollInterval() time.Duration {
	if s.PollInterval <= 0 {
		return 50 * time.Millisecond
	}
	return s.PollInterval
}

// DownloadPiece implements C4: fetch one piece's metadata and bytes from
// local storage.
func (s *Service) DownloadPiece(ctx context.Context, req *proto.DownloadPieceRequest) (*proto.DownloadPieceResponse, error) {
	rec, ok, err := s.Store.Get(req.TaskID, req.PieceNumber)
	if err != nil {
		return nil, dfdaemonerrors.Internal("download_piece: lookup: %v", err)
	}
	if !ok {
		return nil, dfdaemonerrors.NotFound("download_piece: piece %d of task %s not found", req.PieceNumber, req.TaskID)
	}

	r, err := s.Store.Reader(req.TaskID, req.PieceNumber)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, dfdaemonerrors.NotFound("download_piece: piece %d of task %s not found", req.PieceNumber, req.TaskID)
		}
		return nil, dfdaemonerrors.Internal("download_piece: open reader: %v", err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, dfdaemonerrors.Internal("download_piece: read: %v", err)
	}

	if s.Log != nil {
		s.Log.Debug("download_piece served",
			slog.String("task_id", req.TaskID), logging.PieceAttr(req.PieceNumber))
	}

	return &proto.DownloadPieceResponse{
		Piece: proto.Piece{
			Number:   rec.Piece.Number,
			ParentID: rec.Piece.ParentID,
			Offset:   rec.Piece.Offset,
			Length:   rec.Piece.Length,
			Digest:   rec.Piece.Digest,
			Content:  content,
		},
	}, nil
}

// DownloadTask implements C5: it names the task deterministically, probes
// content length, runs the piece-fetch worker (task.Manager.DownloadIntoFile)
// in the calling goroutine, and streams a Running event before the worker
// and a final-state event after it.
func (s *Service) DownloadTask(req *proto.DownloadTaskRequest, stream DownloadTaskStream) error {
	dl := req.Download
	if dl.URL == "" {
		return dfdaemonerrors.InvalidArgument("download_task: missing download")
	}

	ctx := stream.Context()
	if dl.Timeout != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *dl.Timeout)
		defer cancel()
	}

	pieceLength := dl.PieceLength
	if pieceLength == 0 {
		pieceLength = 4 * 1024 * 1024
	}

	taskID, err := s.IDs.TaskID(dl.URL, dl.Digest, dl.Tag, dl.Application, pieceLength, dl.Filters)
	if err != nil {
		return dfdaemonerrors.InvalidArgument("download_task: task id: %v", err)
	}

	hostID := s.IDs.HostID()
	peerID := s.IDs.PeerID()

	if err := s.Tasks.Started(taskID, pieceLength); err != nil {
		return dfdaemonerrors.Internal("download_task: start: %v", err)
	}

	contentLength, err := s.Tasks.ContentLength(ctx, taskID, dl.URL)
	if err != nil {
		s.Tasks.Failed(taskID)
		return dfdaemonerrors.Internal("download_task: content length: %v", err)
	}

	if err := stream.Send(&proto.DownloadTaskResponse{
		TaskID: taskID, PeerID: peerID, CompletedLength: 0, State: proto.TaskStateRunning,
	}); err != nil {
		return dfdaemonerrors.Canceled("download_task: send: %v", err)
	}

	dlReq := task.DownloadRequest{
		URL:         dl.URL,
		PieceLength: pieceLength,
		RangeStart:  dl.RangeStart,
		RangeEnd:    dl.RangeEnd,
	}

	if err := s.Tasks.DownloadIntoFile(ctx, taskID, dlReq, s.Store); err != nil {
		s.Tasks.Failed(taskID)
		_ = stream.Send(&proto.DownloadTaskResponse{TaskID: taskID, PeerID: peerID, State: proto.TaskStateFailed})
		return dfdaemonerrors.Internal("download_task: worker: %v", err)
	}

	finalState := proto.TaskStateFinished
	if dl.RangeStart != nil || dl.RangeEnd != nil {
		s.Tasks.Partial(taskID)
		finalState = proto.TaskStatePartial
	} else {
		s.Tasks.Finished(taskID)
	}

	if s.Log != nil {
		attrs := append(logging.TaskAttrs(taskID, peerID), slog.String("host_id", hostID))
		s.Log.LogAttrs(ctx, slog.LevelInfo, "download_task finished", attrs...)
	}

	return stream.Send(&proto.DownloadTaskResponse{
		TaskID: taskID, PeerID: peerID, CompletedLength: contentLength, State: finalState,
	})
}

// UploadTask is reserved.
func (s *Service) UploadTask(ctx context.Context, req *proto.UploadTaskRequest) error {
	return dfdaemonerrors.Unimplemented("upload_task: not implemented")
}

// DeleteTask is reserved.
func (s *Service) DeleteTask(ctx context.Context, req *proto.DeleteTaskRequest) error {
	return dfdaemonerrors.Unimplemented("delete_task: not implemented")
}

// StatTask delegates verbatim to the scheduler client collaborator.
func (s *Service) StatTask(ctx context.Context, req *proto.StatTaskRequest) (*proto.Task, error) {
	if s.Scheduler == nil {
		return nil, dfdaemonerrors.Internal("stat_task: no scheduler client configured")
	}

	return s.Scheduler.StatTask(ctx, req)
}
