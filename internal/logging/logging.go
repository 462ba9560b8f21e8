package logging

import (
	"io"
	"log/slog"
)

// New returns a logger writing through PrettyHandler to w at the given
// level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	opts := DefaultOptions()
	opts.SlogOpts.Level = level

	return slog.New(NewPrettyHandler(w, &opts))
}

// TaskAttrs builds the task_id/peer_id attribute pair that DownloadTask
// attaches to its completion log line.
func TaskAttrs(taskID, peerID string) []slog.Attr {
	return []slog.Attr{
		slog.String("task_id", taskID),
		slog.String("peer_id", peerID),
	}
}

// PieceAttr builds the attribute attached to per-piece log lines.
func PieceAttr(pieceNumber uint32) slog.Attr {
	return slog.Uint64("piece_number", uint64(pieceNumber))
}
