package main

import (
	"context"
	"log/slog"
	"net"
	"os"

	"github.com/prxssh/dfdaemon/internal/config"
	"github.com/prxssh/dfdaemon/internal/dfdaemon"
	"github.com/prxssh/dfdaemon/internal/idgen"
	"github.com/prxssh/dfdaemon/internal/logging"
	"github.com/prxssh/dfdaemon/internal/server"
	"github.com/prxssh/dfdaemon/internal/storage"
	"github.com/prxssh/dfdaemon/internal/task"
)

func main() {
	log := setupLogger()

	cfg, err := config.Default()
	if err != nil {
		log.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := storage.NewDisk(cfg.DataDir, cfg.PieceCacheCapacity)
	svc := &dfdaemon.Service{
		Store:        store,
		Tasks:        task.NewManager(nil),
		IDs:          idgen.New(),
		Log:          log,
		PollInterval: cfg.WaitForPieceFinishedInterval,
	}

	downloadLn, err := server.ListenUnix("download", cfg.DownloadSocketPath)
	if err != nil {
		log.Error("failed to open download socket", slog.String("error", err.Error()))
		os.Exit(1)
	}

	uploadLn, err := server.ListenTCP("upload", cfg.UploadAddr)
	if err != nil {
		log.Error("failed to open upload listener", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("dfdaemon starting",
		slog.String("download_socket", cfg.DownloadSocketPath),
		slog.String("upload_addr", uploadLn.Addr().String()),
	)

	shutdown := server.NewBroadcast()
	dispatch := func(ctx context.Context, conn net.Conn) {
		defer conn.Close()
		dispatchConn(ctx, svc, log, conn)
	}

	if err := server.Run(context.Background(), shutdown, dispatch, log, downloadLn, uploadLn); err != nil {
		log.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("dfdaemon stopped")
}

// dispatchConn is where a real gRPC server would decode a request off
// conn and route it to svc; wire framing is an external collaborator this
// module doesn't implement. Left minimal so the listener lifecycle is
// exercised without pulling in a generated server stub.
func dispatchConn(ctx context.Context, svc *dfdaemon.Service, log *slog.Logger, conn net.Conn) {
	_ = ctx
	_ = svc
	log.Debug("connection accepted", slog.String("remote", conn.RemoteAddr().String()))
}

func setupLogger() *slog.Logger {
	l := logging.New(os.Stdout, slog.LevelInfo)
	slog.SetDefault(l)

	return l
}
