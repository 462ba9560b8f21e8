// Package config centralizes dfdaemon's tunables behind a single
// struct-of-defaults, the same shape the upstream torrent config carries
// even though request parsing and config-file loading are out of scope
// for this module: defaults, timeouts, and queue depths are ambient and
// always present in a runnable daemon.
package config

import (
	"net"
	"os"
	"path/filepath"
	"time"
)

// Config holds dfdaemon's resource limits and timeouts.
type Config struct {
	// ========== Identity / Paths ==========

	// DataDir is where piece bytes and task metadata are persisted.
	DataDir string

	// ========== RPC servers ==========

	// UploadAddr is the host:port the upload (TCP) server binds.
	UploadAddr string

	// DownloadSocketPath is the filesystem path of the download server's
	// Unix domain socket. Removed on clean shutdown.
	DownloadSocketPath string

	// RequestTimeout bounds every outbound client call unless a
	// per-method override (DownloadPiece, DownloadTask) is supplied.
	RequestTimeout time.Duration

	// ========== SyncPieces (C3) ==========

	// WaitForPieceFinishedInterval is the inter-poll sleep in the
	// sync_pieces state machine.
	WaitForPieceFinishedInterval time.Duration

	// ========== PieceSelector (C2) ==========

	// SelectorAvailabilityLevels is the number of distinct availability
	// buckets for the rarest-first selector (roughly the expected peer
	// fan-out per task). No package in this module passes it to
	// selector.EnsureAvailabilityTracking.
	SelectorAvailabilityLevels int

	// ========== Piece cache (C1) ==========

	// PieceCacheCapacity bounds how many finished pieces' bytes stay
	// resident in memory for fast repeat reads.
	PieceCacheCapacity int

	// ========== DownloadTask (C5) ==========

	// DefaultPieceLength is the piece length for a Download that doesn't
	// specify one. dfdaemon.Service does not read it; it falls back to its
	// own 4 MiB constant, the same value.
	DefaultPieceLength uint32

	// ContentLengthProbeTimeout is a bound for the HEAD-style origin probe
	// in DownloadTask. task.Manager does not read it; the probe is limited
	// only by the request context and its retry schedule.
	ContentLengthProbeTimeout time.Duration

	// ========== Networking ==========

	// EnableIPv6 allows dialing IPv6 origins/peers.
	EnableIPv6 bool

	// HasIPv6 records whether the host actually has a routable IPv6
	// address; computed at startup, informational only.
	HasIPv6 bool

	// ========== Misc ==========

	// MetricsEnabled toggles the metrics endpoint.
	MetricsEnabled bool

	// MetricsBindAddr is the HTTP address for metrics (e.g. ":9090").
	MetricsBindAddr string
}

// Default returns sensible defaults for most use cases.
func Default() (Config, error) {
	dataDir, err := defaultDataDir()
	if err != nil {
		return Config{}, err
	}

	hasIPv6 := hasIPv6()

	return Config{
		DataDir:                      dataDir,
		UploadAddr:                   ":65000",
		DownloadSocketPath:           filepath.Join(os.TempDir(), "dfdaemon.sock"),
		RequestTimeout:               15 * time.Second,
		WaitForPieceFinishedInterval: 50 * time.Millisecond,
		SelectorAvailabilityLevels:   32,
		PieceCacheCapacity:           1024,
		DefaultPieceLength:           4 * 1024 * 1024,
		ContentLengthProbeTimeout:    10 * time.Second,
		EnableIPv6:                   hasIPv6,
		HasIPv6:                      hasIPv6,
		MetricsEnabled:               false,
		MetricsBindAddr:              ":9090",
	}, nil
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".dfdaemon"), nil
}

func hasIPv6() bool {
	ifaces, _ := net.Interfaces()

	for _, ifi := range ifaces {
		if (ifi.Flags & net.FlagUp) == 0 {
			continue
		}

		addrs, _ := ifi.Addrs()
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}

			ip := ipNet.IP
			if ip == nil || ip.To4() != nil {
				continue
			}
			if ip.IsGlobalUnicast() && !ip.IsLinkLocalUnicast() && !ip.IsLoopback() {
				return true
			}
		}
	}

	return false
}
