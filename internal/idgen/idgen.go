// Package idgen derives task ids deterministically and peer/host ids
// freshly, the collaborator DownloadTask (C5) uses to name a download
// before any bytes move.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	neturl "net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Generator produces the ids DownloadTask needs. The zero value computes
// task and peer ids but reports an empty host id; New sets a stable one.
type Generator struct {
	hostID string
}

// New returns a Generator with a stable host id for this process's
// lifetime.
func New() *Generator {
	return &Generator{hostID: uuid.New().String()}
}

// TaskID computes a deterministic id from the tuple that uniquely
// identifies a download, so the same logical request always maps to the
// same task across restarts. filters name query parameters that are
// removed from url before hashing; they're also hashed as a sorted list so
// their order doesn't affect the digest.
func (g *Generator) TaskID(url, digest, tag, application string, pieceLength uint32, filters []string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("idgen: empty url")
	}

	if len(filters) > 0 {
		if u, err := neturl.Parse(url); err == nil {
			q := u.Query()
			for _, f := range filters {
				q.Del(f)
			}
			u.RawQuery = q.Encode()
			url = u.String()
		}
	}

	sorted := append([]string(nil), filters...)
	sort.Strings(sorted)

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%d\x00%s",
		url, digest, tag, application, pieceLength, strings.Join(sorted, ","))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HostID returns this generator's stable host identifier.
func (g *Generator) HostID() string {
	return g.hostID
}

// PeerID returns a fresh peer identifier for one call's duration.
func (g *Generator) PeerID() string {
	return uuid.New().String()
}
