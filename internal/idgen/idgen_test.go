package idgen

import "testing"

func TestTaskIDIsDeterministic(t *testing.T) {
	g := New()

	a, err := g.TaskID("https://example.com/f", "sha256:abc", "v1", "app", 4096, []string{"b", "a"})
	if err != nil {
		t.Fatalf("TaskID() error = %v", err)
	}

	b, err := g.TaskID("https://example.com/f", "sha256:abc", "v1", "app", 4096, []string{"a", "b"})
	if err != nil {
		t.Fatalf("TaskID() error = %v", err)
	}

	if a != b {
		t.Errorf("TaskID() not order-independent for filters: %q != %q", a, b)
	}
}

func TestTaskIDDiffersOnInputChange(t *testing.T) {
	g := New()

	a, _ := g.TaskID("https://example.com/f", "", "", "app", 4096, nil)
	b, _ := g.TaskID("https://example.com/g", "", "", "app", 4096, nil)

	if a == b {
		t.Errorf("TaskID() collided for distinct urls")
	}
}

func TestTaskIDRejectsEmptyURL(t *testing.T) {
	g := New()

	if _, err := g.TaskID("", "", "", "app", 4096, nil); err == nil {
		t.Errorf("TaskID() with empty url returned nil error")
	}
}

func TestHostIDStable(t *testing.T) {
	g := New()

	if g.HostID() != g.HostID() {
		t.Errorf("HostID() not stable across calls")
	}
}

func TestPeerIDFresh(t *testing.T) {
	g := New()

	if g.PeerID() == g.PeerID() {
		t.Errorf("PeerID() returned the same id twice")
	}
}
