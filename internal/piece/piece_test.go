package piece

import "testing"

func TestCount(t *testing.T) {
	tests := []struct {
		name      string
		size      uint64
		pieceLen  uint32
		wantCount uint32
		wantOk    bool
	}{
		{"zero size", 0, 1024, 0, false},
		{"zero pieceLen", 1024, 0, 0, false},
		{"exact fit", 2048, 1024, 2, true},
		{"one extra byte", 2049, 1024, 3, true},
		{"less than one piece", 512, 1024, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCount, gotOk := Count(tt.size, tt.pieceLen)
			if gotCount != tt.wantCount || gotOk != tt.wantOk {
				t.Errorf("Count() = (%v, %v), want (%v, %v)", gotCount, gotOk, tt.wantCount, tt.wantOk)
			}
		})
	}
}

func TestLastLength(t *testing.T) {
	tests := []struct {
		name     string
		size     uint64
		pieceLen uint32
		wantLen  uint32
		wantOk   bool
	}{
		{"zero size", 0, 1024, 0, false},
		{"exact fit", 2048, 1024, 1024, true},
		{"one extra byte", 2049, 1024, 1, true},
		{"less than one piece", 512, 1024, 512, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLen, gotOk := LastLength(tt.size, tt.pieceLen)
			if gotLen != tt.wantLen || gotOk != tt.wantOk {
				t.Errorf("LastLength() = (%v, %v), want (%v, %v)", gotLen, gotOk, tt.wantLen, tt.wantOk)
			}
		})
	}
}

func TestLengthAt(t *testing.T) {
	// size=2049, pieceLen=1024 -> 3 pieces: 1024, 1024, 1
	tests := []struct {
		name    string
		number  uint32
		wantLen uint32
		wantOk  bool
	}{
		{"first piece", 0, 1024, true},
		{"middle piece", 1, 1024, true},
		{"last piece short", 2, 1, true},
		{"out of range", 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLen, gotOk := LengthAt(tt.number, 2049, 1024)
			if gotLen != tt.wantLen || gotOk != tt.wantOk {
				t.Errorf("LengthAt() = (%v, %v), want (%v, %v)", gotLen, gotOk, tt.wantLen, tt.wantOk)
			}
		})
	}
}

func TestOffsetAt(t *testing.T) {
	if got := OffsetAt(3, 1024); got != 3072 {
		t.Errorf("OffsetAt() = %v, want 3072", got)
	}
}

func TestIndexForOffset(t *testing.T) {
	tests := []struct {
		name       string
		offset     uint64
		wantNumber uint32
		wantOk     bool
	}{
		{"first byte", 0, 0, true},
		{"second piece start", 1024, 1, true},
		{"past end", 2049, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotNumber, gotOk := IndexForOffset(tt.offset, 2049, 1024)
			if gotNumber != tt.wantNumber || gotOk != tt.wantOk {
				t.Errorf("IndexForOffset() = (%v, %v), want (%v, %v)", gotNumber, gotOk, tt.wantNumber, tt.wantOk)
			}
		})
	}
}
