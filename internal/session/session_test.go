package session

import "testing"

func TestNewID_Unique(t *testing.T) {
	a, err := NewID()
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	b, err := NewID()
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	if a == b {
		t.Fatal("NewID() returned the same id twice")
	}
	if len(a) != 32 { // 16 bytes hex-encoded
		t.Fatalf("NewID() length = %d, want 32", len(a))
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := &Session{ID: "abc", Status: StatusStarting, ReconnectCount: 0}
	snap := s.Snapshot()

	s.ReconnectCount = 5
	s.Status = StatusConnected

	if snap.ReconnectCount != 0 {
		t.Fatalf("Snapshot() aliases the original: ReconnectCount = %d", snap.ReconnectCount)
	}
	if snap.Status != StatusStarting {
		t.Fatalf("Snapshot() aliases the original: Status = %v", snap.Status)
	}
}
