package server

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// tableSession builds a session without a network connection, enough for
// exercising the registry itself.
func tableSession(id uint64, remoteAddr string) *Session {
	return &Session{
		id:            id,
		remoteAddress: remoteAddr,
		connectedAt:   1700000000,
		metrics:       newMetrics(prometheus.NewRegistry()),
	}
}

func TestTableAddGetRemove(t *testing.T) {
	table := newSessionTable()

	sess := tableSession(1, "192.168.1.50:51234")
	table.Add(sess)

	if got := table.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}

	found, ok := table.Get(1)
	if !ok {
		t.Fatal("Get(1) did not find the session")
	}
	if found != sess {
		t.Error("Get(1) returned a different session")
	}

	if _, ok := table.Get(99); ok {
		t.Error("Get(99) found a session that was never added")
	}

	removed, ok := table.Remove(1)
	if !ok {
		t.Fatal("Remove(1) did not find the session")
	}
	if removed != sess {
		t.Error("Remove(1) returned a different session")
	}
	if got := table.Count(); got != 0 {
		t.Errorf("Count() after remove = %d, want 0", got)
	}

	if _, ok := table.Remove(1); ok {
		t.Error("second Remove(1) reported the session as present")
	}
}

func TestTableForEachVisitsEverySession(t *testing.T) {
	table := newSessionTable()
	for id := uint64(1); id <= 5; id++ {
		table.Add(tableSession(id, "127.0.0.1:1000"))
	}

	seen := make(map[uint64]bool)
	table.ForEach(func(s *Session) {
		seen[s.ID()] = true
	})

	if len(seen) != 5 {
		t.Errorf("ForEach visited %d sessions, want 5", len(seen))
	}
	for id := uint64(1); id <= 5; id++ {
		if !seen[id] {
			t.Errorf("ForEach never visited session %d", id)
		}
	}
}

func TestTableSnapshotOrderedByID(t *testing.T) {
	table := newSessionTable()
	for _, id := range []uint64{3, 1, 2} {
		table.Add(tableSession(id, "127.0.0.1:1000"))
	}

	states := table.Snapshot()
	if len(states) != 3 {
		t.Fatalf("Snapshot() returned %d states, want 3", len(states))
	}
	for i, want := range []uint64{1, 2, 3} {
		if states[i].ID != want {
			t.Errorf("Snapshot()[%d].ID = %d, want %d", i, states[i].ID, want)
		}
	}
}

func TestTableSnapshotCarriesSessionState(t *testing.T) {
	table := newSessionTable()

	sess := tableSession(7, "192.168.0.20:40000")
	sess.setIdentified(42)
	sess.incrementIncoming()
	sess.incrementIncoming()
	sess.incrementOutgoing()
	table.Add(sess)

	states := table.Snapshot()
	if len(states) != 1 {
		t.Fatalf("Snapshot() returned %d states, want 1", len(states))
	}

	state := states[0]
	if state.ID != 7 {
		t.Errorf("ID = %d, want 7", state.ID)
	}
	if state.RemoteAddress != "192.168.0.20:40000" {
		t.Errorf("RemoteAddress = %q, want %q", state.RemoteAddress, "192.168.0.20:40000")
	}
	if state.ConnectedAt != 1700000000 {
		t.Errorf("ConnectedAt = %d, want 1700000000", state.ConnectedAt)
	}
	if !state.Identified {
		t.Error("Identified = false, want true")
	}
	if state.IncomingMessages != 2 {
		t.Errorf("IncomingMessages = %d, want 2", state.IncomingMessages)
	}
	if state.OutgoingMessages != 1 {
		t.Errorf("OutgoingMessages = %d, want 1", state.OutgoingMessages)
	}
}
