package integration

import (
	"testing"
)

// TestAPI_HealthCheck tests the API health endpoint
func TestAPI_HealthCheck(t *testing.T) {
	ShowtimeID(t)
	client := NewTestClient(APIBaseURL())

	client.HealthCheck(t)
}

// TestAPI_LockLifecycle runs the hold lifecycle against a live stack:
// acquire, observe, release, re-acquire.
func TestAPI_LockLifecycle(t *testing.T) {
	showtimeID := ShowtimeID(t)
	client := NewTestClient(APIBaseURL())

	seats := []string{"A1", "A2"}

	lock := client.AcquireLock(t, showtimeID, seats)
	if lock.SessionID == "" {
		t.Fatal("Expected non-empty session_id")
	}
	if len(lock.LockedSeats) != 2 {
		t.Fatalf("Expected 2 locked seats, got %d", len(lock.LockedSeats))
	}

	locked := client.LockedSeats(t, showtimeID)
	for _, want := range seats {
		found := false
		for _, got := range locked {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("Seat %s missing from locked-seats list %v", want, locked)
		}
	}

	released := client.ReleaseLock(t, lock.SessionID)
	if len(released) != 2 {
		t.Fatalf("Expected 2 released seats, got %v", released)
	}

	// Repeat release is a quiet no-op.
	released = client.ReleaseLock(t, lock.SessionID)
	if len(released) != 0 {
		t.Fatalf("Expected empty repeat release, got %v", released)
	}

	// The seats are free again for a new session.
	second := client.AcquireLock(t, showtimeID, seats)
	client.ReleaseLock(t, second.SessionID)
}

// TestAPI_OverlapConflict verifies that an overlapping request is rejected
// whole with exactly the contested seats listed.
func TestAPI_OverlapConflict(t *testing.T) {
	showtimeID := ShowtimeID(t)
	client := NewTestClient(APIBaseURL())

	lock := client.AcquireLock(t, showtimeID, []string{"B1", "B2"})
	defer client.ReleaseLock(t, lock.SessionID)

	conflicts := client.AcquireLockExpectConflict(t, showtimeID, []string{"B2", "B3"})
	if len(conflicts) != 1 || conflicts[0] != "B2" {
		t.Fatalf("Expected conflicting_seats=[B2], got %v", conflicts)
	}

	// B3 was not fixed in place by the failed attempt.
	retry := client.AcquireLock(t, showtimeID, []string{"B3"})
	client.ReleaseLock(t, retry.SessionID)
}

// TestAPI_SeatMapReflectsLocks checks the rendered map against a live hold.
func TestAPI_SeatMapReflectsLocks(t *testing.T) {
	showtimeID := ShowtimeID(t)
	client := NewTestClient(APIBaseURL())

	lock := client.AcquireLock(t, showtimeID, []string{"C1"})
	defer client.ReleaseLock(t, lock.SessionID)

	seatMap := client.SeatMap(t, showtimeID)
	if len(seatMap.Seats) == 0 {
		t.Fatal("Expected non-empty seat map")
	}

	for _, item := range seatMap.Seats {
		if item.SeatCode == "C1" && item.Status != "locked" {
			t.Fatalf("Expected seat C1 to be locked, got %s", item.Status)
		}
	}
}
