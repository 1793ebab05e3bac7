package stats

import (
	"sync"
	"testing"
	"time"
)

func TestActiveIncDec(t *testing.T) {
	s := New()
	if got := s.Active(); got != 0 {
		t.Fatalf("fresh Stats: Active() = %d, want 0", got)
	}

	s.IncActive()
	s.IncActive()
	s.DecActive()
	if got := s.Active(); got != 1 {
		t.Fatalf("Active() = %d, want 1", got)
	}
}

func TestTotalRequests(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.IncRequests()
	}
	if got := s.TotalRequests(); got != 5 {
		t.Fatalf("TotalRequests() = %d, want 5", got)
	}
}

func TestUptimeSecondsNonNegative(t *testing.T) {
	s := New()
	if got := s.UptimeSeconds(); got < 0 {
		t.Fatalf("UptimeSeconds() = %d, want >= 0", got)
	}

	time.Sleep(1100 * time.Millisecond)
	if got := s.UptimeSeconds(); got < 1 {
		t.Fatalf("UptimeSeconds() = %d after 1.1s, want >= 1", got)
	}
}

func TestConcurrentIncDec(t *testing.T) {
	s := New()
	const n = 200

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			s.IncActive()
			s.IncRequests()
		}()
	}
	wg.Wait()

	if got := s.Active(); got != n {
		t.Fatalf("Active() = %d, want %d", got, n)
	}
	if got := s.TotalRequests(); got != n {
		t.Fatalf("TotalRequests() = %d, want %d", got, n)
	}
}
