package importer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewSchedule_InvalidSpec(t *testing.T) {
	job := func(context.Context) (Totals, error) { return Totals{}, nil }
	if _, err := NewSchedule(context.Background(), "every now and then", job, testLogger()); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestSchedule_RunsJob(t *testing.T) {
	var runs atomic.Int32
	job := func(context.Context) (Totals, error) {
		runs.Add(1)
		return Totals{Forms: 1}, nil
	}
	s, err := NewSchedule(context.Background(), "@every 1s", job, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	s.Stop()
	if runs.Load() == 0 {
		t.Fatal("job never ran")
	}
}

func TestSchedule_CancelledContextSkips(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var runs atomic.Int32
	s, err := NewSchedule(ctx, "@every 1s", func(context.Context) (Totals, error) {
		runs.Add(1)
		return Totals{}, nil
	}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	time.Sleep(1500 * time.Millisecond)
	s.Stop()
	if runs.Load() != 0 {
		t.Errorf("job ran %d times after cancel", runs.Load())
	}
}
