package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebk/study-bot/internal/config"
)

func TestNextDaily(t *testing.T) {
	loc := time.FixedZone("test", 3*3600)
	at := config.Clock{Hour: 21, Minute: 0}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2025, 6, 1, 9, 15, 0, 0, loc),
			want: time.Date(2025, 6, 1, 21, 0, 0, 0, loc),
		},
		{
			name: "exactly now moves to tomorrow",
			now:  time.Date(2025, 6, 1, 21, 0, 0, 0, loc),
			want: time.Date(2025, 6, 2, 21, 0, 0, 0, loc),
		},
		{
			name: "month rollover",
			now:  time.Date(2025, 6, 30, 22, 0, 0, 0, loc),
			want: time.Date(2025, 7, 1, 21, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextDaily(tt.now, at))
		})
	}
}

func TestRun_EveryAndStop(t *testing.T) {
	s := New(zerolog.Nop())

	var runs atomic.Int32
	s.Every("tick", 5*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRun_SurvivesErrorsAndPanics(t *testing.T) {
	s := New(zerolog.Nop())

	var runs atomic.Int32
	s.Every("flaky", 5*time.Millisecond, func(context.Context) error {
		n := runs.Add(1)
		if n == 1 {
			panic("boom")
		}
		return errors.New("still failing")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestReminderJobName(t *testing.T) {
	assert.Equal(t, "reminder-2", ReminderJobName(2))
}
