package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoff time.Time
	n      int
	err    error
}

func (f *fakePruner) PruneAudio(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

func TestParseCronExpr(t *testing.T) {
	for _, expr := range []string{"@hourly", "*/5 * * * *", "0 */10 * * * *", "@every 30m"} {
		_, err := parseCronExpr(expr)
		assert.NoError(t, err, expr)
	}
	_, err := parseCronExpr("not a schedule")
	assert.Error(t, err)
}

func TestNewAudioJanitor_Rejects(t *testing.T) {
	_, err := NewAudioJanitor(&fakePruner{}, 0, "@hourly")
	assert.Error(t, err)
	_, err = NewAudioJanitor(&fakePruner{}, time.Hour, "every so often")
	assert.Error(t, err)
}

func TestAudioJanitor_SweepCutoff(t *testing.T) {
	p := &fakePruner{n: 3}
	j, err := NewAudioJanitor(p, 24*time.Hour, "@daily")
	require.NoError(t, err)
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	assert.Equal(t, 3, j.Sweep(context.Background()))
	assert.Equal(t, now.Add(-24*time.Hour), p.cutoff)

	p.err, p.n = errors.New("permission denied"), 1
	assert.Equal(t, 1, j.Sweep(context.Background()))
}

func TestAudioJanitor_RemovesExpiredFiles(t *testing.T) {
	store := newTestStore(t, 1<<20)
	path := store.AudioPath("audio_1_deadbeef.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	j, err := NewAudioJanitor(store, time.Hour, "@hourly")
	require.NoError(t, err)
	assert.Equal(t, 1, j.Sweep(context.Background()))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAudioJanitor_StartStopsWithContext(t *testing.T) {
	j, err := NewAudioJanitor(&fakePruner{}, time.Hour, "@hourly")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
