package events

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalAppendsAndReadsBack(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := OpenJournal(ctx, path, 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	for _, tag := range []string{"onSetup called", "onConfigure called", "onRun called"} {
		j.Emit(Notification{DebugTag: tag, AppName: "svc", ElapsedMillis: 10})
	}

	var recs []Record
	require.Eventually(t, func() bool {
		recs, err = j.Recent(ctx, 10)
		return err == nil && len(recs) == 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "onSetup called", recs[0].DebugTag)
	assert.Equal(t, "onRun called", recs[2].DebugTag)
	assert.Equal(t, int64(1), recs[0].Seq)
	_, err = uuid.Parse(recs[0].ID)
	assert.NoError(t, err)

	last, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "onRun called", last[0].DebugTag)
}

func TestJournalSequenceSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := OpenJournal(ctx, path, 4)
	require.NoError(t, err)
	j.Emit(Notification{DebugTag: "first"})
	require.NoError(t, j.Close())

	j, err = OpenJournal(ctx, path, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	j.Emit(Notification{DebugTag: "second"})

	require.Eventually(t, func() bool {
		recs, err := j.Recent(ctx, 10)
		return err == nil && len(recs) == 2 && recs[1].DebugTag == "second" && recs[1].Seq == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJournalClosed(t *testing.T) {
	j, err := OpenJournal(context.Background(), filepath.Join(t.TempDir(), "journal.db"), 4)
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	j.Emit(Notification{DebugTag: "late"})
	_, err = j.Recent(context.Background(), 1)
	assert.ErrorIs(t, err, ErrJournalClosed)
}
