// cmd/historian/main_test.go
package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/unoserv/internal/cache"
)

func testService(batchSize int) (*HistorianService, *[][]cache.IntentRecord) {
	ctx, cancel := context.WithCancel(context.Background())
	var flushed [][]cache.IntentRecord
	hs := &HistorianService{
		batchSize: batchSize,
		batch:     make([]cache.IntentRecord, 0, batchSize),
		ctx:       ctx,
		cancelFn:  cancel,
	}
	hs.persistFn = func(_ context.Context, batch []cache.IntentRecord) error {
		flushed = append(flushed, batch)
		return nil
	}
	return hs, &flushed
}

// A full batch flushes from inside appendToBatch, which already holds
// batchMu: the size-triggered flush must not re-lock the mutex.
func TestAppendToBatchFlushesAtThreshold(t *testing.T) {
	hs, flushed := testService(1)

	done := make(chan struct{})
	go func() {
		hs.appendToBatch(cache.IntentRecord{RoomCode: "ABC123", Username: "alice", Intent: "play-card"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("appendToBatch did not return; flush deadlocked on batchMu")
	}

	require.Len(t, *flushed, 1)
	assert.Equal(t, "ABC123", (*flushed)[0][0].RoomCode)
	assert.Empty(t, hs.batch, "batch drains on flush")
}

func TestAppendToBatchBelowThreshold(t *testing.T) {
	hs, flushed := testService(3)

	hs.appendToBatch(cache.IntentRecord{RoomCode: "ABC123", Username: "alice", Intent: "draw-card"})
	hs.appendToBatch(cache.IntentRecord{RoomCode: "ABC123", Username: "bob", Intent: "draw-card"})

	assert.Empty(t, *flushed, "no flush until the batch fills")
	assert.Len(t, hs.batch, 2)

	// The ticker path drains whatever accumulated.
	hs.flushBatchToDB()
	require.Len(t, *flushed, 1)
	assert.Len(t, (*flushed)[0], 2)
	assert.Empty(t, hs.batch)
}
