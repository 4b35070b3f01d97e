package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLogRoundtrip(t *testing.T) {
	store := NewBuildLogStore(time.Minute)
	defer store.Close()

	store.Begin("web/app")
	store.Append("web/app", "Step 1/3")
	store.Append("web/app", "Step 2/3")

	got, ok := store.Read("web/app")
	require.True(t, ok)
	assert.Equal(t, "Step 1/3\nStep 2/3\n", got)
}

func TestBuildLogDropsLinesWithoutBegin(t *testing.T) {
	store := NewBuildLogStore(time.Minute)
	defer store.Close()

	store.Append("web/app", "orphan line")

	_, ok := store.Read("web/app")
	assert.False(t, ok)
}

func TestBuildLogBeginResetsPreviousLog(t *testing.T) {
	store := NewBuildLogStore(time.Minute)
	defer store.Close()

	store.Begin("web/app")
	store.Append("web/app", "old build")
	store.Begin("web/app")
	store.Append("web/app", "new build")

	got, ok := store.Read("web/app")
	require.True(t, ok)
	assert.Equal(t, "new build\n", got)
}

func TestBuildLogRetiresAfterRetention(t *testing.T) {
	store := NewBuildLogStore(30 * time.Millisecond)
	defer store.Close()

	store.Begin("web/app")
	store.Append("web/app", "done")
	store.Retire("web/app")

	// Readable right after completion.
	_, ok := store.Read("web/app")
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := store.Read("web/app")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBuildLogBeginCancelsPendingRetirement(t *testing.T) {
	store := NewBuildLogStore(30 * time.Millisecond)
	defer store.Close()

	store.Begin("web/app")
	store.Retire("web/app")
	store.Begin("web/app")
	store.Append("web/app", "second build")

	time.Sleep(100 * time.Millisecond)

	got, ok := store.Read("web/app")
	require.True(t, ok)
	assert.Equal(t, "second build\n", got)
}
