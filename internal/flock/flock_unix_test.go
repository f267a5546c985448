//go:build unix

package flock_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/frantjc/port-registry/internal/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.lock")

	held, err := flock.Lock(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, held)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err = flock.Lock(ctx, path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, flock.Unlock(held))

	again, err := flock.Lock(context.Background(), path)
	require.NoError(t, err)
	assert.NoError(t, flock.Unlock(again))
}

func TestUnlockNil(t *testing.T) {
	assert.NoError(t, flock.Unlock(nil))
}
