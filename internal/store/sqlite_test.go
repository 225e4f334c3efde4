package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "handoff.db"))
	require.NoError(t, err)
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	_, ok, err := s.Load(ctx, "package main")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Store(ctx, "package main", "first"))
	require.NoError(t, s.Store(ctx, "package main", "second"))
	body, ok, err := s.Load(ctx, "package main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", body)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Key("package main"), entries[0].Key)
	assert.Equal(t, len("second"), entries[0].Size)
}

func TestSQLiteStoreLocate(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	a, _ := s.Locate("x")
	b, _ := s.Locate("x")
	c, _ := s.Locate("y")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSQLiteStoreConcurrentReadWrite(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Store(ctx, fmt.Sprintf("content-%d", i), "body")
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.List(ctx)
		}()
	}
	wg.Wait()

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
