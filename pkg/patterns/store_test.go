package patterns

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/entrhq/envwarn/pkg/config"
	"github.com/entrhq/envwarn/pkg/environment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	changed int
}

func (n *recordingNotifier) NotifyPatternsChanged(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed++
}

func (n *recordingNotifier) NotifyEnvironmentDetected(ctx context.Context, env environment.Environment, contextID string) {
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.changed
}

// brokenStore accepts section updates but never persists them.
type brokenStore struct {
	*config.FileStore
}

func (s *brokenStore) Save() error {
	return errors.New("disk full")
}

func newManager(t *testing.T, store config.Store) *config.Manager {
	t.Helper()
	manager := config.NewManager(store)
	require.NoError(t, manager.RegisterSection(config.NewPatternsSection()))
	return manager
}

func newFileStore(t *testing.T) *config.FileStore {
	t.Helper()
	store, err := config.NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	return store
}

func TestStore_LoadDefaultsWhenUnconfigured(t *testing.T) {
	store := NewStore(newManager(t, newFileStore(t)), nil, nil)

	assert.False(t, store.Configured())
	assert.Equal(t, environment.DefaultPatterns(), store.Load())
}

func TestStore_LoadWithoutManager(t *testing.T) {
	store := NewStore(nil, nil, nil)
	assert.Equal(t, environment.DefaultPatterns(), store.Load())

	err := store.Save(context.Background(), environment.PatternSet{})
	var persistErr *PersistError
	assert.ErrorAs(t, err, &persistErr)
}

func TestStore_SaveRoundTripsAndNotifies(t *testing.T) {
	fileStore := newFileStore(t)
	notifier := &recordingNotifier{}
	store := NewStore(newManager(t, fileStore), notifier, nil)

	set := environment.PatternSet{
		environment.Production: {`^shop\.example\.com$`},
		environment.Staging:    {`\.stage\.`, `[invalid`},
	}
	require.NoError(t, store.Save(context.Background(), set))
	assert.Equal(t, 1, notifier.count())
	assert.True(t, store.Configured())

	loaded := store.Load()
	assert.Equal(t, []string{`^shop\.example\.com$`}, loaded[environment.Production])
	assert.Equal(t, []string{`\.stage\.`, `[invalid`}, loaded[environment.Staging], "invalid patterns are stored as given")
	assert.Empty(t, loaded[environment.Development])
	assert.Empty(t, loaded[environment.Test])

	// A fresh manager over the same file sees the saved set.
	reopened, err := config.NewFileStore(fileStore.Path())
	require.NoError(t, err)
	manager := newManager(t, reopened)
	require.NoError(t, manager.LoadAll())
	assert.True(t, NewStore(manager, nil, nil).Load().Equal(loaded))
}

func TestStore_SaveFailureKeepsPreviousSet(t *testing.T) {
	notifier := &recordingNotifier{}
	store := NewStore(newManager(t, &brokenStore{FileStore: newFileStore(t)}), notifier, nil)

	err := store.Save(context.Background(), environment.PatternSet{
		environment.Production: {`never-saved`},
	})

	var persistErr *PersistError
	require.ErrorAs(t, err, &persistErr)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, notifier.count())
	assert.False(t, store.Configured())
	assert.Equal(t, environment.DefaultPatterns(), store.Load())
}

func TestStore_EditOperations(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newManager(t, newFileStore(t)), nil, nil)

	require.NoError(t, store.Save(ctx, environment.PatternSet{
		environment.Test: {`a`, `b`, `c`},
	}))

	require.NoError(t, store.Add(ctx, environment.Test, `d`))
	require.NoError(t, store.Update(ctx, environment.Test, 0, `z`))
	require.NoError(t, store.Remove(ctx, environment.Test, 1))
	assert.Equal(t, []string{`z`, `c`, `d`}, store.Load()[environment.Test])

	assert.Error(t, store.Remove(ctx, environment.Test, 5))
	assert.Error(t, store.Update(ctx, environment.Staging, 0, `x`))
	assert.Error(t, store.Add(ctx, environment.Unrecognized, `x`))
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newManager(t, newFileStore(t)), nil, nil)

	require.NoError(t, store.Save(ctx, environment.PatternSet{environment.Test: {`only`}}))
	require.NoError(t, store.Reset(ctx))
	assert.True(t, store.Load().Equal(environment.DefaultPatterns()))
}

func TestStore_MatchCounts(t *testing.T) {
	store := NewStore(newManager(t, newFileStore(t)), nil, nil)

	counts, err := store.MatchCounts("https://api.prod.example.com/")
	require.NoError(t, err)
	assert.Equal(t, 2, counts[environment.Production], `\.prod\. and \.com$`)
	assert.Equal(t, 0, counts[environment.Staging])

	_, err = store.MatchCounts("")
	assert.ErrorIs(t, err, environment.ErrNoActiveURL)
}

func TestInvalid(t *testing.T) {
	invalid := Invalid(environment.PatternSet{
		environment.Production: {`ok`, `(`},
		environment.Test:       {``},
	})

	require.Len(t, invalid, 2)
	assert.Equal(t, InvalidPattern{Environment: environment.Production, Index: 1, Pattern: `(`}, invalid[0])
	assert.Equal(t, environment.Test, invalid[1].Environment)
}

func TestStore_ExportImport(t *testing.T) {
	ctx := context.Background()
	source := NewStore(newManager(t, newFileStore(t)), nil, nil)

	var buf bytes.Buffer
	require.NoError(t, source.Export(&buf))
	out := buf.String()
	assert.True(t, strings.Index(out, "production:") < strings.Index(out, "staging:"))
	assert.True(t, strings.Index(out, "development:") < strings.Index(out, "test:"))

	notifier := &recordingNotifier{}
	target := NewStore(newManager(t, newFileStore(t)), notifier, nil)
	require.NoError(t, target.Import(ctx, &buf))
	assert.Equal(t, 1, notifier.count())
	assert.True(t, target.Load().Equal(environment.DefaultPatterns()))
}

func TestDecodeYAML(t *testing.T) {
	t.Run("missing environments are empty", func(t *testing.T) {
		set, err := DecodeYAML(strings.NewReader("staging:\n  - '\\.stg\\.'\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{`\.stg\.`}, set[environment.Staging])
		assert.Equal(t, []string{}, set[environment.Production])
	})

	t.Run("unknown keys rejected", func(t *testing.T) {
		_, err := DecodeYAML(strings.NewReader("prodution:\n  - x\n"))
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := DecodeYAML(strings.NewReader("production: [unterminated"))
		assert.Error(t, err)
	})
}
