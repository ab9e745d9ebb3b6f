package delay_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/delay"
)

func TestSessionStep(t *testing.T) {
	d := newDispatchLog()
	sess := delay.NewSession(delay.DefaultConfig(), d, nil)
	ctx := context.Background()

	sess.SetNow(100)
	ev := delay.NewEvent("greet", 105, "say hi")
	assert.True(t, sess.Engine().Add(ev))

	for range 4 {
		assert.Equal(t, 0, sess.Step(ctx))
	}
	assert.Equal(t, delay.Tick(104), sess.Now())
	assert.Equal(t, 1, sess.Step(ctx))
	assert.Equal(t, []string{"greet"}, d.ids())
	assert.Equal(t, 0, sess.Scheduler().Len())

	assert.NoError(t, sess.Save(ctx))
	n, err := sess.Load(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, sess.Close(ctx))
}

func TestSessionPersistsAcrossRestart(t *testing.T) {
	store := delay.NewMemoryStore()
	ctx := context.Background()
	cfg := delay.DefaultConfig()

	first := delay.NewSession(cfg, newDispatchLog(), store)
	first.SetNow(40)
	ev := delay.NewEvent("foo", 60, "say quiet")
	ev.Priority = 5
	ev.Silent = true
	ev.Source = delay.Actor("steve")
	first.Engine().Add(ev)
	first.Engine().Add(delay.NewEvent("bar", 45, "reload"))
	require.NoError(t, first.Close(ctx))
	assert.ErrorIs(t, first.Save(ctx), delay.ErrSessionClosed)

	d := newDispatchLog()
	second := delay.NewSession(cfg, d, store,
		delay.WithResolver(delay.ResolverFunc(func(string) bool {
			return true
		})),
	)
	n, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, delay.Tick(40), second.Now())
	assert.Equal(t, []string{"foo", "bar"}, second.Scheduler().IDs())

	got, ok := second.Scheduler().Get("foo")
	require.True(t, ok)
	assert.Equal(t, ev, got)

	for range 20 {
		second.Step(ctx)
	}
	assert.Equal(t, []string{"bar", "foo"}, d.ids())
	assert.True(t, d.fired[1].Silent)
	require.NoError(t, second.Close(ctx))

	a, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, delay.Tick(60), a.Clock)
	assert.Empty(t, a.Records)
}

func TestSessionAutosaves(t *testing.T) {
	store := delay.NewMemoryStore()
	ctx := context.Background()
	cfg := delay.DefaultConfig()
	cfg.Autosave.EveryTicks = 3

	sess := delay.NewSession(cfg, newDispatchLog(), store)
	sess.Engine().Add(delay.NewEvent("later", 100, "x"))
	for range 3 {
		sess.Step(ctx)
	}

	assert.Eventually(t, func() bool {
		a, err := store.Load(ctx)
		return err == nil && a.Clock == 3 && len(a.Records) == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, sess.Close(ctx))
}

func TestSessionLoadFailure(t *testing.T) {
	store := delay.NewMemoryStore()
	require.NoError(t, store.Close())

	sess := delay.NewSession(delay.DefaultConfig(), newDispatchLog(), store)
	_, err := sess.Load(context.Background())
	assert.ErrorIs(t, err, delay.ErrStoreClosed)
	assert.NoError(t, sess.Close(context.Background()))
}

// unreliableStore fails Load while failLoad is set and counts saves
type unreliableStore struct {
	*delay.MemoryStore
	failLoad bool
	saves    int
}

func (u *unreliableStore) Load(ctx context.Context) (*delay.Archive, error) {
	if u.failLoad {
		return nil, errBoom
	}
	return u.MemoryStore.Load(ctx)
}

func (u *unreliableStore) Save(ctx context.Context, a *delay.Archive) error {
	u.saves++
	return u.MemoryStore.Save(ctx, a)
}

func TestSessionLoadFailureKeepsArchive(t *testing.T) {
	ctx := context.Background()
	store := &unreliableStore{MemoryStore: delay.NewMemoryStore()}
	kept, err := delay.NewArchive(30, []delay.Record{
		delay.NewRecord(delay.NewEvent("keep", 40, "say kept")),
	})
	require.NoError(t, err)
	require.NoError(t, store.MemoryStore.Save(ctx, kept))

	cfg := delay.DefaultConfig()
	cfg.Autosave.EveryTicks = 1
	store.failLoad = true
	sess := delay.NewSession(cfg, newDispatchLog(), store)
	_, err = sess.Load(ctx)
	require.ErrorIs(t, err, errBoom)

	sess.Engine().Add(delay.NewEvent("new", 100, "x"))
	sess.Step(ctx)
	err = sess.Save(ctx)
	assert.ErrorIs(t, err, delay.ErrLoadFailed)
	assert.ErrorIs(t, err, errBoom)
	require.NoError(t, sess.Close(ctx))
	assert.Zero(t, store.saves)

	store.failLoad = false
	a, err := store.MemoryStore.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, delay.Tick(30), a.Clock)
	require.Len(t, a.Records, 1)
	assert.Contains(t, string(a.Records[0]), `"keep"`)
}

func TestSessionLoadRetry(t *testing.T) {
	ctx := context.Background()
	store := &unreliableStore{MemoryStore: delay.NewMemoryStore(), failLoad: true}
	sess := delay.NewSession(delay.DefaultConfig(), newDispatchLog(), store)

	_, err := sess.Load(ctx)
	require.Error(t, err)
	store.failLoad = false
	_, err = sess.Load(ctx)
	require.NoError(t, err)
	assert.NoError(t, sess.Save(ctx))
	assert.Equal(t, 1, store.saves)
	require.NoError(t, sess.Close(ctx))
}
