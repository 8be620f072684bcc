package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	calls [][]Tag
	err   error
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, tags ...Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]Tag(nil), tags...))
	return r.err
}

func newTestStore(t *testing.T, mr *miniredis.Miniredis) *Store {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Minute)
}

func TestGraphCoversFinancialContract(t *testing.T) {
	tags, err := TagsFor(MutationReturnProcess)
	require.NoError(t, err)
	require.Subset(t, tags, []Tag{TagPurchaseReturns, TagPurchases, TagInventory, TagAccounts})

	tags, err = TagsFor(MutationPaymentCreate)
	require.NoError(t, err)
	require.Subset(t, tags, []Tag{TagPurchases, TagSales, TagSuppliers, TagPayments})

	for _, m := range []Mutation{MutationPurchaseCreate, MutationPurchaseUpdate, MutationPurchaseReceive} {
		tags, err = TagsFor(m)
		require.NoError(t, err)
		require.Contains(t, tags, TagPurchases)
	}
	tags, err = TagsFor(MutationPurchaseReceive)
	require.NoError(t, err)
	require.Contains(t, tags, TagProducts)

	for _, m := range []Mutation{MutationReturnCreate, MutationReturnApprove, MutationReturnCancel} {
		tags, err = TagsFor(m)
		require.NoError(t, err)
		require.Subset(t, tags, []Tag{TagPurchaseReturns, TagPurchases, TagInventory})
	}
	for _, m := range []Mutation{MutationAccountAddCash, MutationAccountAddBank, MutationAccountFundTransfer} {
		tags, err = TagsFor(m)
		require.NoError(t, err)
		require.Contains(t, tags, TagAccounts)
	}
	for _, m := range []Mutation{MutationProductCreate, MutationProductUpdate, MutationProductDelete} {
		tags, err = TagsFor(m)
		require.NoError(t, err)
		require.Subset(t, tags, []Tag{TagProducts, TagSuppliers})
	}
	tags, err = TagsFor(MutationSaleCreate)
	require.NoError(t, err)
	require.Contains(t, tags, TagSales)
}

func TestGraphIsSortedAndComplete(t *testing.T) {
	entries := Graph()
	require.Len(t, entries, len(invalidationGraph))
	for i := 1; i < len(entries); i++ {
		require.Less(t, string(entries[i-1].Mutation), string(entries[i].Mutation))
	}
	known := map[Tag]bool{}
	for _, tag := range AllTags() {
		known[tag] = true
	}
	for _, entry := range entries {
		require.NotEmpty(t, entry.Tags)
		for _, tag := range entry.Tags {
			require.Truef(t, known[tag], "tag %s missing from AllTags", tag)
		}
	}

	_, err := TagsFor("nope")
	require.ErrorIs(t, err, ErrUnknownMutation)
}

func TestDispatcherInvalidatesAndNotifies(t *testing.T) {
	inv := &recordingInvalidator{}
	var observed []Tag
	d := NewDispatcher(inv, nil, ObserverFunc(func(ctx context.Context, m Mutation, tags []Tag) {
		require.Equal(t, MutationReturnProcess, m)
		observed = tags
	}))

	tags, err := d.Dispatch(context.Background(), MutationReturnProcess)
	require.NoError(t, err)
	require.Len(t, inv.calls, 1)
	require.ElementsMatch(t, tags, inv.calls[0])
	require.Equal(t, tags, observed)
}

func TestDispatcherSurfacesInvalidatorFailure(t *testing.T) {
	inv := &recordingInvalidator{err: errors.New("redis down")}
	called := false
	d := NewDispatcher(inv, nil, ObserverFunc(func(context.Context, Mutation, []Tag) { called = true }))

	_, err := d.Dispatch(context.Background(), MutationPaymentCreate)
	require.Error(t, err)
	require.False(t, called)

	_, err = d.Dispatch(context.Background(), Mutation("unknown"))
	require.ErrorIs(t, err, ErrUnknownMutation)
}

func TestSettleSurvivesCancelledRequest(t *testing.T) {
	store := newTestStore(t, miniredis.RunT(t))
	var observed []Tag
	d := NewDispatcher(store, nil, ObserverFunc(func(ctx context.Context, m Mutation, tags []Tag) {
		require.NoError(t, ctx.Err())
		observed = tags
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tags := d.Settle(ctx, MutationReturnProcess)
	require.Subset(t, tags, []Tag{TagPurchaseReturns, TagPurchases, TagInventory, TagAccounts})
	require.Equal(t, tags, observed)

	for _, tag := range tags {
		ver, err := store.Version(context.Background(), tag)
		require.NoError(t, err)
		require.EqualValuesf(t, 1, ver, "tag %s", tag)
	}
}

func TestStoreFetchCachesUntilInvalidated(t *testing.T) {
	store := newTestStore(t, miniredis.RunT(t))
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]int{"balance": calls}, nil
	}

	var got map[string]int
	require.NoError(t, store.FetchJSON(ctx, TagAccounts, []string{"list"}, &got, loader))
	require.NoError(t, store.FetchJSON(ctx, TagAccounts, []string{"list"}, &got, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, 1, got["balance"])

	require.NoError(t, store.Invalidate(ctx, TagSales))
	require.NoError(t, store.FetchJSON(ctx, TagAccounts, []string{"list"}, &got, loader))
	require.Equal(t, 1, calls, "unrelated tag must not evict")

	require.NoError(t, store.Invalidate(ctx, TagAccounts, TagJournal))
	require.NoError(t, store.FetchJSON(ctx, TagAccounts, []string{"list"}, &got, loader))
	require.Equal(t, 2, calls)
	require.Equal(t, 2, got["balance"])

	ver, err := store.Version(ctx, TagAccounts)
	require.NoError(t, err)
	require.EqualValues(t, 1, ver)
}

func TestStoreIgnoresLoadStartedBeforeInvalidation(t *testing.T) {
	store := newTestStore(t, miniredis.RunT(t))
	ctx := context.Background()

	var got []string
	err := store.FetchJSON(ctx, TagPurchases, []string{"page", "1"}, &got, func(ctx context.Context) (any, error) {
		// a payment settles while this read is in flight
		require.NoError(t, store.Invalidate(ctx, TagPurchases))
		return []string{"stale"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"stale"}, got)

	err = store.FetchJSON(ctx, TagPurchases, []string{"page", "1"}, &got, func(context.Context) (any, error) {
		return []string{"fresh"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"fresh"}, got)
}

func TestStoreBroadcastsToOtherInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newTestStore(t, mr)
	b := newTestStore(t, mr)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var local, remote atomic.Int32
	a.OnInvalidate(func(tags []Tag) { local.Add(int32(len(tags))) })
	b.OnInvalidate(func(tags []Tag) { remote.Add(int32(len(tags))) })
	require.NoError(t, a.ListenForInvalidation(ctx))
	require.NoError(t, b.ListenForInvalidation(ctx))

	require.NoError(t, a.Invalidate(ctx, TagAccounts, TagJournal))
	require.Eventually(t, func() bool { return remote.Load() == 2 }, time.Second, 10*time.Millisecond)
	require.EqualValues(t, 2, local.Load())
}

func TestStoreWithoutRedisCallsLoader(t *testing.T) {
	store := NewStore(nil, time.Minute)
	ctx := context.Background()
	calls := 0
	var got int
	for i := 0; i < 2; i++ {
		require.NoError(t, store.FetchJSON(ctx, TagProducts, nil, &got, func(context.Context) (any, error) {
			calls++
			return calls, nil
		}))
	}
	require.Equal(t, 2, calls)
	require.Equal(t, 2, got)

	notified := false
	store.OnInvalidate(func([]Tag) { notified = true })
	require.NoError(t, store.Invalidate(ctx, TagProducts))
	require.True(t, notified)
}
