package pagecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacetraveling/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type countingGenerator struct {
	calls    atomic.Int32
	notFound map[string]bool
	err      error
}

func (g *countingGenerator) Generate(_ context.Context, slug string) (*models.Page, error) {
	n := g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	if g.notFound[slug] {
		return &models.Page{NotFound: true}, nil
	}
	return &models.Page{HTML: "<h1>" + slug + "</h1>", DurationMs: int64(n)}, nil
}

type recorder struct {
	mu          sync.Mutex
	lookups     []string
	generations []string
}

func (r *recorder) ObserveGeneration(result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations = append(r.generations, result)
}

func (r *recorder) IncLookup(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, state)
}

func newCache(gen *countingGenerator) (*Cache, *MemoryStore, *fakeClock, *recorder) {
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Date(2021, 3, 15, 12, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	c := New(store, gen.Generate, WithClock(clock.Now), WithRecorder(rec))
	return c, store, clock, rec
}

func TestLookupFallbackThenFresh(t *testing.T) {
	gen := &countingGenerator{}
	c, _, _, rec := newCache(gen)
	ctx := context.Background()

	res, err := c.Lookup(ctx, "como-utilizar-hooks")
	require.NoError(t, err)
	assert.Equal(t, Fallback, res.State)
	assert.Nil(t, res.Page)

	c.Wait()
	res, err = c.Lookup(ctx, "como-utilizar-hooks")
	require.NoError(t, err)
	assert.Equal(t, Fresh, res.State)
	assert.Equal(t, "<h1>como-utilizar-hooks</h1>", res.Page.HTML)
	assert.Equal(t, "como-utilizar-hooks", res.Page.Slug)
	assert.Equal(t, int32(1), gen.calls.Load())
	assert.Equal(t, []string{"fallback", "fresh"}, rec.lookups)
	assert.Equal(t, []string{"ok"}, rec.generations)
}

func TestLookupStaleServesOldPageAndRegenerates(t *testing.T) {
	gen := &countingGenerator{}
	c, _, clock, _ := newCache(gen)
	ctx := context.Background()

	_, err := c.Revalidate(ctx, "slug")
	require.NoError(t, err)

	clock.Advance(DefaultTTL - time.Second)
	res, err := c.Lookup(ctx, "slug")
	require.NoError(t, err)
	assert.Equal(t, Fresh, res.State)

	clock.Advance(time.Second)
	res, err = c.Lookup(ctx, "slug")
	require.NoError(t, err)
	assert.Equal(t, Stale, res.State)
	assert.Equal(t, int64(1), res.Page.DurationMs)

	c.Wait()
	res, err = c.Lookup(ctx, "slug")
	require.NoError(t, err)
	assert.Equal(t, Fresh, res.State)
	assert.Equal(t, int64(2), res.Page.DurationMs)
}

func TestLookupNotFound(t *testing.T) {
	gen := &countingGenerator{notFound: map[string]bool{"sumiu": true}}
	c, store, _, rec := newCache(gen)
	ctx := context.Background()

	page, err := c.Revalidate(ctx, "sumiu")
	require.NoError(t, err)
	assert.True(t, page.NotFound)

	res, err := c.Lookup(ctx, "sumiu")
	require.NoError(t, err)
	assert.Equal(t, NotFound, res.State)
	assert.Equal(t, []string{"not_found"}, rec.generations)

	// 표시는 저장소에 남지 않는다.
	_, err = store.Get(ctx, "sumiu")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNotFoundMarkerExpires(t *testing.T) {
	gen := &countingGenerator{notFound: map[string]bool{"sumiu": true}}
	c, _, clock, _ := newCache(gen)
	ctx := context.Background()

	_, err := c.Revalidate(ctx, "sumiu")
	require.NoError(t, err)

	clock.Advance(DefaultTTL)
	res, err := c.Lookup(ctx, "sumiu")
	require.NoError(t, err)
	assert.Equal(t, NotFound, res.State)
	c.Wait()
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestUnpublishedPostIsDeleted(t *testing.T) {
	gen := &countingGenerator{notFound: map[string]bool{}}
	c, store, _, _ := newCache(gen)
	ctx := context.Background()

	_, err := c.Revalidate(ctx, "como-utilizar-hooks")
	require.NoError(t, err)
	_, err = store.Get(ctx, "como-utilizar-hooks")
	require.NoError(t, err)

	gen.notFound["como-utilizar-hooks"] = true
	_, err = c.Revalidate(ctx, "como-utilizar-hooks")
	require.NoError(t, err)

	_, err = store.Get(ctx, "como-utilizar-hooks")
	assert.ErrorIs(t, err, ErrMiss)
	res, err := c.Lookup(ctx, "como-utilizar-hooks")
	require.NoError(t, err)
	assert.Equal(t, NotFound, res.State)
}

func TestRepublishedPostClearsMarker(t *testing.T) {
	gen := &countingGenerator{notFound: map[string]bool{"volta": true}}
	c, _, _, _ := newCache(gen)
	ctx := context.Background()

	_, err := c.Revalidate(ctx, "volta")
	require.NoError(t, err)

	delete(gen.notFound, "volta")
	_, err = c.Revalidate(ctx, "volta")
	require.NoError(t, err)

	res, err := c.Lookup(ctx, "volta")
	require.NoError(t, err)
	assert.Equal(t, Fresh, res.State)
	_, marked := c.notFoundMarker("volta")
	assert.False(t, marked)
}

func TestNotFoundMarkersArePruned(t *testing.T) {
	gen := &countingGenerator{notFound: map[string]bool{"a": true, "b": true, "c": true}}
	c, _, clock, _ := newCache(gen)
	ctx := context.Background()

	for _, slug := range []string{"a", "b"} {
		_, err := c.Revalidate(ctx, slug)
		require.NoError(t, err)
	}
	clock.Advance(2 * DefaultTTL)
	_, err := c.Revalidate(ctx, "c")
	require.NoError(t, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.notFound, 1)
	assert.Contains(t, c.notFound, "c")
}

func TestBackgroundFailureKeepsStalePage(t *testing.T) {
	gen := &countingGenerator{}
	c, store, clock, rec := newCache(gen)
	ctx := context.Background()

	_, err := c.Revalidate(ctx, "slug")
	require.NoError(t, err)

	gen.err = errors.New("prismic down")
	clock.Advance(DefaultTTL)
	res, err := c.Lookup(ctx, "slug")
	require.NoError(t, err)
	assert.Equal(t, Stale, res.State)
	c.Wait()

	page, err := store.Get(ctx, "slug")
	require.NoError(t, err)
	assert.Equal(t, "<h1>slug</h1>", page.HTML)
	assert.Equal(t, []string{"ok", "error"}, rec.generations)
}

func TestRevalidatePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	c, store, _, _ := newCache(&countingGenerator{err: boom})

	_, err := c.Revalidate(context.Background(), "slug")
	assert.ErrorIs(t, err, boom)

	_, err = store.Get(context.Background(), "slug")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRevalidateCollapsesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	gen := func(_ context.Context, slug string) (*models.Page, error) {
		calls.Add(1)
		<-release
		return &models.Page{HTML: slug}, nil
	}
	c := New(NewMemoryStore(), gen)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Revalidate(context.Background(), "slug")
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestPrerenderAndMissing(t *testing.T) {
	gen := &countingGenerator{}
	c, _, _, _ := newCache(gen)
	ctx := context.Background()

	require.NoError(t, c.Prerender(ctx, []string{"a", "b", "c"}, 2))
	assert.Equal(t, int32(3), gen.calls.Load())

	missing, err := c.Missing(ctx, []string{"a", "d", "c", "e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, missing)
}

// getOnlyStore 는 SlugLister 가 아닌 Store 다.
type getOnlyStore struct{ *MemoryStore }

func (getOnlyStore) ListSlugs() {}

func TestMissingWithoutLister(t *testing.T) {
	store := getOnlyStore{NewMemoryStore()}
	require.NoError(t, store.Put(context.Background(), &models.Page{Slug: "a"}))
	c := New(store, (&countingGenerator{}).Generate)

	missing, err := c.Missing(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, missing)
}

func TestPrerenderBoundedConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	gen := func(_ context.Context, slug string) (*models.Page, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return &models.Page{}, nil
	}
	c := New(NewMemoryStore(), gen)

	require.NoError(t, c.Prerender(context.Background(), []string{"a", "b", "c", "d", "e", "f"}, 2))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPrerenderFailure(t *testing.T) {
	c, _, _, _ := newCache(&countingGenerator{err: errors.New("boom")})
	assert.Error(t, c.Prerender(context.Background(), []string{"a"}, 4))
}
