package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/query"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/types"
)

var frameNr = types.NewSequenceTimeline("frame_nr")

const (
	compPosition types.ComponentName = "strata.components.Position2D"
	compColor    types.ComponentName = "strata.components.Color"
	compImage    types.ComponentName = "strata.components.ImageBuffer"
)

var (
	points = types.ParseEntityPath("points")
	boxes  = types.ParseEntityPath("boxes")
)

type fixture struct {
	t        *testing.T
	store    *store.Store
	cache    *Cache
	resolver *query.CountingResolver
	nextID   uint64
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	s := store.New("rec")
	r := query.NewCountingResolver(nil)
	c := New(s, append([]Option{WithResolver(r)}, opts...)...)
	t.Cleanup(c.Close)
	return &fixture{t: t, store: s, cache: c, resolver: r, nextID: 1}
}

func (f *fixture) insert(entity types.EntityPath, at types.TimeInt, component types.ComponentName, cell types.Cell) {
	f.t.Helper()
	row := types.NewDataRow(types.RowIDFromUint64(f.nextID), entity, types.TimePoint{frameNr: at}, component, cell)
	f.nextID++
	require.NoError(f.t, f.store.Insert(row))
}

func (f *fixture) scans() int64 {
	return f.resolver.LatestAtCalls() + f.resolver.RangeCalls()
}

func latestAtQuery(at types.TimeInt) query.LatestAtQuery {
	return query.LatestAtQuery{Timeline: frameNr, At: at}
}

func TestCacheIdempotentQueries(t *testing.T) {
	f := newFixture(t)
	f.insert(points, 1, compPosition, types.Float64s{1, 2})
	f.insert(points, 5, compPosition, types.Float64s{3, 4})

	first := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(10), compPosition, Float64Decoder())
	second := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(10), compPosition, Float64Decoder())

	assert.Equal(t, int64(1), f.resolver.LatestAtCalls(), "second query must not rescan")
	assert.Equal(t, first, second)
	require.True(t, first.Found)
	vals, ok := first.Values.Value()
	require.True(t, ok)
	assert.Equal(t, []float64{3, 4}, vals)
	assert.Equal(t, types.TimeInt(5), first.Index.Time)

	st := f.cache.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Resolutions)
	assert.Equal(t, 1, st.Entries)
}

func TestCacheDistinctShapesAreDistinctEntries(t *testing.T) {
	f := newFixture(t)
	f.insert(points, 1, compPosition, types.Float64s{1})
	f.insert(points, 5, compPosition, types.Float64s{5})

	early := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(2), compPosition, Float64Decoder())
	late := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(9), compPosition, Float64Decoder())

	e, _ := early.Values.Value()
	l, _ := late.Values.Value()
	assert.Equal(t, []float64{1}, e)
	assert.Equal(t, []float64{5}, l)
	assert.Equal(t, int64(2), f.scans())
	assert.Equal(t, 2, f.cache.Len())
}

func TestCacheSameNameTimelinesAreDistinctEntries(t *testing.T) {
	f := newFixture(t)
	frameAsTime := types.NewTimeTimeline("frame_nr")

	seqRow := types.NewDataRow(types.RowIDFromUint64(1), points, types.TimePoint{frameNr: 5}, compPosition, types.Float64s{1})
	timeRow := types.NewDataRow(types.RowIDFromUint64(2), points, types.TimePoint{frameAsTime: 5}, compPosition, types.Float64s{2})
	require.NoError(t, f.store.InsertBatch([]types.DataRow{seqRow, timeRow}))

	view := f.store.Sorted()
	onSeq := LatestAt(f.cache, view, points, query.LatestAtQuery{Timeline: frameNr, At: 5}, compPosition, Float64Decoder())
	onTime := LatestAt(f.cache, view, points, query.LatestAtQuery{Timeline: frameAsTime, At: 5}, compPosition, Float64Decoder())

	seqVals, _ := onSeq.Values.Value()
	timeVals, _ := onTime.Values.Value()
	assert.Equal(t, []float64{1}, seqVals)
	assert.Equal(t, []float64{2}, timeVals)
	assert.Equal(t, int64(2), f.resolver.LatestAtCalls())

	span := types.NewTimeRange(0, 10)
	seqRange := Range(f.cache, view, points, query.RangeQuery{Timeline: frameNr, Range: span}, compPosition, Float64Decoder())
	timeRange := Range(f.cache, view, points, query.RangeQuery{Timeline: frameAsTime, Range: span}, compPosition, Float64Decoder())

	sr, ok := seqRange.Value()
	require.True(t, ok)
	tr, ok := timeRange.Value()
	require.True(t, ok)
	require.Len(t, sr, 1)
	require.Len(t, tr, 1)
	assert.Equal(t, types.RowIDFromUint64(1), sr[0].Index.RowID)
	assert.Equal(t, types.RowIDFromUint64(2), tr[0].Index.RowID)
}

func TestCacheAbsentComponentIsCached(t *testing.T) {
	f := newFixture(t)
	f.insert(points, 1, compPosition, types.Float64s{1})

	for i := 0; i < 3; i++ {
		v := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(10), compColor, Int64Decoder())
		assert.False(t, v.Found)
	}
	assert.Equal(t, int64(1), f.scans())
}

func TestCacheInvalidationIsPrecise(t *testing.T) {
	f := newFixture(t)
	f.insert(points, 1, compPosition, types.Float64s{1})
	f.insert(points, 1, compColor, types.Int64s{7})
	f.insert(boxes, 1, compPosition, types.Float64s{9})

	runQueries := func() {
		view := f.store.Sorted()
		LatestAt(f.cache, view, points, latestAtQuery(10), compPosition, Float64Decoder())
		LatestAt(f.cache, view, points, latestAtQuery(10), compColor, Int64Decoder())
		LatestAt(f.cache, view, boxes, latestAtQuery(10), compPosition, Float64Decoder())
	}
	runQueries()
	require.Equal(t, int64(3), f.scans())

	f.insert(points, 2, compPosition, types.Float64s{2})

	assert.False(t, f.cache.Contains(points, compPosition), "touched pair is evicted")
	assert.True(t, f.cache.Contains(points, compColor), "same entity, other component survives")
	assert.True(t, f.cache.Contains(boxes, compPosition), "same component, other entity survives")

	runQueries()
	assert.Equal(t, int64(4), f.scans(), "only the evicted pair is rescanned")
	assert.Equal(t, int64(1), f.cache.Stats().Evictions)

	v := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(10), compPosition, Float64Decoder())
	vals, _ := v.Values.Value()
	assert.Equal(t, []float64{2}, vals, "stale entries are never returned")
}

func TestCacheRange(t *testing.T) {
	f := newFixture(t)
	for i := types.TimeInt(0); i < 10; i++ {
		f.insert(points, i, compPosition, types.Float64s{float64(i)})
	}

	q := query.RangeQuery{Timeline: frameNr, Range: types.NewTimeRange(3, 6)}
	p := Range(f.cache, f.store.Sorted(), points, q, compPosition, Float64Decoder())
	again := Range(f.cache, f.store.Sorted(), points, q, compPosition, Float64Decoder())

	require.True(t, p.IsReady())
	rows, _ := p.Value()
	require.Len(t, rows, 4)
	for i, r := range rows {
		assert.Equal(t, types.TimeInt(3+i), r.Index.Time)
		assert.Equal(t, []float64{float64(3 + i)}, r.Values)
	}
	assert.Equal(t, p, again)
	assert.Equal(t, int64(1), f.resolver.RangeCalls())

	empty := Range(f.cache, f.store.Sorted(), boxes, q, compPosition, Float64Decoder())
	require.True(t, empty.IsReady())
	rows, _ = empty.Value()
	assert.Empty(t, rows)
}

// fakeBlobs is a BlobSource whose blobs become available on demand.
type fakeBlobs struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	failing map[string]error
	fetches int
}

func (b *fakeBlobs) Fetch(key string) Promise[[]byte] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	if err, ok := b.failing[key]; ok {
		return FailedPromise[[]byte](err)
	}
	if data, ok := b.blobs[key]; ok {
		return ReadyPromise(data)
	}
	return PendingPromise[[]byte]()
}

func (b *fakeBlobs) put(key string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = data
}

func TestCachePendingResolvesWithoutRescan(t *testing.T) {
	f := newFixture(t)
	blobs := &fakeBlobs{blobs: map[string][]byte{}, failing: map[string]error{}}
	f.insert(points, 1, compImage, types.BlobRefs{"img-1"})
	dec := BlobDecoder(blobs)

	v := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(1), compImage, dec)
	require.True(t, v.Found)
	assert.True(t, v.Values.IsPending())
	assert.Equal(t, Pending, v.Values.Outcome())

	v = LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(1), compImage, dec)
	assert.True(t, v.Values.IsPending(), "still pending until the blob arrives")

	blobs.put("img-1", []byte{0xca, 0xfe})
	v = LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(1), compImage, dec)
	require.True(t, v.Values.IsReady())
	data, _ := v.Values.Value()
	assert.Equal(t, [][]byte{{0xca, 0xfe}}, data)

	fetches := blobs.fetches
	LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(1), compImage, dec)
	assert.Equal(t, fetches, blobs.fetches, "ready outcomes are memoised")
	assert.Equal(t, int64(1), f.scans(), "polling a pending entry never rescans the store")
}

func TestCacheFailureIsMemoisedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	var decodes atomic.Int64
	boom := errors.New("corrupt payload")
	dec := NewDecoder("always-fails", func(types.Cell) Promise[[]int64] {
		decodes.Add(1)
		return FailedPromise[[]int64](&DecodeError{Decoder: "always-fails", DataType: types.DataTypeInt64, Err: boom})
	})
	f.insert(points, 1, compColor, types.Int64s{1})

	for i := 0; i < 3; i++ {
		v := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(5), compColor, dec)
		require.True(t, v.Values.IsFailed())
		assert.True(t, IsDecodeError(v.Values.Err()))
		assert.ErrorIs(t, v.Values.Err(), boom)
	}
	assert.Equal(t, int64(1), decodes.Load(), "a failed decode is not retried")

	f.insert(points, 2, compColor, types.Int64s{2})
	LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(5), compColor, dec)
	assert.Equal(t, int64(2), decodes.Load(), "invalidation clears the failure")
}

func TestCacheWrongDecoderFails(t *testing.T) {
	f := newFixture(t)
	f.insert(points, 1, compColor, types.Int64s{1})

	v := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(5), compColor, StringDecoder())
	require.True(t, v.Values.IsFailed())
	var de *DecodeError
	require.ErrorAs(t, v.Values.Err(), &de)
	assert.Equal(t, compColor, de.Component)
	assert.Equal(t, types.DataTypeInt64, de.DataType)

	ok := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(5), compColor, Int64Decoder())
	assert.True(t, ok.Values.IsReady(), "decoders are memoised independently")
	assert.Equal(t, int64(1), f.scans())
}

func TestCacheDecodedValuesDoNotAliasStore(t *testing.T) {
	f := newFixture(t)
	f.insert(points, 1, compPosition, types.Float64s{1, 2})
	f.insert(boxes, 1, compImage, types.Blobs{[]byte("raw")})

	v := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(5), compPosition, Float64Decoder())
	vals, ok := v.Values.Value()
	require.True(t, ok)
	vals[0] = 99

	blobs := LatestAt(f.cache, f.store.Sorted(), boxes, latestAtQuery(5), compImage, BlobDecoder(nil))
	bs, ok := blobs.Values.Value()
	require.True(t, ok)
	bs[0][0] = 'X'

	res := query.LatestAt(f.store.Sorted(), points, latestAtQuery(5), compPosition)
	got, ok := res.Get(compPosition)
	require.True(t, ok)
	assert.Equal(t, types.Float64s{1, 2}, got.Cell)

	res = query.LatestAt(f.store.Sorted(), boxes, latestAtQuery(5), compImage)
	gotBlob, ok := res.Get(compImage)
	require.True(t, ok)
	assert.Equal(t, types.Blobs{[]byte("raw")}, gotBlob.Cell)
}

func TestCacheBlobFetchFailure(t *testing.T) {
	f := newFixture(t)
	blobs := &fakeBlobs{blobs: map[string][]byte{}, failing: map[string]error{"bad": errors.New("404")}}
	f.insert(points, 1, compImage, types.BlobRefs{"bad"})

	v := LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(1), compImage, BlobDecoder(blobs))
	require.True(t, v.Values.IsFailed())
	assert.Contains(t, v.Values.Err().Error(), "404")
}

func TestCacheRangePendingRow(t *testing.T) {
	f := newFixture(t)
	blobs := &fakeBlobs{blobs: map[string][]byte{"a": {1}}, failing: map[string]error{}}
	f.insert(points, 1, compImage, types.BlobRefs{"a"})
	f.insert(points, 2, compImage, types.BlobRefs{"b"})
	f.insert(points, 3, compImage, types.Blobs{{3}})

	q := query.RangeQuery{Timeline: frameNr, Range: types.EverythingRange()}
	p := Range(f.cache, f.store.Sorted(), points, q, compImage, BlobDecoder(blobs))
	assert.True(t, p.IsPending())

	blobs.put("b", []byte{2})
	p = Range(f.cache, f.store.Sorted(), points, q, compImage, BlobDecoder(blobs))
	require.True(t, p.IsReady())
	rows, _ := p.Value()
	require.Len(t, rows, 3)
	assert.Equal(t, [][]byte{{2}}, rows[1].Values)
	assert.Equal(t, int64(1), f.resolver.RangeCalls())
}

func TestCacheConcurrentQueriesResolveOnce(t *testing.T) {
	s := store.New("rec")
	sh := store.NewShared(s)
	r := query.NewCountingResolver(nil)
	c := New(sh, WithResolver(r), WithShards(4))
	defer c.Close()

	require.NoError(t, sh.Write(func(s *store.Store) error {
		return s.Insert(types.NewDataRow(types.RowIDFromUint64(1), points,
			types.TimePoint{frameNr: 1}, compPosition, types.Float64s{1}))
	}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := sh.Read(func(v *store.View) error {
				res := LatestAt(c, v, points, latestAtQuery(1), compPosition, Float64Decoder())
				assert.True(t, res.Values.IsReady())
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), r.LatestAtCalls())
	assert.Equal(t, int64(32), c.Stats().Hits+c.Stats().Misses)
}

func TestCacheIgnoresOtherStores(t *testing.T) {
	reg := store.NewRegistry()
	a := store.New("a", store.WithRegistry(reg))
	b := store.New("b", store.WithRegistry(reg))
	c := New(a)
	defer c.Close()

	require.NoError(t, a.Insert(types.NewDataRow(types.RowIDFromUint64(1), points,
		types.TimePoint{frameNr: 1}, compPosition, types.Float64s{1})))
	LatestAt(c, a.Sorted(), points, latestAtQuery(1), compPosition, Float64Decoder())

	require.NoError(t, b.Insert(types.NewDataRow(types.RowIDFromUint64(2), points,
		types.TimePoint{frameNr: 1}, compPosition, types.Float64s{2})))
	assert.True(t, c.Contains(points, compPosition), "events of another store do not evict")
}

func TestCacheCloseUnregisters(t *testing.T) {
	s := store.New("rec")
	c := New(s)
	require.Equal(t, 1, s.Registry().Len())

	got, ok := store.Lookup[*Cache](s.Registry(), c.Handle())
	require.True(t, ok)
	assert.Same(t, c, got)

	c.Close()
	c.Close()
	assert.Equal(t, 0, s.Registry().Len())
	assert.Equal(t, 0, c.Len())
}

func TestCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "rec")
	require.NoError(t, err)
	f := newFixture(t, WithMetrics(m))
	f.insert(points, 1, compPosition, types.Float64s{1})

	LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(1), compPosition, Float64Decoder())
	LatestAt(f.cache, f.store.Sorted(), points, latestAtQuery(1), compPosition, Float64Decoder())
	f.insert(points, 2, compPosition, types.Float64s{2})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.hits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.misses))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.resolutions))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.evictions))
}

func TestPromiseStates(t *testing.T) {
	var zero Promise[int]
	assert.True(t, zero.IsPending())

	ready := ReadyPromise(3)
	v, ok := ready.Value()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.NoError(t, ready.Err())

	failed := FailedPromise[int](errors.New("x"))
	_, ok = failed.Value()
	assert.False(t, ok)
	assert.Equal(t, "failed", failed.Outcome().String())

	doubled := MapPromise(ready, func(i int) int { return i * 2 })
	v, _ = doubled.Value()
	assert.Equal(t, 6, v)
	assert.True(t, MapPromise(failed, func(i int) string { return "" }).IsFailed())
	assert.True(t, MapPromise(PendingPromise[int](), func(i int) string { return "" }).IsPending())
}
