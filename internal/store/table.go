package store

import (
	"log/slog"
	"sort"

	"github.com/roach88/strata/internal/types"
)

// IndexTable holds the time buckets of one (entity, timeline), ordered by key.
//
// Buckets partition the timeline: bucket i holds every row whose time lies
// in [key(i), key(i+1)). A single time never straddles two buckets.
type IndexTable struct {
	entity   types.EntityPath
	timeline types.Timeline
	buckets  []*bucket
	limit    int
	numRows  int

	warnedUnsplittable bool
	logger             *slog.Logger
	metrics            *Metrics
}

func newIndexTable(entity types.EntityPath, timeline types.Timeline, limit int, logger *slog.Logger, metrics *Metrics) *IndexTable {
	return &IndexTable{
		entity:   entity,
		timeline: timeline,
		buckets:  []*bucket{newBucket(types.MinTime)},
		limit:    limit,
		logger:   logger,
		metrics:  metrics,
	}
}

// findBucket returns the index of the bucket with the greatest key <= t.
func (t *IndexTable) findBucket(at types.TimeInt) int {
	i := sort.Search(len(t.buckets), func(i int) bool { return t.buckets[i].key > at })
	return i - 1
}

// insert routes the row into its bucket, splitting the bucket first if it
// is over the limit.
func (t *IndexTable) insert(at types.TimeInt, row types.DataRow) {
	for {
		i := t.findBucket(at)
		b := t.buckets[i]

		if b.len() <= t.limit {
			b.push(at, row)
			break
		}

		b.sort()
		if idx, ok := b.splitIndex(); ok {
			upper := b.split(idx)
			t.addBucket(i+1, upper)
			t.metrics.bucketSplit()
			t.logger.Debug("bucket split",
				"entity", t.entity.String(),
				"timeline", t.timeline.Name,
				"lower_key", b.key,
				"upper_key", upper.key,
				"lower_rows", b.len(),
				"upper_rows", upper.len(),
			)
			continue
		}

		last := b.times[b.len()-1]
		if b.len() > 2 && at > last {
			t.addBucket(i+1, newBucket(last+1))
			t.metrics.bucketCreated()
			t.logger.Debug("bucket created past unsplittable bucket",
				"entity", t.entity.String(),
				"timeline", t.timeline.Name,
				"key", last+1,
			)
			continue
		}

		if b.singleTime() && !t.warnedUnsplittable {
			t.warnedUnsplittable = true
			t.logger.Warn("bucket holds a single repeated time and cannot be split",
				"entity", t.entity.String(),
				"timeline", t.timeline.Name,
				"time", last,
				"rows", b.len(),
				"limit", t.limit,
			)
		}
		b.push(at, row)
		break
	}
	t.numRows++
}

func (t *IndexTable) addBucket(at int, b *bucket) {
	t.buckets = append(t.buckets, nil)
	copy(t.buckets[at+1:], t.buckets[at:])
	t.buckets[at] = b
}

// remove deletes the row logged at the given time. Buckets are kept even
// when they become empty.
func (t *IndexTable) remove(at types.TimeInt, id types.RowID) bool {
	if t.buckets[t.findBucket(at)].remove(id) {
		t.numRows--
		return true
	}
	return false
}

// sort sorts every unsorted bucket and returns how many were touched.
func (t *IndexTable) sort() int {
	n := 0
	for _, b := range t.buckets {
		if b.sort() {
			n++
		}
	}
	return n
}

// NumBuckets returns the number of buckets, including empty ones.
func (t *IndexTable) NumBuckets() int {
	return len(t.buckets)
}

// NumRows returns the number of rows across all buckets.
func (t *IndexTable) NumRows() int {
	return t.numRows
}
