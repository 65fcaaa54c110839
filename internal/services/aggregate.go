package services

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// windowQuery describes a count/sum/distinct aggregate over rows of one table
// whose timeColumn falls inside Window. A zero Window matches every row.
type windowQuery struct {
	Model      any
	TimeColumn string
	Window     Window
	SumColumn  string
	Distinct   string
	Where      []cond
}

type cond struct {
	Query string
	Args  []any
}

func where(query string, args ...any) cond {
	return cond{Query: query, Args: args}
}

type aggregate struct {
	N     int64
	Total decimal.Decimal
	Uniq  int64
}

// windowAggregate runs one SELECT producing the count, the optional sum and
// the optional distinct count. Every windowed figure in the stats payloads
// goes through here so the time bounds are applied the same way.
func windowAggregate(tx *gorm.DB, q windowQuery) (aggregate, error) {
	col := q.TimeColumn
	if col == "" {
		col = "created_at"
	}
	sel := "COUNT(*) AS n"
	if q.SumColumn != "" {
		sel += ", COALESCE(SUM(" + q.SumColumn + "), 0) AS total"
	} else {
		sel += ", 0 AS total"
	}
	if q.Distinct != "" {
		sel += ", COUNT(DISTINCT " + q.Distinct + ") AS uniq"
	} else {
		sel += ", 0 AS uniq"
	}

	db := tx.Model(q.Model).Select(sel)
	if q.Window != (Window{}) {
		db = db.Where(col+" >= ? AND "+col+" < ?", q.Window.Start, q.Window.End)
	}
	for _, c := range q.Where {
		db = db.Where(c.Query, c.Args...)
	}

	var out aggregate
	if err := db.Scan(&out).Error; err != nil {
		return aggregate{}, storeErr(err, nil, "aggregate")
	}
	return out, nil
}

// countIn is windowAggregate reduced to its count.
func countIn(tx *gorm.DB, model any, col string, w Window, conds ...cond) (int64, error) {
	agg, err := windowAggregate(tx, windowQuery{Model: model, TimeColumn: col, Window: w, Where: conds})
	return agg.N, err
}

// bucket accumulates one group of a rollup.
type bucket struct {
	Count  int64
	Sum    decimal.Decimal
	First  time.Time
	Latest time.Time
	actors map[uuid.UUID]struct{}
	items  map[uuid.UUID]struct{}
}

func (b *bucket) Average() decimal.Decimal { return Average(b.Sum, b.Count) }

// Actors is the number of distinct actors (donors) seen in the bucket.
func (b *bucket) Actors() int64 { return int64(len(b.actors)) }

// Items is the number of distinct secondary ids (events) seen in the bucket.
func (b *bucket) Items() int64 { return int64(len(b.items)) }

// rollup groups facts by key in memory and keeps first-seen key order.
type rollup[K comparable] struct {
	keys    []K
	buckets map[K]*bucket
}

func newRollup[K comparable]() *rollup[K] {
	return &rollup[K]{buckets: make(map[K]*bucket)}
}

// fact is one observation fed into a rollup.
type fact struct {
	Amount decimal.Decimal
	Actor  uuid.UUID
	Item   uuid.UUID
	At     time.Time
}

func (r *rollup[K]) add(key K, f fact) {
	b := r.touch(key)
	b.Count++
	b.Sum = b.Sum.Add(f.Amount)
	if b.First.IsZero() || f.At.Before(b.First) {
		b.First = f.At
	}
	if f.At.After(b.Latest) {
		b.Latest = f.At
	}
	if f.Actor != uuid.Nil {
		b.actors[f.Actor] = struct{}{}
	}
	if f.Item != uuid.Nil {
		b.items[f.Item] = struct{}{}
	}
}

// touch returns the bucket for key, creating an empty one if needed.
func (r *rollup[K]) touch(key K) *bucket {
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{
			Sum:    decimal.Zero,
			actors: make(map[uuid.UUID]struct{}),
			items:  make(map[uuid.UUID]struct{}),
		}
		r.buckets[key] = b
		r.keys = append(r.keys, key)
	}
	return b
}

// get returns the bucket for key or an empty one.
func (r *rollup[K]) get(key K) *bucket {
	if b, ok := r.buckets[key]; ok {
		return b
	}
	return &bucket{Sum: decimal.Zero}
}

func (r *rollup[K]) len() int { return len(r.keys) }

// sorted returns keys ordered by less.
func (r *rollup[K]) sorted(less func(a, b K) int) []K {
	keys := slices.Clone(r.keys)
	slices.SortStableFunc(keys, less)
	return keys
}

// top ranks keys by metric descending. Ties go to the bucket whose first
// fact is earliest, then to the smaller tiebreak string.
func (r *rollup[K]) top(n int, metric func(*bucket) decimal.Decimal, tiebreak func(K) string) []K {
	keys := r.sorted(func(a, b K) int {
		ba, bb := r.buckets[a], r.buckets[b]
		if c := metric(bb).Cmp(metric(ba)); c != 0 {
			return c
		}
		if c := ba.First.Compare(bb.First); c != 0 {
			return c
		}
		return cmp.Compare(tiebreak(a), tiebreak(b))
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func bySum(b *bucket) decimal.Decimal   { return b.Sum }
func byCount(b *bucket) decimal.Decimal { return decimal.NewFromInt(b.Count) }
func uuidKey(id uuid.UUID) string       { return id.String() }
