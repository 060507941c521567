// Package stage accumulates MongoDB write models per namespace and applies them in
// bulk. Staged writes of a namespace are kept in a [list.List], so buffers filled by
// different producers can be merged in constant time per namespace.
package stage

import (
	"context"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/percona/linkseq/errors"
	"github.com/percona/linkseq/list"
	"github.com/percona/linkseq/log"
	"github.com/percona/linkseq/metrics"
	"github.com/percona/linkseq/sel"
)

//nolint:gochecknoglobals
var yes = true // for ref

var errInvalidNamespace = errors.New("invalid namespace")

// Namespace is a database and collection pair.
type Namespace struct {
	Database   string
	Collection string
}

func (ns Namespace) String() string {
	return ns.Database + "." + ns.Collection
}

// ParseNamespace parses "db.coll". The collection name may contain dots.
func ParseNamespace(s string) (Namespace, error) {
	db, coll, ok := strings.Cut(s, ".")
	if !ok || db == "" || coll == "" {
		return Namespace{}, errors.Wrapf(errInvalidNamespace, "%q", s)
	}

	return Namespace{Database: db, Collection: coll}, nil
}

// BulkWriter applies an ordered batch of writes to one namespace.
type BulkWriter interface {
	BulkWrite(ctx context.Context, ns Namespace, models []mongo.WriteModel) error
}

// Options configures a [Buffer]. Zero values mean no limit and no filter.
type Options struct {
	// MaxWrites makes the buffer full once this many writes are staged.
	MaxWrites int
	// MaxBytes makes the buffer full once staged documents reach this size.
	MaxBytes uint64
	// Filter drops writes for namespaces it does not allow.
	Filter sel.NSFilter
}

type nsWrites struct {
	models list.List[mongo.WriteModel]
	size   uint64
}

// Buffer stages writes per namespace. It is not safe for concurrent use.
type Buffer struct {
	opts   Options
	writes map[Namespace]*nsWrites
	count  int
	size   uint64
}

func NewBuffer(opts Options) *Buffer {
	if opts.Filter == nil {
		opts.Filter = sel.AllowAll
	}

	return &Buffer{
		opts:   opts,
		writes: make(map[Namespace]*nsWrites),
	}
}

// Len returns the number of staged writes.
func (b *Buffer) Len() int {
	return b.count
}

// Size returns the total size of staged documents in bytes.
func (b *Buffer) Size() uint64 {
	return b.size
}

func (b *Buffer) Empty() bool {
	return b.count == 0
}

// Full reports whether a configured limit is reached.
func (b *Buffer) Full() bool {
	if b.opts.MaxWrites > 0 && b.count >= b.opts.MaxWrites {
		return true
	}

	return b.opts.MaxBytes > 0 && b.size >= b.opts.MaxBytes
}

// Namespaces returns the namespaces with staged writes in sorted order.
func (b *Buffer) Namespaces() []Namespace {
	nss := make([]Namespace, 0, len(b.writes))
	for ns := range b.writes {
		nss = append(nss, ns)
	}

	slices.SortFunc(nss, func(a, b Namespace) int {
		return strings.Compare(a.String(), b.String())
	})

	return nss
}

// Writes returns the staged writes of ns in staging order.
func (b *Buffer) Writes(ns Namespace) []mongo.WriteModel {
	w := b.writes[ns]
	if w == nil {
		return nil
	}

	return w.models.Values()
}

// Insert stages an upsert of doc keyed by its _id. It returns false if ns is filtered
// out.
func (b *Buffer) Insert(ns Namespace, doc bson.Raw) (bool, error) {
	id, err := doc.LookupErr("_id")
	if err != nil {
		return false, errors.Wrap(err, "lookup _id")
	}

	return b.Add(ns, &mongo.ReplaceOneModel{
		Filter:      bson.D{{"_id", id}},
		Replacement: doc,
		Upsert:      &yes,
	}, uint64(len(doc))), nil
}

// Replace stages a replacement of the document matching filter.
func (b *Buffer) Replace(ns Namespace, filter any, doc bson.Raw) bool {
	return b.Add(ns, &mongo.ReplaceOneModel{
		Filter:      filter,
		Replacement: doc,
	}, uint64(len(doc)))
}

// Update stages an update of the document matching filter.
func (b *Buffer) Update(ns Namespace, filter, update any) bool {
	return b.Add(ns, &mongo.UpdateOneModel{
		Filter: filter,
		Update: update,
	}, 0)
}

// Delete stages a deletion of the document matching filter.
func (b *Buffer) Delete(ns Namespace, filter any) bool {
	return b.Add(ns, &mongo.DeleteOneModel{
		Filter: filter,
	}, 0)
}

// Add stages model for ns. size is the document size counted against MaxBytes.
// It returns false if ns is filtered out.
func (b *Buffer) Add(ns Namespace, model mongo.WriteModel, size uint64) bool {
	if !b.opts.Filter(ns.Database, ns.Collection) {
		return false
	}

	w := b.writes[ns]
	if w == nil {
		w = &nsWrites{}
		b.writes[ns] = w
	}

	w.models.Push(model)
	w.size += size
	b.count++
	b.size += size

	metrics.AddStagedWrites(1)

	return true
}

// Merge moves all staged writes of other to the end of b. Writes of a namespace keep
// their order: those of b first, then those of other. other is left empty.
// Writes are not filtered again.
func (b *Buffer) Merge(other *Buffer) {
	if other == nil || other == b {
		return
	}

	for ns, ow := range other.writes {
		w := b.writes[ns]
		if w == nil {
			b.writes[ns] = ow
		} else {
			w.models.Append(&ow.models)
			w.size += ow.size
		}
	}

	b.count += other.count
	b.size += other.size

	other.reset()
}

// Discard drops all staged writes.
func (b *Buffer) Discard() {
	metrics.AddDroppedWrites(b.count)
	b.reset()
}

// Flush applies staged writes with w, one bulk write per namespace running
// concurrently. It returns the number of applied writes. Writes of namespaces that
// failed stay staged so the flush can be retried.
func (b *Buffer) Flush(ctx context.Context, w BulkWriter) (int, error) {
	if b.count == 0 {
		return 0, nil
	}

	ctx = log.WithAttrs(ctx, log.Scope("stage"), log.Operation("flush"))
	log.Debugf(ctx, "flushing %d writes (%s) in %d namespaces",
		b.count, humanize.Bytes(b.size), len(b.writes))

	startTime := time.Now()

	var total atomic.Int64

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(runtime.NumCPU())

	for ns, nsw := range b.writes {
		grp.Go(func() error {
			models := make([]mongo.WriteModel, 0, nsw.models.Len())
			it := nsw.models.Iter()
			for m, ok := it.Next(); ok; m, ok = it.Next() {
				models = append(models, m)
			}

			err := w.BulkWrite(grpCtx, ns, models)
			if err != nil {
				metrics.IncFlushErrors()
				log.Errorf(grpCtx, err, "bulk write %q: %d writes stay staged", ns, len(models))
				return errors.Wrapf(err, "bulk write %q", ns)
			}

			nsw.models.Clear()
			total.Add(int64(len(models)))

			return nil
		})
	}

	err := grp.Wait()

	b.count, b.size = 0, 0
	for ns, nsw := range b.writes {
		if nsw.models.IsEmpty() {
			delete(b.writes, ns)
			continue
		}

		b.count += nsw.models.Len()
		b.size += nsw.size
	}

	applied := int(total.Load())
	metrics.AddFlushedWrites(applied)
	metrics.SetFlushDuration(time.Since(startTime))

	if err != nil {
		return applied, err //nolint:wrapcheck
	}

	log.Debugf(ctx, "flushed %d writes in %s", applied, time.Since(startTime).Round(time.Millisecond))

	return applied, nil
}

func (b *Buffer) reset() {
	clear(b.writes)
	b.count = 0
	b.size = 0
}
