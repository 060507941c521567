package main

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/percona/linkseq/config"
	"github.com/percona/linkseq/errors"
	"github.com/percona/linkseq/list"
	"github.com/percona/linkseq/log"
	"github.com/percona/linkseq/sel"
	"github.com/percona/linkseq/stage"
	"github.com/percona/linkseq/topo"
	"github.com/percona/linkseq/workq"
)

type loadOptions struct {
	TargetURI     string
	NS            string
	File          string
	Workers       int
	BatchSize     int
	MaxBatchBytes string
	Include       []string
	Exclude       []string
	MetricsPort   string
}

func newLoadCmd() *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load newline delimited extended JSON documents into a collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.TargetURI == "" {
				return errors.New("required flag --target not set")
			}

			ns, err := stage.ParseNamespace(opts.NS)
			if err != nil {
				return errors.Wrap(err, "--ns")
			}

			return runLoad(cmd.Context(), ns, &opts)
		},
	}

	err := applyEnvDefaults(&opts)
	if err != nil {
		log.New(0, true).Warn().Err(err).Msg("ignoring environment")
	}

	addLoadFlags(cmd.Flags(), &opts)

	return cmd
}

func applyEnvDefaults(opts *loadOptions) error {
	opts.Workers = config.DefaultWorkers
	opts.BatchSize = config.DefaultBatchSize
	opts.MaxBatchBytes = humanize.IBytes(config.DefaultMaxBatchBytes)

	workers, err0 := config.Workers()
	if err0 == nil {
		opts.Workers = workers
	}

	batchSize, err1 := config.BatchSize()
	if err1 == nil {
		opts.BatchSize = batchSize
	}

	maxBytes, err2 := config.MaxBatchBytes()
	if err2 == nil {
		opts.MaxBatchBytes = humanize.IBytes(maxBytes)
	}

	return errors.Join(err0, err1, err2)
}

func addLoadFlags(flags *pflag.FlagSet, opts *loadOptions) {
	flags.StringVar(&opts.TargetURI, "target", "", "MongoDB connection string for the target")
	flags.StringVar(&opts.NS, "ns", "", "Target namespace as db.collection")
	flags.StringVarP(&opts.File, "file", "f", "-", "Input file (- for stdin)")
	flags.IntVar(&opts.Workers, "workers", opts.Workers, "Number of staging workers")
	flags.IntVar(&opts.BatchSize, "batch-size", opts.BatchSize, "Documents per staged batch")
	flags.StringVar(&opts.MaxBatchBytes, "max-batch-bytes", opts.MaxBatchBytes,
		"Flush a staging buffer once documents reach this size")
	flags.StringSliceVar(&opts.Include, "include", nil, "Namespaces to include (db.coll or db.*)")
	flags.StringSliceVar(&opts.Exclude, "exclude", nil, "Namespaces to exclude (db.coll or db.*)")
	flags.StringVar(&opts.MetricsPort, "metrics-port", "", "Serve prometheus metrics on this port")
}

func runLoad(ctx context.Context, ns stage.Namespace, opts *loadOptions) error {
	ctx = log.WithAttrs(ctx, log.Scope("load"), log.NS(ns.Database, ns.Collection))

	maxBytes, err := humanize.ParseBytes(opts.MaxBatchBytes)
	if err != nil {
		return errors.Wrap(err, "--max-batch-bytes")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.MetricsPort != "" {
		err = startMetricsServer(ctx, opts.MetricsPort)
		if err != nil {
			return errors.Wrap(err, "start metrics server")
		}
	}

	in, err := openInput(opts.File)
	if err != nil {
		return err
	}
	defer in.Close()

	m, err := topo.ConnectWithOptions(ctx, opts.TargetURI, &topo.ConnectOptions{AppName: "seqstage"})
	if err != nil {
		return errors.Wrap(err, "connect to target")
	}
	log.Debug(ctx, "connected to target cluster")

	defer func() {
		err := topo.Disconnect(ctx, m)
		if err != nil {
			log.Warn(ctx, "Disconnect: "+err.Error())
		}
	}()

	l := &loader{
		ns:     ns,
		writer: topo.NewCollectionWriter(m),
		bufOpts: stage.Options{
			MaxWrites: opts.BatchSize,
			MaxBytes:  maxBytes,
			Filter:    sel.MakeFilter(opts.Include, opts.Exclude),
		},
	}

	startTime := time.Now()

	count, size, err := l.run(ctx, in, opts.Workers, opts.BatchSize)
	if err != nil {
		return err
	}

	log.Infof(ctx, "loaded %s documents (%s) in %s",
		humanize.Comma(int64(count)), humanize.Bytes(size), time.Since(startTime).Round(time.Millisecond))

	return nil
}

// loader stages documents read by one producer and flushed by several workers.
type loader struct {
	ns      stage.Namespace
	writer  stage.BulkWriter
	bufOpts stage.Options

	mu      sync.Mutex
	pending *stage.Buffer
}

// run reads documents from r in batches, stages them with workers, and flushes
// everything left at the end. It returns the number and size of read documents.
func (l *loader) run(ctx context.Context, r io.Reader, workers, batchSize int) (int, uint64, error) {
	l.pending = stage.NewBuffer(l.bufOpts)

	q := workq.New[*list.List[bson.Raw]]("load")

	var (
		count int
		size  uint64
	)

	readErr := make(chan error, 1)
	go func() {
		defer q.Close()

		var err error
		count, size, err = readBatches(r, batchSize, q.Push)
		readErr <- err
	}()

	err := workq.Run(ctx, q, workers, l.stageBatch)
	if err != nil {
		q.Close()
		return 0, 0, errors.Wrap(err, "stage")
	}

	err = <-readErr
	if err != nil {
		return 0, 0, errors.Wrap(err, "read")
	}

	log.Info(ctx, "input staged, flushing pending writes")

	_, err = l.pending.Flush(ctx, l.writer)
	if err != nil {
		return 0, 0, errors.Wrap(err, "flush")
	}

	return count, size, nil
}

// stageBatch consumes a batch into a local buffer, flushing it when full. Whatever
// is left is merged into the shared pending buffer.
func (l *loader) stageBatch(ctx context.Context, batch *list.List[bson.Raw]) error {
	buf := stage.NewBuffer(l.bufOpts)

	it := batch.IntoIter()
	for doc, ok := it.Next(); ok; doc, ok = it.Next() {
		_, err := buf.Insert(l.ns, doc)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if buf.Full() {
			_, err = buf.Flush(ctx, l.writer)
			if err != nil {
				return err //nolint:wrapcheck
			}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending.Merge(buf)
	if !l.pending.Full() {
		return nil
	}

	_, err := l.pending.Flush(ctx, l.writer)

	return err //nolint:wrapcheck
}

// readBatches decodes one extended JSON document per line and hands them to push in
// batches of batchSize. Empty lines are skipped.
func readBatches(
	r io.Reader,
	batchSize int,
	push func(*list.List[bson.Raw]) error,
) (int, uint64, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*config.KiB), 16*config.MiB+64*config.KiB)

	var (
		count int
		size  uint64
		line  int
	)

	batch := &list.List[bson.Raw]{}
	for scanner.Scan() {
		line++

		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var doc bson.D
		err := bson.UnmarshalExtJSON(text, false, &doc)
		if err != nil {
			return count, size, errors.Wrapf(err, "line %d", line)
		}

		raw, err := bson.Marshal(doc)
		if err != nil {
			return count, size, errors.Wrapf(err, "line %d", line)
		}

		batch.Push(raw)
		count++
		size += uint64(len(raw))

		if batch.Len() == batchSize {
			err = push(batch)
			if err != nil {
				return count, size, err
			}

			batch = &list.List[bson.Raw]{}
		}
	}

	err := scanner.Err()
	if err != nil {
		return count, size, errors.Wrap(err, "scan")
	}

	if !batch.IsEmpty() {
		err = push(batch)
		if err != nil {
			return count, size, err
		}
	}

	return count, size, nil
}
