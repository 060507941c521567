package config

import (
	"os"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/percona/linkseq/errors"
)

// Workers returns the worker count from LINKSEQ_WORKERS or [DefaultWorkers].
func Workers() (int, error) {
	s := os.Getenv("LINKSEQ_WORKERS")
	if s == "" {
		return DefaultWorkers, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, "LINKSEQ_WORKERS")
	}
	if n < 1 {
		return 0, errors.Errorf("LINKSEQ_WORKERS: %d is not positive", n)
	}

	return n, nil
}

// BatchSize returns the staged write count from LINKSEQ_BATCH_SIZE or [DefaultBatchSize].
func BatchSize() (int, error) {
	s := os.Getenv("LINKSEQ_BATCH_SIZE")
	if s == "" {
		return DefaultBatchSize, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, "LINKSEQ_BATCH_SIZE")
	}
	if n < 1 {
		return 0, errors.Errorf("LINKSEQ_BATCH_SIZE: %d is not positive", n)
	}

	return n, nil
}

// MaxBatchBytes returns the staged size limit from LINKSEQ_MAX_BATCH_BYTES
// (e.g. "32MiB") or [DefaultMaxBatchBytes].
func MaxBatchBytes() (uint64, error) {
	s := os.Getenv("LINKSEQ_MAX_BATCH_BYTES")
	if s == "" {
		return DefaultMaxBatchBytes, nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Wrap(err, "LINKSEQ_MAX_BATCH_BYTES")
	}

	return n, nil
}
