package config

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Size units.
const (
	KiB = 1024
	MiB = 1024 * KiB
)

// MongoDB logging configuration constants.
const (
	// MongoLogEnabled indicates if MongoDB logging is enabled.
	MongoLogEnabled = false
	// MongoLogComponent specifies the MongoDB log component.
	MongoLogComponent = options.LogComponentAll
	// MongoLogLevel specifies the MongoDB log level.
	MongoLogLevel = options.LogLevelInfo
)

// Timeouts.
const (
	OperationTimeout  = 5 * time.Minute
	PingTimeout       = 10 * time.Second
	DisconnectTimeout = 10 * time.Second
	FlushRetryDelay   = time.Second
)

// Staging defaults.
const (
	// DefaultWorkers is the number of workers draining a work queue.
	DefaultWorkers = 4
	// DefaultBatchSize is the number of staged writes that makes a buffer full.
	DefaultBatchSize = 1000
	// DefaultMaxBatchBytes bounds the size of staged documents in a buffer.
	DefaultMaxBatchBytes = 16 * MiB
	// MaxFlushRetries is how many times a transient flush error is retried.
	MaxFlushRetries = 3
)
