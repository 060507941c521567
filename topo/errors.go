package topo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/percona/linkseq/errors"
)

//nolint:gochecknoglobals
var transientErrorCodes = map[int]struct{}{
	11602: {}, // InterruptedDueToReplStateChange
	91:    {}, // ShutdownInProgress
	189:   {}, // PrimarySteppedDown
	10107: {}, // NotWritablePrimary
	13435: {}, // NotPrimaryNoSecondaryOk
}

// IsTransient checks if the error is a transient error that can be retried.
// It checks for specific MongoDB error codes that indicate transient issues.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var le mongo.LabeledError
	if errors.As(err, &le) && le.HasErrorLabel("RetryableWriteError") {
		return true
	}

	var wEx mongo.WriteException
	if errors.As(err, &wEx) {
		for _, we := range wEx.WriteErrors {
			_, ok := transientErrorCodes[we.Code]

			return ok
		}

		if wEx.WriteConcernError != nil {
			_, ok := transientErrorCodes[wEx.WriteConcernError.Code]

			return ok
		}
	}

	var bwEx mongo.BulkWriteException
	if errors.As(err, &bwEx) {
		for _, we := range bwEx.WriteErrors {
			_, ok := transientErrorCodes[we.Code]

			return ok
		}
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		_, ok := transientErrorCodes[int(cmdErr.Code)]

		return ok
	}

	return false
}
