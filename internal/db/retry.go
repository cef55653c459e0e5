package db

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// RetryPredicate decides whether a failed Operation may be attempted again.
type RetryPredicate func(err error) bool

const DefaultMaxRetries = 3

// retryBackoff is the base delay between attempts; attempt n waits n*retryBackoff.
var retryBackoff = 50 * time.Millisecond

// Try executes an operation, retrying on duplicate key errors.
// It uses DefaultMaxRetries and IsMongoDuplicateKeyError.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsMongoDuplicateKeyError)
}

// WithRetries runs op once plus up to maxRetries more times while
// shouldRetry accepts the returned error. Any other error is returned
// immediately.
func WithRetries(op Operation, maxRetries int, shouldRetry RetryPredicate) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !shouldRetry(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * retryBackoff)
	}
	return err
}

// IsMongoDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	var e mongo.WriteException
	if errors.As(err, &e) {
		for _, we := range e.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, writeError := range bwe.WriteErrors {
			if writeError.Code == 11000 {
				return true
			}
		}
	}
	return false
}
