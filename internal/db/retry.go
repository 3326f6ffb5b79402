package db

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a unit of work that may be attempted more than once.
type Operation func() error

// IsRetryable decides whether a failed Operation should run again.
type IsRetryable func(err error) bool

const DefaultMaxRetries = 3

// RetryBackoff is the delay unit between attempts; attempt n waits n*RetryBackoff.
var RetryBackoff = 50 * time.Millisecond

// Try runs op, retrying up to DefaultMaxRetries times on duplicate-key errors.
// Use it around inserts whose generated ids may collide.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsMongoDuplicateKeyError)
}

// WithRetries runs op once plus up to maxRetries more times while retryable(err)
// holds. The last error is returned when attempts run out.
func WithRetries(op Operation, maxRetries int, retryable IsRetryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * RetryBackoff)
	}
	return err
}

const duplicateKeyCode = 11000

// IsMongoDuplicateKeyError reports whether err carries a unique-index violation.
func IsMongoDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == duplicateKeyCode {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == duplicateKeyCode {
				return true
			}
		}
	}
	return false
}

// IsIDCollision reports a duplicate-key error on the primary key, as opposed
// to a secondary unique index. Only these are worth retrying with a fresh id.
func IsIDCollision(err error) bool {
	return IsMongoDuplicateKeyError(err) && strings.Contains(err.Error(), "_id_")
}
