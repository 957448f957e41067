/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// FindOptions configures how a cursor pages through results
type FindOptions struct {
	BatchSize int32 // Documents fetched per round trip (default: 100)
	Limit     int64 // Maximum documents returned, 0 for no limit
	Skip      int64 // Documents skipped before the first result
}

// FindOption is a functional option for configuring a find
type FindOption func(*FindOptions)

// DefaultFindOptions returns default find options
func DefaultFindOptions() FindOptions {
	return FindOptions{
		BatchSize: 100,
	}
}

// ApplyFindOptions returns the defaults with opts applied in order
func ApplyFindOptions(opts ...FindOption) FindOptions {
	o := DefaultFindOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithBatchSize sets the number of documents fetched per round trip
func WithBatchSize(size int32) FindOption {
	return func(opts *FindOptions) {
		if size > 0 {
			opts.BatchSize = size
		}
	}
}

// WithLimit caps the number of documents returned
func WithLimit(limit int64) FindOption {
	return func(opts *FindOptions) {
		opts.Limit = limit
	}
}

// WithSkip skips the first n matching documents
func WithSkip(n int64) FindOption {
	return func(opts *FindOptions) {
		opts.Skip = n
	}
}
