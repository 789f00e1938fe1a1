// Package cache provides tiered storage for serialized clinical analyses.
//
// Analyses are pure functions of the normalized screening and the gating policy, so entries never
// need invalidation; TTLs only bound memory use. Values are stored as bytes so callers always get
// an independent copy.
package cache

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache closed")

// KeyVersion is bumped whenever the analysis output format changes.
const KeyVersion = "v1"

// AnalysisKey builds the cache key for an analysis of the given screening hash under a gating policy.
func AnalysisKey(policy, inputHash string) string {
	return fmt.Sprintf("triage:%s:%s:%s", KeyVersion, policy, inputHash)
}

// Cache is the byte-oriented cache contract shared by every tier.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
