// Package cache provides byte caches with TTL, used to memoize
// serialized API snapshots. Two backends exist: an in-process map
// and Redis for multi-instance deployments.
package cache

import "time"

// BytesCache is a minimal cache API storing raw bytes with TTL.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
