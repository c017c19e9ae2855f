// Package utils holds small helpers shared by the ML adapters.
package utils

import "hash/fnv"

// StableHash is FNV-1a over the parts joined by ':'.
func StableHash(parts ...string) uint64 {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{':'})
		}
		_, _ = h.Write([]byte(p))
	}
	return h.Sum64()
}

// Bucket maps the parts onto [0, n). It returns 0 when n is 0.
func Bucket(n uint64, parts ...string) uint64 {
	if n == 0 {
		return 0
	}
	return StableHash(parts...) % n
}
