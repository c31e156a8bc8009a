package pool

import "hash/fnv"

// typeCode fingerprints a (url, user, password) triple. Handles produced
// under one fingerprint are discarded on release once the pool's
// expectedTypeCode has moved on. The hash only needs to be deterministic
// and stable within a process run, not cryptographic.
func typeCode(url, user, password string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(url))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(user))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(password))
	return int64(h.Sum64())
}
