package panel

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// EvidenceDigest returns a stable hash of the classified reason and the full
// evidence map. Identical inputs hash identically regardless of map iteration
// order. The orchestrator also uses this digest to detect evidence drift
// between a review decision and the state it was made against.
func EvidenceDigest(reason string, evidence map[string]string) string {
	h := sha256.New()
	h.Write([]byte(reason))
	h.Write([]byte{0})

	kinds := make([]string, 0, len(evidence))
	for kind := range evidence {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		h.Write([]byte(kind))
		h.Write([]byte{0})
		h.Write([]byte(evidence[kind]))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}

// cacheKey scopes a verdict cache entry to one judge and one evidence digest.
func cacheKey(input Input, judge string) string {
	return "verdict:" + judge + ":" + EvidenceDigest(input.Reason, input.Evidence)
}
