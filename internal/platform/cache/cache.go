package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"codearena/internal/domain/model"
)

// VerdictCache maps an evaluation fingerprint to a previously computed
// verdict. Entries expire after a fixed TTL; there is no partial
// invalidation. A hit within the TTL window must spare the caller a
// judge invocation for an identical (problem, language, code) triple.
type VerdictCache interface {
	Get(ctx context.Context, key string) (*model.Verdict, bool, error)
	Set(ctx context.Context, key string, verdict *model.Verdict) error
}

// Fingerprint derives the cache key from the problem id, declared
// language and the exact code text. Any single-character change in the
// code is a full miss on purpose.
func Fingerprint(problemID, language, code string) string {
	h := sha256.New()
	h.Write([]byte(problemID))
	h.Write([]byte{0})
	h.Write([]byte(language))
	h.Write([]byte{0})
	h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil))
}
