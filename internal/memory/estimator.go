// internal/memory/estimator.go
package memory

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens for budget accounting. Counts are estimates,
// not provider-exact, but deterministic for identical input.
type Estimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewEstimator returns a shared-encoding estimator. The BPE encoding is
// loaded lazily on first use; when it cannot be loaded (offline runs) a
// four-characters-per-token heuristic is used instead.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Count returns the token estimate for a string.
func (e *Estimator) Count(text string) int {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			e.enc = enc
		}
	})
	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	return heuristicCount(text)
}

func heuristicCount(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
