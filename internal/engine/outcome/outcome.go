// Package outcome derives match results from an oracle seed.
package outcome

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
)

var order = []domain.Outcome{domain.OutcomeHome, domain.OutcomeAway, domain.OutcomeDraw}

// Derive maps one oracle seed to n match outcomes. Each match draws from an
// independent HMAC-SHA256 over the seed and its index, so a given seed always
// produces the same results and no match influences another.
func Derive(seed string, n int) []domain.Outcome {
	outcomes := make([]domain.Outcome, n)
	for i := range outcomes {
		h := hmac.New(sha256.New, []byte(seed))
		h.Write([]byte("match:" + strconv.Itoa(i)))
		digest := hex.EncodeToString(h.Sum(nil))

		// digest[:8] is always 8 hex characters, ParseInt cannot fail here.
		num, _ := strconv.ParseInt(digest[:8], 16, 64)
		outcomes[i] = order[num%3]
	}
	return outcomes
}
