package payment

import (
	"fmt"

	"github.com/google/uuid"
)

// tokenNamespace seeds deterministic idempotency keys. Keys derive from the
// payment, the action and the attempt number so that a retried call reuses
// the provider-side result instead of charging twice.
var tokenNamespace = uuid.MustParse("7f8c2a1e-3d54-4b6a-9c0e-5a1f2b3c4d5e")

// IdempotencyToken returns a stable key for a provider call. The same
// (paymentID, action, attempt) triple always yields the same token; a new
// attempt after a decline yields a new one.
func IdempotencyToken(paymentID, action string, attempt int) string {
	seed := fmt.Sprintf("%s:%s:%d", paymentID, action, attempt)
	return uuid.NewSHA1(tokenNamespace, []byte(seed)).String()
}
