package checkout

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/angelmondragon/rentmarket-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
)

const (
	orderNumberAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberSuffixLen   = 10
	maxOrderNumberAttempts = 5
)

var alphabetSize = big.NewInt(int64(len(orderNumberAlphabet)))

// RandomSuffix draws orderNumberSuffixLen uniform characters from [A-Z0-9].
func RandomSuffix() (string, error) {
	buf := make([]byte, orderNumberSuffixLen)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		buf[i] = orderNumberAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// nextOrderNumber picks an unused number. The unique index on
// orders.order_number still guards the race between check and insert.
func nextOrderNumber(ctx context.Context, repo orders.Repository, prefix string, suffix func() (string, error)) (string, error) {
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		s, err := suffix()
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		candidate := prefix + s
		exists, err := repo.OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check order number")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
}
