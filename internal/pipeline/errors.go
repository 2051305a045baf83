package pipeline

import (
	"errors"
	"fmt"

	"github.com/ecocarbon/ecocarbon/internal/ledger"
)

// ErrContractViolation is the ledger's sentinel, so one errors.Is check covers
// misuse of either layer.
var ErrContractViolation = ledger.ErrContractViolation

func contractViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

type ErrQualityInsufficient struct {
	Score float64
}

func NewQualityInsufficientError(score float64) ErrQualityInsufficient {
	return ErrQualityInsufficient{Score: score}
}

func (e ErrQualityInsufficient) Error() string {
	return fmt.Sprintf("quality insufficient: %.2f < %d", e.Score, ledger.MinQualityScore)
}

func (e ErrQualityInsufficient) Kind() string { return "quality" }

var _ ledger.BusinessError = ErrQualityInsufficient{}

// IsBusinessError reports whether err is an expected rule failure, as opposed
// to a contract violation or an internal fault.
func IsBusinessError(err error) bool {
	var be ledger.BusinessError
	return errors.As(err, &be)
}
