package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrContractViolation marks caller bugs such as a negative amount. It is
// never returned for business-rule failures.
var ErrContractViolation = errors.New("contract violation")

func contractViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

// BusinessError is implemented by every rule violation the ledger reports.
// These are expected outcomes and leave ledger state untouched.
type BusinessError interface {
	error
	Kind() string
}

type ErrAuthorization struct {
	Address Address
	Role    Role
}

func NewAuthorizationError(addr Address, role Role) ErrAuthorization {
	return ErrAuthorization{Address: addr, Role: role}
}

func (e ErrAuthorization) Error() string {
	return fmt.Sprintf("%s role required (address %s)", e.Role, e.Address)
}

func (e ErrAuthorization) Kind() string { return "authorization" }

type ErrInvalidAmount struct {
	msg string
}

func NewInvalidAmountError(msg string) ErrInvalidAmount {
	return ErrInvalidAmount{msg: msg}
}

func (e ErrInvalidAmount) Error() string {
	return e.msg
}

func (e ErrInvalidAmount) Kind() string { return "invalid_amount" }

type ErrQualityThreshold struct {
	Score int
}

func NewQualityThresholdError(score int) ErrQualityThreshold {
	return ErrQualityThreshold{Score: score}
}

func (e ErrQualityThreshold) Error() string {
	return fmt.Sprintf("quality score must be >= %d%% (got %d)", MinQualityScore, e.Score)
}

func (e ErrQualityThreshold) Kind() string { return "quality" }

type ErrDuplicateBatch struct {
	BatchID string
}

func NewDuplicateBatchError(batchID string) ErrDuplicateBatch {
	return ErrDuplicateBatch{BatchID: batchID}
}

func (e ErrDuplicateBatch) Error() string {
	return fmt.Sprintf("batch ID %s already exists", e.BatchID)
}

func (e ErrDuplicateBatch) Kind() string { return "duplicate_batch" }

type ErrBatchNotFound struct {
	BatchID string
}

func NewBatchNotFoundError(batchID string) ErrBatchNotFound {
	return ErrBatchNotFound{BatchID: batchID}
}

func (e ErrBatchNotFound) Error() string {
	return fmt.Sprintf("invalid batch ID %s", e.BatchID)
}

func (e ErrBatchNotFound) Kind() string { return "batch_not_found" }

type ErrAlreadyRetired struct {
	BatchID string
}

func NewAlreadyRetiredError(batchID string) ErrAlreadyRetired {
	return ErrAlreadyRetired{BatchID: batchID}
}

func (e ErrAlreadyRetired) Error() string {
	return fmt.Sprintf("credits for batch %s already retired", e.BatchID)
}

func (e ErrAlreadyRetired) Kind() string { return "already_retired" }

type ErrInsufficientBalance struct {
	Address   Address
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func NewInsufficientBalanceError(addr Address, balance, requested decimal.Decimal) ErrInsufficientBalance {
	return ErrInsufficientBalance{Address: addr, Balance: balance, Requested: requested}
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance: %s holds %s, requested %s",
		e.Address, e.Balance.StringFixed(Decimals), e.Requested.StringFixed(Decimals))
}

func (e ErrInsufficientBalance) Kind() string { return "insufficient_balance" }

var (
	_ BusinessError = ErrAuthorization{}
	_ BusinessError = ErrInvalidAmount{}
	_ BusinessError = ErrQualityThreshold{}
	_ BusinessError = ErrDuplicateBatch{}
	_ BusinessError = ErrBatchNotFound{}
	_ BusinessError = ErrAlreadyRetired{}
	_ BusinessError = ErrInsufficientBalance{}
)
