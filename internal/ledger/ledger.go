package ledger

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ecocarbon/ecocarbon/internal/metrics"
)

var log = logging.Logger("ledger")

const (
	TokenName   = "Eco-Carbon San Martin"
	TokenSymbol = "ECOCO2"
	Decimals    = 3

	// DefaultAdmin holds ADMIN, MINTER, VERIFIER and RETIREMENT from construction.
	DefaultAdmin Address = "admin_address"

	MinQualityScore     = 85
	premiumQualityScore = 90
	premiumMultiplier   = 150
	standardMultiplier  = 100
	permanenceScore     = 100
)

var (
	// ConversionRate is tCO2e credited per tonne of biochar.
	ConversionRate = decimal.RequireFromString("11.04")

	farmersShare      = decimal.RequireFromString("0.60")
	technologyShare   = decimal.RequireFromString("0.20")
	verificationShare = decimal.RequireFromString("0.10")
	insuranceShare    = decimal.RequireFromString("0.10")
)

// Address identifies an account. There is no authentication behind it.
type Address string

// TokensForBiochar converts a biochar mass in kg to a token quantity.
func TokensForBiochar(biocharKg decimal.Decimal) decimal.Decimal {
	// kg -> tonnes
	return biocharKg.Mul(ConversionRate).Shift(-3)
}

// Ledger is an in-memory token registry. It performs no locking; callers that
// share one across goroutines must serialize access themselves.
type Ledger struct {
	admin Address
	now   func() time.Time
	fees  FeeSchedule

	batches  map[string]*TokenBatch
	balances map[Address]decimal.Decimal
	roles    map[Address]roleSet
	events   []Event

	totalCarbon  decimal.Decimal
	totalSupply  decimal.Decimal
	totalRetired decimal.Decimal
}

type Option func(*Ledger)

func WithAdmin(addr Address) Option {
	return func(l *Ledger) {
		l.admin = addr
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		admin:    DefaultAdmin,
		now:      func() time.Time { return time.Now().UTC() },
		fees:     DefaultFeeSchedule(),
		batches:  make(map[string]*TokenBatch),
		balances: make(map[Address]decimal.Decimal),
		roles:    make(map[Address]roleSet),
	}
	for _, opt := range opts {
		opt(l)
	}

	for _, r := range []Role{RoleAdmin, RoleMinter, RoleVerifier, RoleRetirement} {
		l.GrantRole(l.admin, r)
	}
	return l
}

func (l *Ledger) Admin() Address {
	return l.admin
}

func (l *Ledger) Fees() FeeSchedule {
	return l.fees
}

// GrantRole adds role to addr. Granting a held role is a no-op. Any caller may
// grant any role.
func (l *Ledger) GrantRole(addr Address, role Role) {
	set, ok := l.roles[addr]
	if !ok {
		set = newRoleSet()
		l.roles[addr] = set
	}
	set.Add(role)
}

func (l *Ledger) HasRole(addr Address, role Role) bool {
	set, ok := l.roles[addr]
	return ok && set.Contains(role)
}

// Roles returns the roles held by addr in enum order.
func (l *Ledger) Roles(addr Address) []Role {
	set, ok := l.roles[addr]
	if !ok {
		return nil
	}
	return sortedRoles(set)
}

type MintRequest struct {
	Farmer       Address
	CarbonAmount decimal.Decimal
	BatchID      string
	Origin       string
	Methodology  string
	ContentHash  string
	BiocharMass  decimal.Decimal
	QualityScore int
	// Minter defaults to the ledger admin when empty.
	Minter Address
}

type MintReceipt struct {
	BatchID string          `json:"batch_id"`
	Farmer  Address         `json:"farmer"`
	Tokens  decimal.Decimal `json:"tokens"`
	Message string          `json:"message"`
}

// Mint creates a batch and credits the farmer with
// biocharMass * ConversionRate / 1000 tokens.
func (l *Ledger) Mint(ctx context.Context, req MintRequest) (*MintReceipt, error) {
	minter := req.Minter
	if minter == "" {
		minter = l.admin
	}

	if !l.HasRole(minter, RoleMinter) {
		return nil, l.reject(ctx, "mint", NewAuthorizationError(minter, RoleMinter))
	}
	if !req.CarbonAmount.IsPositive() || !req.BiocharMass.IsPositive() {
		return nil, l.reject(ctx, "mint", NewInvalidAmountError("carbon amount and biochar mass must be positive"))
	}
	if req.QualityScore < MinQualityScore {
		return nil, l.reject(ctx, "mint", NewQualityThresholdError(req.QualityScore))
	}
	if _, ok := l.batches[req.BatchID]; ok {
		return nil, l.reject(ctx, "mint", NewDuplicateBatchError(req.BatchID))
	}

	multiplier := standardMultiplier
	if req.QualityScore > premiumQualityScore {
		multiplier = premiumMultiplier
	}

	tokens := TokensForBiochar(req.BiocharMass)
	l.batches[req.BatchID] = &TokenBatch{
		BatchID:           req.BatchID,
		CarbonSequestered: req.CarbonAmount,
		BiocharMass:       req.BiocharMass,
		QualityMultiplier: multiplier,
		PermanenceScore:   permanenceScore,
		Origin:            req.Origin,
		Methodology:       req.Methodology,
		CreatedAt:         l.now(),
		ContentHash:       req.ContentHash,
	}
	l.balances[req.Farmer] = l.balances[req.Farmer].Add(tokens)
	l.totalCarbon = l.totalCarbon.Add(req.CarbonAmount)
	l.totalSupply = l.totalSupply.Add(tokens)

	l.emit(EventTokenMinted, map[string]any{
		"batch_id": req.BatchID,
		"farmer":   string(req.Farmer),
		"amount":   tokens.String(),
	})

	attrs := metric.WithAttributes(attribute.String("methodology", req.Methodology))
	metrics.TokensMinted.Add(ctx, tokens.InexactFloat64(), attrs)
	metrics.CarbonSequestered.Add(ctx, req.CarbonAmount.InexactFloat64(), attrs)
	metrics.TokenSupply.Add(ctx, tokens.InexactFloat64())

	msg := fmt.Sprintf("Minted %s %s for %s", tokens.StringFixed(Decimals), TokenSymbol, req.Farmer)
	log.Infof("%s (batch %s)", msg, req.BatchID)

	return &MintReceipt{
		BatchID: req.BatchID,
		Farmer:  req.Farmer,
		Tokens:  tokens,
		Message: msg,
	}, nil
}

// DistributeRevenue proposes a 60/20/10/10 split of totalRevenue between
// farmers, technology, verification and insurance. No balance changes.
func (l *Ledger) DistributeRevenue(ctx context.Context, totalRevenue decimal.Decimal) (Distribution, error) {
	if !totalRevenue.IsPositive() {
		return Distribution{}, l.reject(ctx, "distribute", NewInvalidAmountError("total revenue must be positive"))
	}

	d := Distribution{
		Farmers:      totalRevenue.Mul(farmersShare),
		Technology:   totalRevenue.Mul(technologyShare),
		Verification: totalRevenue.Mul(verificationShare),
		Insurance:    totalRevenue.Mul(insuranceShare),
	}

	payload := d.asMap()
	payload["total"] = totalRevenue.String()
	l.emit(EventRevenueDistributed, payload)
	return d, nil
}

type RetireRequest struct {
	BatchID string
	Amount  decimal.Decimal
	Reason  string
	// Retirer defaults to the ledger admin when empty.
	Retirer Address
}

type RetireReceipt struct {
	BatchID string          `json:"batch_id"`
	Retirer Address         `json:"retirer"`
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message"`
}

// Retire debits the retirer's balance and marks the batch retired. The amount
// is bounded by the retirer's balance, not by what the batch minted. A zero
// amount still retires the batch; a negative one is a contract violation.
func (l *Ledger) Retire(ctx context.Context, req RetireRequest) (*RetireReceipt, error) {
	if req.Amount.IsNegative() {
		return nil, contractViolation("retirement amount must not be negative, got %s", req.Amount)
	}

	retirer := req.Retirer
	if retirer == "" {
		retirer = l.admin
	}

	if !l.HasRole(retirer, RoleRetirement) {
		return nil, l.reject(ctx, "retire", NewAuthorizationError(retirer, RoleRetirement))
	}
	batch, ok := l.batches[req.BatchID]
	if !ok {
		return nil, l.reject(ctx, "retire", NewBatchNotFoundError(req.BatchID))
	}
	if batch.Retired {
		return nil, l.reject(ctx, "retire", NewAlreadyRetiredError(req.BatchID))
	}
	balance := l.balances[retirer]
	if balance.LessThan(req.Amount) {
		return nil, l.reject(ctx, "retire", NewInsufficientBalanceError(retirer, balance, req.Amount))
	}

	l.balances[retirer] = balance.Sub(req.Amount)
	l.totalSupply = l.totalSupply.Sub(req.Amount)
	l.totalRetired = l.totalRetired.Add(req.Amount)
	batch.Retired = true

	l.emit(EventTokenRetired, map[string]any{
		"batch_id": req.BatchID,
		"retirer":  string(retirer),
		"amount":   req.Amount.String(),
		"reason":   req.Reason,
	})

	metrics.TokensRetired.Add(ctx, req.Amount.InexactFloat64())
	metrics.TokenSupply.Add(ctx, req.Amount.Neg().InexactFloat64())

	msg := fmt.Sprintf("Retired %s %s - Reason: %s", req.Amount.StringFixed(Decimals), TokenSymbol, req.Reason)
	log.Infof("%s (batch %s)", msg, req.BatchID)

	return &RetireReceipt{
		BatchID: req.BatchID,
		Retirer: retirer,
		Amount:  req.Amount,
		Message: msg,
	}, nil
}

func (l *Ledger) reject(ctx context.Context, op string, err BusinessError) error {
	log.Debugf("%s rejected: %s", op, err)
	metrics.LedgerRejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("kind", err.Kind()),
	))
	return err
}

// Balance returns zero for addresses the ledger has never seen.
func (l *Ledger) Balance(addr Address) decimal.Decimal {
	return l.balances[addr]
}

func (l *Ledger) Batch(batchID string) (TokenBatch, error) {
	b, ok := l.batches[batchID]
	if !ok {
		return TokenBatch{}, NewBatchNotFoundError(batchID)
	}
	return *b, nil
}

func (l *Ledger) Supply() Supply {
	return Supply{
		TotalSupply:            l.totalSupply,
		TotalRetired:           l.totalRetired,
		TotalCarbonSequestered: l.totalCarbon,
	}
}

func (l *Ledger) Balances() map[Address]decimal.Decimal {
	return maps.Clone(l.balances)
}

// TopBalances returns up to n accounts ordered by balance, largest first.
// Ties are ordered by address.
func (l *Ledger) TopBalances(n int) []AccountBalance {
	out := make([]AccountBalance, 0, len(l.balances))
	for addr, bal := range l.balances {
		out = append(out, AccountBalance{Address: addr, Balance: bal})
	}
	slices.SortFunc(out, func(a, b AccountBalance) int {
		if c := b.Balance.Cmp(a.Balance); c != 0 {
			return c
		}
		return cmp.Compare(a.Address, b.Address)
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
