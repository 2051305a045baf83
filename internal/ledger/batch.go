package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenBatch is the provenance record of one mint. Only Retired changes after
// creation, and only from false to true.
type TokenBatch struct {
	BatchID           string          `json:"batch_id"`
	CarbonSequestered decimal.Decimal `json:"carbon_sequestered"`
	BiocharMass       decimal.Decimal `json:"biochar_mass"`
	QualityMultiplier int             `json:"quality_multiplier"`
	PermanenceScore   int             `json:"permanence_score"`
	Origin            string          `json:"origin"`
	Methodology       string          `json:"methodology"`
	CreatedAt         time.Time       `json:"created_at"`
	ContentHash       string          `json:"content_hash"`
	Retired           bool            `json:"retired"`
}

// FeeSchedule is carried for completeness. No operation charges it.
type FeeSchedule struct {
	MintingFee     int64           `json:"minting_fee"`
	TransferFee    int64           `json:"transfer_fee"`
	CrossBorderFee int64           `json:"cross_border_fee"`
	ComplianceFee  decimal.Decimal `json:"compliance_fee"`
	RetirementFee  decimal.Decimal `json:"retirement_fee"`
}

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		MintingFee:     200,
		TransferFee:    50,
		CrossBorderFee: 100,
		ComplianceFee:  decimal.NewFromInt(50),
		RetirementFee:  decimal.NewFromInt(25),
	}
}

// Supply is a point-in-time view of the aggregate counters.
type Supply struct {
	TotalSupply            decimal.Decimal `json:"total_supply"`
	TotalRetired           decimal.Decimal `json:"total_retired"`
	TotalCarbonSequestered decimal.Decimal `json:"total_carbon_sequestered"`
}

type AccountBalance struct {
	Address Address         `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}

// Distribution is a proposed revenue split. It never moves balances.
type Distribution struct {
	Farmers      decimal.Decimal `json:"farmers"`
	Technology   decimal.Decimal `json:"technology"`
	Verification decimal.Decimal `json:"verification"`
	Insurance    decimal.Decimal `json:"insurance"`
}

func (d Distribution) Total() decimal.Decimal {
	return decimal.Sum(d.Farmers, d.Technology, d.Verification, d.Insurance)
}

func (d Distribution) asMap() map[string]any {
	return map[string]any{
		"farmers":      d.Farmers.String(),
		"technology":   d.Technology.String(),
		"verification": d.Verification.String(),
		"insurance":    d.Insurance.String(),
	}
}
