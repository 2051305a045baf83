package pipeline

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ecocarbon/ecocarbon/internal/ledger"
)

const DefaultMethodology = "VCS VM0044"

// Project describes the pilot the simulation stands in for.
type Project struct {
	Location           string          `json:"location"`
	Families           int             `json:"families"`
	ProcessedTonnes    decimal.Decimal `json:"processed_tonnes"`
	CO2Sequestered     decimal.Decimal `json:"co2_sequestered"`
	IncomeIncrease     decimal.Decimal `json:"income_increase"`
	CarbonBenefitRatio int             `json:"carbon_benefit_ratio"`
	Methodology        string          `json:"methodology"`
}

func DefaultProject() Project {
	return Project{
		Location:           "San Martín, Peru",
		Families:           127,
		ProcessedTonnes:    decimal.NewFromInt(1000),
		CO2Sequestered:     decimal.NewFromInt(11040),
		IncomeIncrease:     decimal.RequireFromString("0.35"),
		CarbonBenefitRatio: 54,
		Methodology:        DefaultMethodology,
	}
}

// Roster returns one address per participating family: farmer_001, farmer_002, ...
func (p Project) Roster() []ledger.Address {
	farmers := make([]ledger.Address, 0, max(p.Families, 0))
	for i := 1; i <= p.Families; i++ {
		farmers = append(farmers, ledger.Address(fmt.Sprintf("farmer_%03d", i)))
	}
	return farmers
}
