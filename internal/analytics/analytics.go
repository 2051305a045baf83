// Package analytics summarizes processing history for reports and dashboards.
package analytics

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/ecocarbon/ecocarbon/internal/ledger"
	"github.com/ecocarbon/ecocarbon/internal/pipeline"
)

var ErrNoData = errors.New("no processing data available for analysis")

const (
	premiumQuality = 90

	minBucket = 0
	// MaxBucket collects every score of 100 and above.
	MaxBucket = 100
)

func bucketFor(q float64) int {
	switch {
	case math.IsNaN(q) || q < minBucket:
		return minBucket
	case q >= MaxBucket:
		return MaxBucket
	default:
		return int(math.Floor(q))
	}
}

type QualityStats struct {
	Min          float64 `json:"min"`
	Mean         float64 `json:"mean"`
	Max          float64 `json:"max"`
	PremiumShare float64 `json:"premium_share"`
}

// Bucket counts batches whose quality falls in [Lower, Lower+1). The first
// and last buckets of the scale also absorb scores outside [0, 100).
type Bucket struct {
	Lower int `json:"lower"`
	Count int `json:"count"`
}

type Totals struct {
	Waste   decimal.Decimal `json:"waste"`
	Biochar decimal.Decimal `json:"biochar"`
	CO2     decimal.Decimal `json:"co2"`
	Tokens  decimal.Decimal `json:"tokens"`
}

type Report struct {
	Batches   int          `json:"batches"`
	Quality   QualityStats `json:"quality"`
	Histogram []Bucket     `json:"histogram"`
	Totals    Totals       `json:"totals"`
	// Efficiency is biochar output over waste input across all batches.
	Efficiency     decimal.Decimal   `json:"efficiency"`
	CumulativeCO2  []decimal.Decimal `json:"cumulative_co2"`
	TokensPerBatch []decimal.Decimal `json:"tokens_per_batch"`
}

// Summarize returns ErrNoData for an empty history.
func Summarize(history []pipeline.ProcessingRecord) (*Report, error) {
	if len(history) == 0 {
		return nil, ErrNoData
	}

	r := &Report{
		Batches:        len(history),
		CumulativeCO2:  make([]decimal.Decimal, 0, len(history)),
		TokensPerBatch: make([]decimal.Decimal, 0, len(history)),
		Quality:        QualityStats{Min: math.Inf(1), Max: math.Inf(-1)},
	}

	var qualitySum float64
	var premium int
	counts := map[int]int{}
	lowest, highest := math.MaxInt, math.MinInt

	for _, rec := range history {
		r.Totals.Waste = r.Totals.Waste.Add(rec.WasteInput)
		r.Totals.Biochar = r.Totals.Biochar.Add(rec.BiocharOutput)
		r.Totals.CO2 = r.Totals.CO2.Add(rec.CO2Sequestered)
		r.Totals.Tokens = r.Totals.Tokens.Add(rec.TokensMinted)
		r.CumulativeCO2 = append(r.CumulativeCO2, r.Totals.CO2)
		r.TokensPerBatch = append(r.TokensPerBatch, rec.TokensMinted)

		q := rec.Quality
		qualitySum += q
		r.Quality.Min = math.Min(r.Quality.Min, q)
		r.Quality.Max = math.Max(r.Quality.Max, q)
		if q > premiumQuality {
			premium++
		}

		b := bucketFor(q)
		counts[b]++
		lowest, highest = min(lowest, b), max(highest, b)
	}

	n := float64(len(history))
	r.Quality.Mean = qualitySum / n
	r.Quality.PremiumShare = float64(premium) / n

	for b := min(lowest, ledger.MinQualityScore); b <= highest; b++ {
		r.Histogram = append(r.Histogram, Bucket{Lower: b, Count: counts[b]})
	}

	if r.Totals.Waste.IsPositive() {
		r.Efficiency = r.Totals.Biochar.Div(r.Totals.Waste)
	}

	return r, nil
}
