package analytics

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/ecocarbon/ecocarbon/internal/ledger"
)

// Render writes the report as plain-text tables.
func Render(w io.Writer, r *Report) {
	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Metric", "Value"})
	summary.SetAlignment(tablewriter.ALIGN_LEFT)
	summary.AppendBulk([][]string{
		{"Batches", strconv.Itoa(r.Batches)},
		{"Waste processed (kg)", r.Totals.Waste.StringFixed(0)},
		{"Biochar produced (kg)", r.Totals.Biochar.StringFixed(2)},
		{"CO2 sequestered (t)", r.Totals.CO2.StringFixed(ledger.Decimals)},
		{"Tokens minted", r.Totals.Tokens.StringFixed(ledger.Decimals)},
		{"Efficiency (biochar/waste)", r.Efficiency.StringFixed(3)},
		{"Quality min / mean / max", fmt.Sprintf("%.2f / %.2f / %.2f", r.Quality.Min, r.Quality.Mean, r.Quality.Max)},
		{"Premium share (>90)", fmt.Sprintf("%.1f%%", r.Quality.PremiumShare*100)},
	})
	summary.Render()

	hist := tablewriter.NewWriter(w)
	hist.SetHeader([]string{"Quality", "Batches", ""})
	for _, b := range r.Histogram {
		label := fmt.Sprintf("%d-%d", b.Lower, b.Lower+1)
		if b.Lower == MaxBucket {
			label = fmt.Sprintf("%d+", MaxBucket)
		}
		hist.Append([]string{
			label,
			strconv.Itoa(b.Count),
			strings.Repeat("#", b.Count),
		})
	}
	hist.Render()
}
