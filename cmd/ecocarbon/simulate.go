package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ecocarbon/ecocarbon/internal/analytics"
	"github.com/ecocarbon/ecocarbon/internal/config"
	"github.com/ecocarbon/ecocarbon/internal/ledger"
	"github.com/ecocarbon/ecocarbon/internal/pipeline"
)

const (
	demoFarmer  ledger.Address = "farmer_001"
	demoBatchID                = "demo_batch_001"
	topBalances                = 5
)

var demoWasteKg = decimal.NewFromInt(5000)

var (
	okLine   = color.New(color.FgGreen)
	failLine = color.New(color.FgRed)
	infoLine = color.New(color.FgCyan)
)

type simulation struct {
	demo      bool
	pilot     int
	analytics bool
	price     decimal.Decimal
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	sim := simulation{price: decimal.NewFromFloat(cfg.TokenPriceUSD)}
	if sim.demo, err = cmd.Flags().GetBool("demo"); err != nil {
		return err
	}
	if sim.pilot, err = cmd.Flags().GetInt("pilot"); err != nil {
		return err
	}
	if sim.analytics, err = cmd.Flags().GetBool("analytics"); err != nil {
		return err
	}

	if !sim.demo && sim.pilot <= 0 && !sim.analytics {
		return cmd.Help()
	}

	return sim.run(cmd.Context(), cmd.OutOrStdout(), newPipeline(cfg))
}

// newPipeline builds a fresh ledger and pipeline for the configured project.
func newPipeline(cfg *config.Config) *pipeline.Pipeline {
	project := pipeline.DefaultProject()
	project.Location = cfg.Location
	project.Families = cfg.Families
	project.ProcessedTonnes = decimal.NewFromInt(cfg.ProjectTonnage)
	project.Methodology = cfg.Methodology

	return pipeline.New(ledger.New(), pipeline.WithSeed(cfg.Seed), pipeline.WithProject(project))
}

// run executes the requested steps in order. Business failures are printed
// and never turned into an error; only contract violations escape.
func (s simulation) run(ctx context.Context, w io.Writer, p *pipeline.Pipeline) error {
	if s.demo {
		s.runDemo(ctx, w, p)
	}

	if s.pilot > 0 {
		if err := s.runPilot(ctx, w, p); err != nil {
			return err
		}
	}

	if s.analytics {
		s.printAnalytics(w, p)
	}
	return nil
}

func (s simulation) runDemo(ctx context.Context, w io.Writer, p *pipeline.Pipeline) {
	rec, err := p.Process(ctx, demoFarmer, demoWasteKg, pipeline.WithBatchID(demoBatchID))
	if err != nil {
		failLine.Fprintf(w, "❌ Demo failed: %s\n", err)
	} else {
		okLine.Fprintln(w, "✅ Demo minted tokens")
		fmt.Fprintf(w, "   Waste: %s kg  Biochar: %s kg  CO2: %s t  Tokens: %s\n",
			humanize.Comma(rec.WasteInput.IntPart()),
			rec.BiocharOutput.StringFixed(2),
			rec.CO2Sequestered.StringFixed(ledger.Decimals),
			rec.TokensMinted.StringFixed(ledger.Decimals),
		)
	}

	bal := p.Ledger().Balance(demoFarmer)
	fmt.Fprintf(w, "Balance %s: %s %s (~$%s)\n", demoFarmer, bal.StringFixed(ledger.Decimals), ledger.TokenSymbol, s.usd(bal))
}

func (s simulation) runPilot(ctx context.Context, w io.Writer, p *pipeline.Pipeline) error {
	results, err := p.SimulatePilot(ctx, s.pilot)
	if err != nil {
		return err
	}

	okLine.Fprintf(w, "✅ Pilot completed: %d batches\n", len(results))
	if dropped := s.pilot - len(results); dropped > 0 {
		failLine.Fprintf(w, "   %d batches failed and were skipped\n", dropped)
	}

	supply := p.Ledger().Supply()
	infoLine.Fprintf(w, "Total supply: %s %s (~$%s)\n", supply.TotalSupply.StringFixed(ledger.Decimals), ledger.TokenSymbol, s.usd(supply.TotalSupply))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Farmer", "Balance", "USD"})
	for _, ab := range p.Ledger().TopBalances(topBalances) {
		table.Append([]string{string(ab.Address), ab.Balance.StringFixed(ledger.Decimals), s.usd(ab.Balance)})
	}
	table.Render()
	return nil
}

func (s simulation) printAnalytics(w io.Writer, p *pipeline.Pipeline) {
	report, err := analytics.Summarize(p.History())
	if err != nil {
		infoLine.Fprintf(w, "%s\n", err)
		return
	}

	analytics.Render(w, report)
}

func (s simulation) usd(tokens decimal.Decimal) string {
	f, _ := tokens.Mul(s.price).Round(2).Float64()
	return humanize.FormatFloat("#,###.##", f)
}
