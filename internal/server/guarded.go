package server

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ecocarbon/ecocarbon/internal/ledger"
	"github.com/ecocarbon/ecocarbon/internal/pipeline"
	"github.com/ecocarbon/ecocarbon/web"
)

// guardedPipeline serializes every call into the pipeline and its ledger,
// neither of which locks internally.
type guardedPipeline struct {
	mu sync.Mutex
	p  *pipeline.Pipeline
}

var _ web.Backend = (*guardedPipeline)(nil)

func (g *guardedPipeline) Process(ctx context.Context, farmer ledger.Address, wasteKg decimal.Decimal) (*pipeline.ProcessingRecord, error) {
	return g.process(ctx, farmer, wasteKg, "")
}

func (g *guardedPipeline) process(ctx context.Context, farmer ledger.Address, wasteKg decimal.Decimal, batchID string) (*pipeline.ProcessingRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var opts []pipeline.ProcessOption
	if batchID != "" {
		opts = append(opts, pipeline.WithBatchID(batchID))
	}
	return g.p.Process(ctx, farmer, wasteKg, opts...)
}

func (g *guardedPipeline) TopBalances(n int) []ledger.AccountBalance {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.p.Ledger().TopBalances(n)
}

func (g *guardedPipeline) Supply() ledger.Supply {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.p.Ledger().Supply()
}

func (g *guardedPipeline) History() []pipeline.ProcessingRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.p.History()
}

func (g *guardedPipeline) Farmers() []ledger.Address {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.p.Farmers()
}

func (g *guardedPipeline) Batch(batchID string) (ledger.TokenBatch, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.p.Ledger().Batch(batchID)
}

func (g *guardedPipeline) Balance(addr ledger.Address) decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.p.Ledger().Balance(addr)
}

func (g *guardedPipeline) Roles(addr ledger.Address) []ledger.Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.p.Ledger().Roles(addr)
}

func (g *guardedPipeline) GrantRole(addr ledger.Address, role ledger.Role) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.p.Ledger().GrantRole(addr, role)
}
