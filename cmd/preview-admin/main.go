package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecocarbon/ecocarbon/internal/ledger"
	"github.com/ecocarbon/ecocarbon/internal/pipeline"
	"github.com/ecocarbon/ecocarbon/web"
)

// mockBackend serves canned data so the dashboard can be styled without
// running a simulation.
type mockBackend struct{}

func (m *mockBackend) Process(ctx context.Context, farmer ledger.Address, wasteKg decimal.Decimal) (*pipeline.ProcessingRecord, error) {
	biochar := wasteKg.Mul(pipeline.BiocharYield)
	co2 := biochar.Mul(pipeline.CO2PerKgBiochar)
	return &pipeline.ProcessingRecord{
		BatchID:        fmt.Sprintf("preview_%d", time.Now().Unix()),
		Farmer:         farmer,
		WasteInput:     wasteKg,
		BiocharOutput:  biochar,
		CO2Sequestered: co2,
		TokensMinted:   co2,
		Quality:        91.3,
		ContentHash:    "QmPreviewPreviewPreviewPreviewPreviewPreviewPr",
		Timestamp:      time.Now().UTC(),
	}, nil
}

func (m *mockBackend) TopBalances(n int) []ledger.AccountBalance {
	balances := []ledger.AccountBalance{
		{Address: "farmer_042", Balance: decimal.RequireFromString("761.760")},
		{Address: "farmer_007", Balance: decimal.RequireFromString("507.840")},
		{Address: "farmer_113", Balance: decimal.RequireFromString("253.920")},
		{Address: "farmer_001", Balance: decimal.RequireFromString("12.696")},
	}
	return balances[:min(n, len(balances))]
}

func (m *mockBackend) Supply() ledger.Supply {
	return ledger.Supply{
		TotalSupply:            decimal.RequireFromString("1536.216"),
		TotalRetired:           decimal.RequireFromString("100"),
		TotalCarbonSequestered: decimal.RequireFromString("1636.216"),
	}
}

func (m *mockBackend) History() []pipeline.ProcessingRecord {
	now := time.Now().UTC()
	var history []pipeline.ProcessingRecord
	for i, q := range []float64{86.4, 88.1, 91.7, 93.2, 89.9, 94.6} {
		rec, _ := m.Process(context.Background(), ledger.Address(fmt.Sprintf("farmer_%03d", i+1)), decimal.NewFromInt(100000))
		rec.Quality = q
		rec.Timestamp = now.Add(time.Duration(i-6) * time.Hour)
		history = append(history, *rec)
	}
	return history
}

func (m *mockBackend) Farmers() []ledger.Address {
	return pipeline.DefaultProject().Roster()
}

func main() {
	port := "8080"

	mux := http.NewServeMux()
	mux.HandleFunc("/admin", web.AdminHandler(&mockBackend{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin", http.StatusFound)
	})

	fmt.Printf("🎨 Admin Dashboard Preview Server\n")
	fmt.Printf("   Visit: http://localhost:%s/admin\n\n", port)

	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal(err)
	}
}
