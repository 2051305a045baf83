package web

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/shopspring/decimal"

	"github.com/ecocarbon/ecocarbon/internal/analytics"
	"github.com/ecocarbon/ecocarbon/internal/ledger"
	"github.com/ecocarbon/ecocarbon/internal/pipeline"
)

var log = logging.Logger("web")

//go:embed templates/admin.html.tmpl
var adminTemplateHTML string

//go:embed static/css/admin.css
var adminCSS string

const topBalances = 5

// Backend is the slice of the simulation the dashboard reads and drives.
type Backend interface {
	Process(ctx context.Context, farmer ledger.Address, wasteKg decimal.Decimal) (*pipeline.ProcessingRecord, error)
	TopBalances(n int) []ledger.AccountBalance
	Supply() ledger.Supply
	History() []pipeline.ProcessingRecord
	Farmers() []ledger.Address
}

type adminDashboardData struct {
	Symbol   string
	Farmers  []ledger.Address
	Balances []ledger.AccountBalance
	Supply   ledger.Supply
	Report   *analytics.Report
	NoData   bool
	Result   *pipeline.ProcessingRecord
	Error    string
	Farmer   string
	WasteKg  string
	CSS      template.CSS
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(ledger.Decimals)
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02 15:04 MST")
}

// AdminHandler returns an HTTP handler for the admin dashboard. POST submits
// the process form.
func AdminHandler(b Backend) http.HandlerFunc {
	tmpl := template.Must(template.New("admin").Funcs(template.FuncMap{
		"formatAmount": formatAmount,
		"formatDate":   formatDate,
	}).Parse(adminTemplateHTML))

	return func(w http.ResponseWriter, r *http.Request) {
		data := adminDashboardData{
			Symbol:  ledger.TokenSymbol,
			CSS:     template.CSS(adminCSS),
			WasteKg: "1000",
		}

		if r.Method == http.MethodPost {
			data.Farmer = r.FormValue("farmer")
			data.WasteKg = r.FormValue("waste_kg")

			waste, err := decimal.NewFromString(data.WasteKg)
			if err != nil {
				data.Error = fmt.Sprintf("Invalid waste mass: %v", err)
			} else if rec, err := b.Process(r.Context(), ledger.Address(data.Farmer), waste); err != nil {
				data.Error = err.Error()
			} else {
				data.Result = rec
			}
		}

		farmers := b.Farmers()
		if len(farmers) > 10 {
			farmers = farmers[:10]
		}
		data.Farmers = farmers
		data.Balances = b.TopBalances(topBalances)
		data.Supply = b.Supply()

		report, err := analytics.Summarize(b.History())
		switch {
		case errors.Is(err, analytics.ErrNoData):
			data.NoData = true
		case err != nil:
			log.Errorf("summarizing history: %v", err)
		default:
			data.Report = report
		}

		if err := tmpl.Execute(w, data); err != nil {
			log.Errorf("executing admin template: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}
