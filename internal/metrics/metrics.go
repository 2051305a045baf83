package metrics

import (
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var log = logging.Logger("metrics")

const meterName = "github.com/ecocarbon/ecocarbon"

var (
	// TokensMinted counts tokens credited by successful mints
	TokensMinted metric.Float64Counter

	// TokensRetired counts tokens removed from circulation
	TokensRetired metric.Float64Counter

	// CarbonSequestered counts tCO2e recorded on minted batches
	CarbonSequestered metric.Float64Counter

	// TokenSupply tracks the net outstanding supply
	TokenSupply metric.Float64UpDownCounter

	// LedgerRejections counts business-rule failures by operation and kind
	LedgerRejections metric.Int64Counter

	// ProcessedBatches counts pipeline runs by outcome
	ProcessedBatches metric.Int64Counter
)

// Instruments are created against the global provider, which delegates to
// whatever provider Init installs later. Until then they record nothing.
func init() {
	if err := createInstruments(otel.Meter(meterName)); err != nil {
		panic(err)
	}
}

func createInstruments(meter metric.Meter) error {
	var err error

	TokensMinted, err = meter.Float64Counter(
		"ecocarbon_tokens_minted_total",
		metric.WithDescription("Total number of tokens minted"),
	)
	if err != nil {
		return fmt.Errorf("failed to create TokensMinted counter: %w", err)
	}

	TokensRetired, err = meter.Float64Counter(
		"ecocarbon_tokens_retired_total",
		metric.WithDescription("Total number of tokens retired"),
	)
	if err != nil {
		return fmt.Errorf("failed to create TokensRetired counter: %w", err)
	}

	CarbonSequestered, err = meter.Float64Counter(
		"ecocarbon_carbon_sequestered_tonnes_total",
		metric.WithDescription("Total tCO2e recorded on minted batches"),
	)
	if err != nil {
		return fmt.Errorf("failed to create CarbonSequestered counter: %w", err)
	}

	TokenSupply, err = meter.Float64UpDownCounter(
		"ecocarbon_token_supply",
		metric.WithDescription("Outstanding token supply"),
	)
	if err != nil {
		return fmt.Errorf("failed to create TokenSupply counter: %w", err)
	}

	LedgerRejections, err = meter.Int64Counter(
		"ecocarbon_ledger_rejections_total",
		metric.WithDescription("Total number of ledger operations rejected by a business rule"),
	)
	if err != nil {
		return fmt.Errorf("failed to create LedgerRejections counter: %w", err)
	}

	ProcessedBatches, err = meter.Int64Counter(
		"ecocarbon_processed_batches_total",
		metric.WithDescription("Total number of waste batches run through the pipeline"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ProcessedBatches counter: %w", err)
	}

	return nil
}

var (
	initOnce sync.Once
	initErr  error
)

// Init installs a MeterProvider backed by the Prometheus exporter, which
// registers with the default Prometheus registry. Safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		exporter, err := prometheus.New()
		if err != nil {
			initErr = fmt.Errorf("failed to create prometheus exporter: %w", err)
			return
		}

		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
		otel.SetMeterProvider(provider)

		log.Info("OpenTelemetry metrics initialized with Prometheus exporter")
	})
	return initErr
}
