package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ecocarbon/ecocarbon/internal/ledger"
	"github.com/ecocarbon/ecocarbon/internal/metrics"
	"github.com/ecocarbon/ecocarbon/internal/provenance"
	"github.com/ecocarbon/ecocarbon/internal/sensor"
)

var log = logging.Logger("pipeline")

const DefaultSeed int64 = 42

var (
	// BiocharYield is kg of biochar per kg of agricultural waste.
	BiocharYield = decimal.RequireFromString("0.23")

	// CO2PerKgBiochar is the tCO2e recorded on a batch per kg of biochar. It is
	// not the ledger's token conversion rate.
	CO2PerKgBiochar = decimal.RequireFromString("0.01104")

	kgPerTonne = decimal.NewFromInt(1000)
)

type ProcessingRecord struct {
	BatchID        string          `json:"batch_id"`
	Farmer         ledger.Address  `json:"farmer"`
	WasteInput     decimal.Decimal `json:"waste_input"`
	BiocharOutput  decimal.Decimal `json:"biochar_output"`
	CO2Sequestered decimal.Decimal `json:"co2_sequestered"`
	TokensMinted   decimal.Decimal `json:"tokens_minted"`
	Quality        float64         `json:"quality"`
	ContentHash    string          `json:"content_hash"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Pipeline turns waste inputs into minted credits on one ledger. Like the
// ledger it is not safe for concurrent use.
type Pipeline struct {
	ledger  *ledger.Ledger
	rng     *rand.Rand
	sensor  sensor.Source
	project Project
	farmers []ledger.Address
	now     func() time.Time
	seq     int

	history []ProcessingRecord
}

type Option func(*Pipeline)

// WithSeed reseeds the pipeline's random source. Farmer selection, batch ids
// and the default sensor all draw from it.
func WithSeed(seed int64) Option {
	return func(p *Pipeline) {
		p.rng = rand.New(rand.NewSource(seed))
	}
}

func WithSensor(src sensor.Source) Option {
	return func(p *Pipeline) {
		p.sensor = src
	}
}

func WithProject(project Project) Option {
	return func(p *Pipeline) {
		p.project = project
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func New(l *ledger.Ledger, opts ...Option) *Pipeline {
	p := &Pipeline{
		ledger:  l,
		rng:     rand.New(rand.NewSource(DefaultSeed)),
		project: DefaultProject(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.sensor == nil {
		p.sensor = sensor.NewSynthesizer(p.rng, sensor.WithClock(p.now))
	}
	p.farmers = p.project.Roster()
	return p
}

type processConfig struct {
	batchID string
}

type ProcessOption func(*processConfig)

// WithBatchID uses id instead of a generated batch id.
func WithBatchID(id string) ProcessOption {
	return func(c *processConfig) {
		c.batchID = id
	}
}

// Process converts wasteKg of agricultural waste into biochar, estimates the
// CO2 it sequesters and mints credits to farmer. Business failures come back
// as ledger.BusinessError values and leave the history untouched.
func (p *Pipeline) Process(ctx context.Context, farmer ledger.Address, wasteKg decimal.Decimal, opts ...ProcessOption) (*ProcessingRecord, error) {
	if farmer == "" {
		return nil, contractViolation("farmer address is empty")
	}
	if !wasteKg.IsPositive() {
		return nil, contractViolation("waste mass must be positive, got %s", wasteKg)
	}

	cfg := processConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.batchID == "" {
		id, err := p.newBatchID()
		if err != nil {
			return nil, err
		}
		cfg.batchID = id
	}

	bLog := log.With("batch", cfg.batchID, "farmer", farmer)

	reading := p.sensor.Read(cfg.batchID)
	biochar := wasteKg.Mul(BiocharYield)
	co2 := biochar.Mul(CO2PerKgBiochar)

	if reading.QualityScore < ledger.MinQualityScore {
		bLog.Warnf("quality %.2f below threshold, not minting", reading.QualityScore)
		p.count(ctx, "rejected")
		return nil, NewQualityInsufficientError(reading.QualityScore)
	}

	hash, err := provenance.ContentHash(cfg.batchID)
	if err != nil {
		return nil, err
	}

	rcpt, err := p.ledger.Mint(ctx, ledger.MintRequest{
		Farmer:       farmer,
		CarbonAmount: co2,
		BatchID:      cfg.batchID,
		Origin:       reading.GPS,
		Methodology:  p.project.Methodology,
		ContentHash:  hash,
		BiocharMass:  biochar,
		QualityScore: int(reading.QualityScore),
	})
	if err != nil {
		bLog.Warnf("mint failed: %s", err)
		p.count(ctx, "rejected")
		return nil, err
	}

	rec := ProcessingRecord{
		BatchID:        cfg.batchID,
		Farmer:         farmer,
		WasteInput:     wasteKg,
		BiocharOutput:  biochar,
		CO2Sequestered: co2,
		TokensMinted:   rcpt.Tokens,
		Quality:        reading.QualityScore,
		ContentHash:    hash,
		Timestamp:      p.now(),
	}
	p.history = append(p.history, rec)
	p.count(ctx, "minted")

	bLog.Debugf("processed %s kg waste into %s kg biochar", wasteKg, biochar.StringFixed(2))
	return &rec, nil
}

// SimulatePilot spreads the project's tonnage evenly over numBatches runs,
// each for a randomly chosen farmer. Failed runs are dropped from the result
// and never abort the loop.
func (p *Pipeline) SimulatePilot(ctx context.Context, numBatches int) ([]ProcessingRecord, error) {
	if numBatches <= 0 {
		return nil, contractViolation("number of batches must be positive, got %d", numBatches)
	}
	if len(p.farmers) == 0 {
		return nil, contractViolation("project has no farmers")
	}

	perBatchKg := p.project.ProcessedTonnes.Div(decimal.NewFromInt(int64(numBatches))).Mul(kgPerTonne)

	results := make([]ProcessingRecord, 0, numBatches)
	for range numBatches {
		farmer := p.farmers[p.rng.Intn(len(p.farmers))]
		rec, err := p.Process(ctx, farmer, perBatchKg)
		if err != nil {
			log.Debugf("pilot batch for %s skipped: %s", farmer, err)
			continue
		}
		results = append(results, *rec)
	}

	log.Infof("pilot completed: %d of %d batches minted", len(results), numBatches)
	return results, nil
}

func (p *Pipeline) newBatchID() (string, error) {
	salt, err := uuid.NewRandomFromReader(p.rng)
	if err != nil {
		return "", fmt.Errorf("generating batch id: %w", err)
	}
	p.seq++
	return fmt.Sprintf("batch_%d_%04d_%s", p.now().Unix(), p.seq, salt.String()[:8]), nil
}

func (p *Pipeline) count(ctx context.Context, outcome string) {
	metrics.ProcessedBatches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// History returns a copy of the successful processing records, oldest first.
func (p *Pipeline) History() []ProcessingRecord {
	out := make([]ProcessingRecord, len(p.history))
	copy(out, p.history)
	return out
}

// Readings returns the sensor log when the sensor keeps one.
func (p *Pipeline) Readings() []sensor.Reading {
	if s, ok := p.sensor.(interface{ Readings() []sensor.Reading }); ok {
		return s.Readings()
	}
	return nil
}

func (p *Pipeline) Farmers() []ledger.Address {
	out := make([]ledger.Address, len(p.farmers))
	copy(out, p.farmers)
	return out
}

func (p *Pipeline) Ledger() *ledger.Ledger {
	return p.ledger
}

func (p *Pipeline) Project() Project {
	return p.project
}
