// Package sensor synthesizes the telemetry a pyrolysis kiln would report.
// Nothing here talks to hardware.
package sensor

import (
	"fmt"
	"math/rand"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("sensor")

const SourceSimulated = "Simulated IoT"

type Reading struct {
	BatchID       string    `json:"batch_id"`
	Timestamp     time.Time `json:"timestamp"`
	Temperature   float64   `json:"temperature"`
	Pressure      float64   `json:"pressure"`
	Humidity      float64   `json:"humidity"`
	CarbonContent float64   `json:"carbon_content"`
	PH            float64   `json:"ph"`
	QualityScore  float64   `json:"quality_score"`
	GPS           string    `json:"gps"`
	Source        string    `json:"source"`
}

// Source produces one reading per batch.
type Source interface {
	Read(batchID string) Reading
}

type Range struct {
	Min, Max float64
}

func (r Range) sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

var (
	temperatureRange   = Range{450, 550}
	pressureRange      = Range{0.9, 1.1}
	humidityRange      = Range{5, 15}
	carbonContentRange = Range{85, 92}
	phRange            = Range{8.5, 10.5}

	DefaultQualityRange = Range{85, 95}
)

// Synthesizer draws readings from a seeded random source and keeps every
// reading it has produced.
type Synthesizer struct {
	rng      *rand.Rand
	quality  Range
	now      func() time.Time
	readings []Reading
}

var _ Source = (*Synthesizer)(nil)

type Option func(*Synthesizer)

// WithQualityRange replaces the uniform quality score distribution.
func WithQualityRange(min, max float64) Option {
	return func(s *Synthesizer) {
		s.quality = Range{min, max}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) {
		s.now = now
	}
}

func NewSynthesizer(rng *rand.Rand, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		rng:     rng,
		quality: DefaultQualityRange,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synthesizer) Read(batchID string) Reading {
	r := Reading{
		BatchID:       batchID,
		Timestamp:     s.now(),
		Temperature:   temperatureRange.sample(s.rng),
		Pressure:      pressureRange.sample(s.rng),
		Humidity:      humidityRange.sample(s.rng),
		CarbonContent: carbonContentRange.sample(s.rng),
		PH:            phRange.sample(s.rng),
		QualityScore:  s.quality.sample(s.rng),
		GPS:           fmt.Sprintf("-6.%d, -76.%d", 1000+s.rng.Intn(9000), 1000+s.rng.Intn(9000)),
		Source:        SourceSimulated,
	}
	s.readings = append(s.readings, r)
	log.Debugf("reading for %s: quality %.2f", batchID, r.QualityScore)
	return r
}

// Readings returns a copy of every reading produced so far.
func (s *Synthesizer) Readings() []Reading {
	out := make([]Reading, len(s.readings))
	copy(out, s.readings)
	return out
}
