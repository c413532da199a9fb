package simulator

import (
	"math"
	"math/rand"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// Distribution is a sampler for a yardage quantity
type Distribution interface {
	Sample(rng *rand.Rand) float64
	Mean() float64
	StdDev() float64
}

// NormalDistribution represents a normal (Gaussian) distribution
type NormalDistribution struct {
	mean   float64
	stdDev float64
}

func NewNormalDistribution(mean, stdDev float64) *NormalDistribution {
	return &NormalDistribution{
		mean:   mean,
		stdDev: stdDev,
	}
}

func (d *NormalDistribution) Sample(rng *rand.Rand) float64 {
	return rng.NormFloat64()*d.stdDev + d.mean
}

func (d *NormalDistribution) Mean() float64 {
	return d.mean
}

func (d *NormalDistribution) StdDev() float64 {
	return d.stdDev
}

// maxRejections bounds rejection sampling before falling back to a clamp
const maxRejections = 64

// TruncatedNormalDistribution represents a normal distribution with bounds
type TruncatedNormalDistribution struct {
	*NormalDistribution
	min float64
	max float64
}

func NewTruncatedNormalDistribution(mean, stdDev, min, max float64) *TruncatedNormalDistribution {
	return &TruncatedNormalDistribution{
		NormalDistribution: NewNormalDistribution(mean, stdDev),
		min:                min,
		max:                max,
	}
}

func (d *TruncatedNormalDistribution) Sample(rng *rand.Rand) float64 {
	for i := 0; i < maxRejections; i++ {
		sample := d.NormalDistribution.Sample(rng)
		if sample >= d.min && sample <= d.max {
			return sample
		}
	}
	return clamp(d.mean, d.min, d.max)
}

// BandDistribution draws a band by weight, then a whole yard uniformly inside it
type BandDistribution struct {
	bands []models.YardBand
	total float64
}

func NewBandDistribution(bands []models.YardBand) *BandDistribution {
	d := &BandDistribution{bands: make([]models.YardBand, 0, len(bands))}
	for _, b := range bands {
		if b.Weight <= 0 {
			continue
		}
		d.bands = append(d.bands, b)
		d.total += b.Weight
	}
	return d
}

func (d *BandDistribution) Sample(rng *rand.Rand) float64 {
	r := rng.Float64() * d.total
	band := d.bands[len(d.bands)-1]
	for _, b := range d.bands {
		if r < b.Weight {
			band = b
			break
		}
		r -= b.Weight
	}
	return float64(band.Min + rng.Intn(band.Max-band.Min+1))
}

func (d *BandDistribution) Mean() float64 {
	mean := 0.0
	for _, b := range d.bands {
		mean += b.Weight / d.total * float64(b.Min+b.Max) / 2
	}
	return mean
}

func (d *BandDistribution) StdDev() float64 {
	mean := d.Mean()
	secondMoment := 0.0
	for _, b := range d.bands {
		n := float64(b.Max - b.Min + 1)
		mid := float64(b.Min+b.Max) / 2
		secondMoment += b.Weight / d.total * ((n*n-1)/12 + mid*mid)
	}
	return math.Sqrt(math.Max(0, secondMoment-mean*mean))
}

// NewYardsDistribution builds the sampler a yards spec describes
func NewYardsDistribution(spec models.YardsSpec, field string) (Distribution, error) {
	if err := spec.Validate(field); err != nil {
		return nil, err
	}
	if spec.Kind == models.YardsNormal {
		return NewTruncatedNormalDistribution(spec.Mean, spec.StdDev, spec.Min, spec.Max), nil
	}
	return NewBandDistribution(spec.Bands), nil
}

// constantDistribution always yields the same value
type constantDistribution float64

func (c constantDistribution) Sample(*rand.Rand) float64 { return float64(c) }
func (c constantDistribution) Mean() float64             { return float64(c) }
func (c constantDistribution) StdDev() float64           { return 0 }
