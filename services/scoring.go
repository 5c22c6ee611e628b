package services

import (
	"fmt"
	"math"

	"kayak-destinations/models"
)

// Weights balances the three components of a destination score. They are
// normalized to sum to 1 before use.
type Weights struct {
	Weather float64
	Price   float64
	Review  float64
}

// DefaultWeights is the batch pipeline's formula: 60% weather, 40% price.
var DefaultWeights = Weights{Weather: 0.6, Price: 0.4, Review: 0}

// Neutral component value used when price or review data is missing.
const NeutralComponent = 0.5

// Normalize scales the weights to sum to 1. Negative, non-finite or all-zero
// weights are rejected.
func (w Weights) Normalize() (Weights, error) {
	for _, v := range []float64{w.Weather, w.Price, w.Review} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return Weights{}, fmt.Errorf("weights must be finite and non-negative, got %+v", w)
		}
	}
	sum := w.Weather + w.Price + w.Review
	if sum == 0 {
		return Weights{}, fmt.Errorf("weights cannot all be zero")
	}
	if sum == 1 {
		return w, nil
	}
	return Weights{Weather: w.Weather / sum, Price: w.Price / sum, Review: w.Review / sum}, nil
}

// ScoreInputs are the per-city aggregates a score is computed from.
type ScoreInputs struct {
	TempMean   *float64
	RainSum    *float64
	PriceMean  *float64
	ReviewMean *float64
}

// InputsOf extracts the scoring inputs of a summary row.
func InputsOf(d *models.DestinationSummary) ScoreInputs {
	return ScoreInputs{
		TempMean:   d.TempMean,
		RainSum:    d.RainSum,
		PriceMean:  d.PriceMean,
		ReviewMean: d.ScoreMean,
	}
}

// Breakdown computes every score component. Missing weather is a hard zero
// for the total; missing price or review falls back to NeutralComponent.
func Breakdown(in ScoreInputs, w Weights) (models.ScoreBreakdown, models.ScoreFailure) {
	var b models.ScoreBreakdown

	for _, p := range []*float64{in.TempMean, in.RainSum, in.PriceMean, in.ReviewMean} {
		if p != nil && (math.IsNaN(*p) || math.IsInf(*p, 0)) {
			return b, models.ScoreInvalidInput
		}
	}
	w, err := w.Normalize()
	if err != nil {
		return b, models.ScoreInvalidInput
	}

	b.Price = PriceComponent(in.PriceMean)
	b.Review = ReviewComponent(in.ReviewMean)

	if in.TempMean == nil || in.RainSum == nil {
		return b, models.ScoreMissingWeather
	}

	b.Temp = clamp((*in.TempMean-5)/25, 0, 1)
	b.Rain = clamp(1-*in.RainSum/50, 0, 1)
	b.Weather = 0.7*b.Temp + 0.3*b.Rain
	b.Total = round4(w.Weather*b.Weather + w.Price*b.Price + w.Review*b.Review)
	return b, models.ScoreOK
}

// Score returns the rounded destination score, or 0 with the reason it could
// not be computed.
func Score(in ScoreInputs, w Weights) models.ScoreOutcome {
	b, reason := Breakdown(in, w)
	if reason != models.ScoreOK {
		return models.ScoreOutcome{Value: 0, Reason: reason}
	}
	return models.ScoreOutcome{Value: b.Total}
}

// PriceComponent maps a mean nightly price to [0, 1]: 50€ or less scores 1,
// 200€ or more scores 0.
func PriceComponent(priceMean *float64) float64 {
	if priceMean == nil {
		return NeutralComponent
	}
	return clamp(1-(*priceMean-50)/150, 0, 1)
}

// ReviewComponent maps a mean review score (out of 10) to [0, 1]: 6 or less
// scores 0, 9.5 or more scores 1.
func ReviewComponent(reviewMean *float64) float64 {
	if reviewMean == nil {
		return NeutralComponent
	}
	return clamp((*reviewMean-6)/3.5, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
