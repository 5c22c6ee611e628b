package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kayak-destinations/models"
)

func f(v float64) *float64 { return &v }

func TestScoreWorkedExample(t *testing.T) {
	// Paris: temp 18 -> 0.52, rain 10 -> 0.8, weather 0.604, price 150 -> 1/3.
	// 0.6*0.604 + 0.4/3 = 0.495733...; the unrounded price component keeps
	// the fourth decimal at 7.
	out := Score(ScoreInputs{TempMean: f(18), RainSum: f(10), PriceMean: f(150), ReviewMean: f(8.5)}, DefaultWeights)
	assert.Equal(t, models.ScoreOK, out.Reason)
	assert.Equal(t, 0.4957, out.Value)

	// temp 20, rain 10, price 100: 0.6*0.66 + 0.4*2/3 = 0.662666...
	out = Score(ScoreInputs{TempMean: f(20), RainSum: f(10), PriceMean: f(100)}, DefaultWeights)
	assert.Equal(t, 0.6627, out.Value)

	// temp 18.4, rain 28: weather = 0.7*0.536 + 0.3*0.44 = 0.5072
	out = Score(ScoreInputs{TempMean: f(18.4), RainSum: f(28), PriceMean: f(100)}, DefaultWeights)
	assert.Equal(t, 0.571, out.Value)
}

func TestScoreComponents(t *testing.T) {
	tests := []struct {
		name string
		in   ScoreInputs
		want float64
	}{
		{"hot and dry with cheap hotels", ScoreInputs{TempMean: f(30), RainSum: f(0), PriceMean: f(50)}, 1},
		{"temperature clamps above 30", ScoreInputs{TempMean: f(100), RainSum: f(0), PriceMean: f(50)}, 1},
		{"cold and wet with expensive hotels", ScoreInputs{TempMean: f(5), RainSum: f(50), PriceMean: f(200)}, 0},
		{"negative values clamp to zero", ScoreInputs{TempMean: f(-10), RainSum: f(120), PriceMean: f(900)}, 0},
		{"missing price is neutral", ScoreInputs{TempMean: f(30), RainSum: f(0)}, 0.8},
		{"cheap price clamps to one", ScoreInputs{TempMean: f(5), RainSum: f(50), PriceMean: f(10)}, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Score(tt.in, DefaultWeights)
			assert.Equal(t, models.ScoreOK, out.Reason)
			assert.InDelta(t, tt.want, out.Value, 1e-9)
		})
	}
}

func TestScoreMissingWeather(t *testing.T) {
	cases := []ScoreInputs{
		{RainSum: f(3), PriceMean: f(60)},
		{TempMean: f(22), PriceMean: f(60)},
		{},
	}
	for _, in := range cases {
		out := Score(in, DefaultWeights)
		assert.Equal(t, models.ScoreMissingWeather, out.Reason)
		assert.Zero(t, out.Value)
	}
}

func TestScoreInvalidInput(t *testing.T) {
	out := Score(ScoreInputs{TempMean: f(math.NaN()), RainSum: f(1)}, DefaultWeights)
	assert.Equal(t, models.ScoreInvalidInput, out.Reason)
	assert.Zero(t, out.Value)

	out = Score(ScoreInputs{TempMean: f(20), RainSum: f(1), PriceMean: f(math.Inf(1))}, DefaultWeights)
	assert.Equal(t, models.ScoreInvalidInput, out.Reason)

	out = Score(ScoreInputs{TempMean: f(20), RainSum: f(1)}, Weights{})
	assert.Equal(t, models.ScoreInvalidInput, out.Reason)
}

func TestScoreIsRoundedToFourDecimals(t *testing.T) {
	out := Score(ScoreInputs{TempMean: f(17.123), RainSum: f(11.77), PriceMean: f(87.3)}, DefaultWeights)
	require.Equal(t, models.ScoreOK, out.Reason)
	assert.Equal(t, out.Value, math.Round(out.Value*1e4)/1e4)
	assert.GreaterOrEqual(t, out.Value, 0.0)
	assert.LessOrEqual(t, out.Value, 1.0)
}

func TestWeightsNormalize(t *testing.T) {
	w, err := Weights{Weather: 3, Price: 1}.Normalize()
	require.NoError(t, err)
	assert.InDelta(t, 0.75, w.Weather, 1e-12)
	assert.InDelta(t, 0.25, w.Price, 1e-12)
	assert.Zero(t, w.Review)

	w, err = DefaultWeights.Normalize()
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights, w)

	_, err = Weights{Weather: -1, Price: 2}.Normalize()
	assert.Error(t, err)
	_, err = Weights{}.Normalize()
	assert.Error(t, err)
}

func TestScaledWeightsGiveSameScore(t *testing.T) {
	in := ScoreInputs{TempMean: f(21), RainSum: f(7), PriceMean: f(120)}
	a := Score(in, Weights{Weather: 0.6, Price: 0.4})
	b := Score(in, Weights{Weather: 6, Price: 4})
	assert.Equal(t, a, b)
}

func TestReviewComponent(t *testing.T) {
	assert.Equal(t, NeutralComponent, ReviewComponent(nil))
	assert.Equal(t, 0.0, ReviewComponent(f(5)))
	assert.Equal(t, 1.0, ReviewComponent(f(9.8)))
	assert.InDelta(t, 0.5, ReviewComponent(f(7.75)), 1e-12)

	in := ScoreInputs{TempMean: f(30), RainSum: f(0), PriceMean: f(50), ReviewMean: f(6)}
	out := Score(in, Weights{Weather: 1, Price: 1, Review: 2})
	assert.InDelta(t, 0.5, out.Value, 1e-9)
}

func TestBreakdownMissingWeatherKeepsOtherComponents(t *testing.T) {
	b, reason := Breakdown(ScoreInputs{PriceMean: f(125), ReviewMean: f(9.5)}, DefaultWeights)
	assert.Equal(t, models.ScoreMissingWeather, reason)
	assert.InDelta(t, 0.5, b.Price, 1e-12)
	assert.Equal(t, 1.0, b.Review)
	assert.Zero(t, b.Total)
}
