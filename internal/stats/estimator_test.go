package stats

import (
	"errors"
	"math"
	"testing"
	"time"

	"portfolio-risk-lab/internal/domain"
)

func seriesFromCloses(ticker string, closes []float64) *domain.AssetSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return &domain.AssetSeries{Ticker: ticker, Points: points}
}

// growthCloses builds a price path with a constant daily log-return.
func growthCloses(n int, start, dailyLogReturn float64) []float64 {
	out := make([]float64, n)
	p := start
	for i := range out {
		out[i] = p
		p *= math.Exp(dailyLogReturn)
	}
	return out
}

func constantCloses(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestEstimate_ConstantGrowth(t *testing.T) {
	// Constant log-return r: mean is r, sample stddev is 0.
	const r = 0.001
	s := seriesFromCloses("GROW", growthCloses(60, 100, r))

	stats, err := Estimate([]*domain.AssetSeries{s})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	if stats.Observations != 59 {
		t.Errorf("Observations: got %d, want 59", stats.Observations)
	}
	if math.Abs(stats.DailyMean[0]-r) > 1e-12 {
		t.Errorf("DailyMean: got %v, want %v", stats.DailyMean[0], r)
	}
	if math.Abs(stats.AnnualMean[0]-r*domain.TradingDaysPerYear) > 1e-9 {
		t.Errorf("AnnualMean: got %v, want %v", stats.AnnualMean[0], r*domain.TradingDaysPerYear)
	}
	if stats.AnnualVol[0] > 1e-9 {
		t.Errorf("AnnualVol of constant growth: got %v, want ~0", stats.AnnualVol[0])
	}
}

func TestEstimate_AlternatingReturns(t *testing.T) {
	// Closes alternate 100, 110, 100, ... so returns alternate +r, -r with
	// r = ln(1.1). Mean 0; sample variance r²·n/(n-1).
	closes := make([]float64, 61)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 110
		}
	}
	s := seriesFromCloses("ALT", closes)

	stats, err := Estimate([]*domain.AssetSeries{s})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	r := math.Log(1.1)
	nObs := float64(stats.Observations)
	wantDailyVar := r * r * nObs / (nObs - 1)

	if math.Abs(stats.DailyMean[0]) > 1e-12 {
		t.Errorf("DailyMean: got %v, want 0", stats.DailyMean[0])
	}
	if math.Abs(stats.DailyCov[0][0]-wantDailyVar) > 1e-12 {
		t.Errorf("daily variance: got %v, want %v", stats.DailyCov[0][0], wantDailyVar)
	}

	wantVol := math.Sqrt(wantDailyVar * domain.TradingDaysPerYear)
	if math.Abs(stats.AnnualVol[0]-wantVol) > 1e-12 {
		t.Errorf("AnnualVol: got %v, want %v", stats.AnnualVol[0], wantVol)
	}
}

func TestEstimate_CorrelationMatrix(t *testing.T) {
	a := seriesFromCloses("A", alternatingGrowth(60, 100, 0.002, -0.001))
	c := seriesFromCloses("C", alternatingGrowth(60, 200, -0.001, 0.002))

	stats, err := Estimate([]*domain.AssetSeries{a, c})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	if stats.Correlation[0][0] != 1 || stats.Correlation[1][1] != 1 {
		t.Errorf("diagonal: got %v and %v, want exactly 1",
			stats.Correlation[0][0], stats.Correlation[1][1])
	}
	off := stats.Correlation[0][1]
	if off < -1 || off > 1 {
		t.Errorf("off-diagonal correlation %v outside [-1, 1]", off)
	}
	if math.Abs(stats.Correlation[0][1]-stats.Correlation[1][0]) > 1e-15 {
		t.Error("correlation matrix not symmetric")
	}

	// Identical return series: correlation 1 within rounding.
	dup := seriesFromCloses("D", alternatingGrowth(60, 75, 0.002, -0.001))
	stats, err = Estimate([]*domain.AssetSeries{a, dup})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if math.Abs(stats.Correlation[0][1]-1) > 1e-9 {
		t.Errorf("identical return series: correlation %v, want ~1", stats.Correlation[0][1])
	}
}

// alternatingGrowth builds closes whose returns alternate between r1 and r2.
func alternatingGrowth(n int, start, r1, r2 float64) []float64 {
	out := make([]float64, n)
	p := start
	for i := range out {
		out[i] = p
		if i%2 == 0 {
			p *= math.Exp(r1)
		} else {
			p *= math.Exp(r2)
		}
	}
	return out
}

func TestEstimate_ZeroVarianceCorrelation(t *testing.T) {
	flat := seriesFromCloses("FLAT", constantCloses(60, 100))
	moving := seriesFromCloses("MOV", alternatingGrowth(60, 100, 0.002, -0.001))

	stats, err := Estimate([]*domain.AssetSeries{flat, moving})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	// Zero-variance series: correlation defined as 0, even on the diagonal.
	if stats.Correlation[0][0] != 0 {
		t.Errorf("flat diagonal: got %v, want 0", stats.Correlation[0][0])
	}
	if stats.Correlation[0][1] != 0 || stats.Correlation[1][0] != 0 {
		t.Errorf("flat cross-correlation: got %v / %v, want 0",
			stats.Correlation[0][1], stats.Correlation[1][0])
	}
	if stats.Correlation[1][1] != 1 {
		t.Errorf("moving diagonal: got %v, want 1", stats.Correlation[1][1])
	}
}

func TestEstimate_DailyCovarianceIsCanonical(t *testing.T) {
	a := seriesFromCloses("A", alternatingGrowth(60, 100, 0.002, -0.001))
	b := seriesFromCloses("B", alternatingGrowth(60, 50, 0.001, -0.002))

	stats, err := Estimate([]*domain.AssetSeries{a, b})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	// Annualized covariance is exactly daily x 252, never re-derived.
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want := stats.DailyCov[i][j] * domain.TradingDaysPerYear
			if stats.AnnualizedCov[i][j] != want {
				t.Errorf("annualized cov (%d,%d): got %v, want %v",
					i, j, stats.AnnualizedCov[i][j], want)
			}
		}
	}

	// Diagonal agrees with AnnualVol².
	for i := 0; i < 2; i++ {
		wantVar := stats.AnnualVol[i] * stats.AnnualVol[i]
		if math.Abs(stats.AnnualizedCov[i][i]-wantVar) > 1e-12 {
			t.Errorf("asset %d: annualized variance %v, AnnualVol² %v",
				i, stats.AnnualizedCov[i][i], wantVar)
		}
	}
}

func TestEstimate_Errors(t *testing.T) {
	short := seriesFromCloses("S", constantCloses(10, 100))
	if _, err := Estimate([]*domain.AssetSeries{short}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("short series: expected ErrInsufficientData, got %v", err)
	}

	a := seriesFromCloses("A", constantCloses(60, 100))
	b := seriesFromCloses("B", constantCloses(50, 100))
	if _, err := Estimate([]*domain.AssetSeries{a, b}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("mismatched lengths: expected ErrLengthMismatch, got %v", err)
	}

	if _, err := Estimate(nil); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("nil input: expected ErrInsufficientData, got %v", err)
	}
}
