package domain

import "time"

// PercentileBands holds the per-day portfolio value percentiles computed
// across trials. Every slice has length horizonDays+1; index 0 is the
// initial value. P5 <= P25 <= P50 <= P75 <= P95 at every day.
type PercentileBands struct {
	P5  []float64 `json:"p5"`
	P25 []float64 `json:"p25"`
	P50 []float64 `json:"p50"`
	P75 []float64 `json:"p75"`
	P95 []float64 `json:"p95"`
}

// RiskMetrics summarizes the terminal-return distribution across trials.
// VaR values are returns: a negative VaR denotes a loss threshold.
type RiskMetrics struct {
	MeanReturn   float64 `json:"mean_return"`
	MedianReturn float64 `json:"median_return"`
	Volatility   float64 `json:"volatility"` // population stddev of terminal returns
	ProbNegative float64 `json:"prob_negative"`
	VaR5         float64 `json:"var_5"`
	VaR1         float64 `json:"var_1"`
	CVaR5        float64 `json:"cvar_5"` // mean of returns <= VaR5
}

// AggregateStats summarizes terminal portfolio values across trials.
type AggregateStats struct {
	ExpectedFinalValue float64 `json:"expected_final_value"`
	MedianFinalValue   float64 `json:"median_final_value"`
	MinFinalValue      float64 `json:"min_final_value"`
	MaxFinalValue      float64 `json:"max_final_value"`
	BestReturn         float64 `json:"best_return"`
	WorstReturn        float64 `json:"worst_return"`
}

// AssetResult holds one asset's simulated terminal statistics.
type AssetResult struct {
	Ticker           string  `json:"ticker"`
	MeanReturn       float64 `json:"mean_return"`
	Volatility       float64 `json:"volatility"`
	MeanContribution float64 `json:"mean_final_contribution"` // mean terminal price * shares
}

// CompositionLine is one row of the portfolio composition snapshot.
type CompositionLine struct {
	Ticker       string  `json:"ticker"`
	WeightPct    float64 `json:"weight_pct"`
	DollarAmount float64 `json:"dollar_amount"`
	Shares       float64 `json:"shares"`
	PriceUsed    float64 `json:"price_used"`
}

// HistoricalStats reports the estimates the simulation was parameterized
// with: portfolio-level annualized return/volatility from the historical
// window plus per-asset figures.
type HistoricalStats struct {
	PortfolioReturn     float64       `json:"portfolio_return"`
	PortfolioVolatility float64       `json:"portfolio_volatility"`
	SharpeRatio         float64       `json:"sharpe_ratio"` // 0% risk-free
	Assets              []AssetFigure `json:"assets"`
}

// AssetFigure is one asset's historical annualized return and volatility.
type AssetFigure struct {
	Ticker     string  `json:"ticker"`
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
}

// RiskSummary is the complete output of one simulation run.
type RiskSummary struct {
	RunID        string    `json:"run_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	InitialValue float64   `json:"initial_value"`
	HorizonDays  int       `json:"horizon_days"`
	Trials       int       `json:"trials"`
	Seed         int64     `json:"seed"`

	Bands       PercentileBands   `json:"bands"`
	Risk        RiskMetrics       `json:"risk"`
	Aggregate   AggregateStats    `json:"aggregate"`
	Assets      []AssetResult     `json:"assets"`
	Composition []CompositionLine `json:"composition"`
	Historical  HistoricalStats   `json:"historical"`

	// Terminal-return percentiles keyed by percentile rank.
	ReturnPercentiles map[int]float64 `json:"return_percentiles"`
}

// SimulationRun is the persisted record of a completed run: the request
// shape plus headline metrics, without the full band arrays.
type SimulationRun struct {
	RunID              string
	CreatedAt          time.Time
	Tickers            []string
	InitialValue       float64
	HorizonDays        int
	Trials             int
	Seed               int64
	MeanReturn         float64
	MedianReturn       float64
	Volatility         float64
	ProbNegative       float64
	VaR5               float64
	VaR1               float64
	CVaR5              float64
	ExpectedFinalValue float64
	DurationMs         int64
}

// DailyBar is one cached daily closing price, the unit of the bar store.
type DailyBar struct {
	Ticker string
	Date   time.Time
	Close  float64
}
