package domain

import (
	"errors"
	"testing"
)

func validRequest() *SimulationRequest {
	return &SimulationRequest{
		Positions: []PortfolioPosition{
			{Ticker: "AAPL", DollarAmount: 40000},
			{Ticker: "MSFT", DollarAmount: 30000},
			{Ticker: "GOOGL", DollarAmount: 30000},
		},
		HorizonYears: 1,
		Trials:       1000,
		Seed:         42,
	}
}

func TestSimulationRequest_Valid(t *testing.T) {
	req := validRequest()
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got := req.InitialValue(); got != 100000 {
		t.Errorf("InitialValue: got %f, want 100000", got)
	}
	if got := req.HorizonDays(); got != 252 {
		t.Errorf("HorizonDays: got %d, want 252", got)
	}
}

func TestSimulationRequest_ApplyDefaults(t *testing.T) {
	req := &SimulationRequest{
		Positions: []PortfolioPosition{{Ticker: "AAPL", DollarAmount: 1000}},
	}
	req.ApplyDefaults()

	if req.HorizonYears != DefaultHorizonYears {
		t.Errorf("HorizonYears: got %f, want %f", req.HorizonYears, DefaultHorizonYears)
	}
	if req.Trials != DefaultTrials {
		t.Errorf("Trials: got %d, want %d", req.Trials, DefaultTrials)
	}
	if req.Seed != DefaultSeed {
		t.Errorf("Seed: got %d, want %d", req.Seed, DefaultSeed)
	}
}

func TestSimulationRequest_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SimulationRequest)
	}{
		{"no positions", func(r *SimulationRequest) { r.Positions = nil }},
		{"empty ticker", func(r *SimulationRequest) { r.Positions[0].Ticker = "" }},
		{"zero dollars", func(r *SimulationRequest) { r.Positions[1].DollarAmount = 0 }},
		{"negative dollars", func(r *SimulationRequest) { r.Positions[1].DollarAmount = -5 }},
		{"duplicate ticker", func(r *SimulationRequest) { r.Positions[2].Ticker = "AAPL" }},
		{"zero horizon", func(r *SimulationRequest) { r.HorizonYears = -1 }},
		{"huge horizon", func(r *SimulationRequest) { r.HorizonYears = 31 }},
		{"negative trials", func(r *SimulationRequest) { r.Trials = -1 }},
		{"too many trials", func(r *SimulationRequest) { r.Trials = MaxTrials + 1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(req)
			err := req.Validate()
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
