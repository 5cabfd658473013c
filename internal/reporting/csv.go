package reporting

import (
	"fmt"
	"strings"

	"portfolio-risk-lab/internal/domain"
)

// RenderBandsCSV renders the per-day percentile bands as a CSV string.
func RenderBandsCSV(s *domain.RiskSummary) string {
	var sb strings.Builder

	// Header
	sb.WriteString("day,p5,p25,p50,p75,p95\n")

	// Rows
	for day := range s.Bands.P50 {
		sb.WriteString(fmt.Sprintf("%d,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			day,
			s.Bands.P5[day],
			s.Bands.P25[day],
			s.Bands.P50[day],
			s.Bands.P75[day],
			s.Bands.P95[day],
		))
	}

	return sb.String()
}
