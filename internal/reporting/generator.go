package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"portfolio-risk-lab/internal/domain"
)

const (
	reportFileName = "report.md"
	bandsFileName  = "bands.csv"
)

// Generator writes rendered reports to an output directory.
type Generator struct {
	outputDir string
}

// NewGenerator creates a generator targeting the given directory. The
// directory is created on Generate if it does not exist.
func NewGenerator(outputDir string) *Generator {
	return &Generator{outputDir: outputDir}
}

// Generate renders the summary and writes report.md and bands.csv.
// It returns the paths of the written files.
func (g *Generator) Generate(summary *domain.RiskSummary) ([]string, error) {
	if summary == nil {
		return nil, fmt.Errorf("nil summary")
	}
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	reportPath := filepath.Join(g.outputDir, reportFileName)
	if err := os.WriteFile(reportPath, []byte(RenderMarkdown(summary)), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", reportFileName, err)
	}

	bandsPath := filepath.Join(g.outputDir, bandsFileName)
	if err := os.WriteFile(bandsPath, []byte(RenderBandsCSV(summary)), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", bandsFileName, err)
	}

	return []string{reportPath, bandsPath}, nil
}
