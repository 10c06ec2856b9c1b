package adapter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "assay.dev/pkg/assay/internal/model"
)

// ReportFile is the file name used inside the output directory.
const ReportFile = "report.yaml"

// ReportStore persists synthesis reports.
type ReportStore interface {
	SaveReport(dir string, report m.Report) error
	LoadReport(dir string) (m.Report, error)
}

type yamlReportStore struct{}

// NewReportStore returns a ReportStore writing YAML files.
func NewReportStore() ReportStore {
	return &yamlReportStore{}
}

func (s *yamlReportStore) SaveReport(dir string, report m.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("Failed to create report directory", "dir", dir, "error", err)
		return fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(dir, ReportFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		slog.Error("Failed to write report", "path", path, "error", err)
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}

	return nil
}

func (s *yamlReportStore) LoadReport(dir string) (m.Report, error) {
	path := filepath.Join(dir, ReportFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return m.Report{}, fmt.Errorf("failed to read report %s: %w", path, err)
	}

	var report m.Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		slog.Error("Failed to decode report", "path", path, "error", err)
		return m.Report{}, fmt.Errorf("failed to decode report %s: %w", path, err)
	}

	return report, nil
}
