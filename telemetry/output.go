package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/spotlight/config"
)

// OutputManager handles round output with CSV logging.
type OutputManager struct {
	dir         string
	scoreFile   *os.File
	summaryFile *os.File
	perfFile    *os.File

	// Track if headers have been written
	scoreHeaderWritten   bool
	summaryHeaderWritten bool
	perfHeaderWritten    bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **os.File
	}{
		{"scoreboard.csv", &om.scoreFile},
		{"summary.csv", &om.summaryFile},
		{"perf.csv", &om.perfFile},
	}
	for _, f := range files {
		fh, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		*f.dst = fh
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// writeCSV marshals records, with headers only on the first write.
func writeCSV[T any](f *os.File, written *bool, records []T) error {
	if len(records) == 0 {
		return nil
	}
	if !*written {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*written = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// WriteScores appends scoreboard samples to scoreboard.csv.
func (om *OutputManager) WriteScores(samples []ScoreSample) error {
	if om == nil {
		return nil
	}
	if err := writeCSV(om.scoreFile, &om.scoreHeaderWritten, samples); err != nil {
		return fmt.Errorf("writing scoreboard: %w", err)
	}
	return nil
}

// WriteSummary appends a round summary to summary.csv.
func (om *OutputManager) WriteSummary(s RoundSummary) error {
	if om == nil {
		return nil
	}
	if err := writeCSV(om.summaryFile, &om.summaryHeaderWritten, []RoundSummary{s}); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, tick int32) error {
	if om == nil {
		return nil
	}
	if err := writeCSV(om.perfFile, &om.perfHeaderWritten, []PerfStatsCSV{stats.ToCSV(tick)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.scoreFile, om.summaryFile, om.perfFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
