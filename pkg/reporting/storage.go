package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hkwon/chaos-verify/pkg/engine"
	"github.com/hkwon/chaos-verify/pkg/metrics"
	"github.com/hkwon/chaos-verify/pkg/runner"
)

// Storage persists verification runs: a JSON record plus the rendered text
// report per run, keeping only the last N runs on disk.
type Storage struct {
	outputDir string
	keepLastN int
	logger    *Logger
}

// NewStorage creates a storage instance rooted at outputDir.
func NewStorage(outputDir string, keepLastN int, logger *Logger) (*Storage, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Storage{
		outputDir: outputDir,
		keepLastN: keepLastN,
		logger:    logger,
	}, nil
}

// RunRecord is the serializable form of a run.
type RunRecord struct {
	ID        string           `json:"id"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   time.Time        `json:"ended_at"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioRecord `json:"scenarios"`
}

// ScenarioRecord is one result within a RunRecord.
type ScenarioRecord struct {
	Name                string            `json:"name"`
	Kind                string            `json:"kind"`
	Impact              string            `json:"impact"`
	Passed              bool              `json:"passed"`
	Skipped             bool              `json:"skipped,omitempty"`
	DurationSeconds     float64           `json:"duration_seconds"`
	Recovered           bool              `json:"recovered"`
	RecoveryTimeSeconds *float64          `json:"recovery_time_seconds,omitempty"`
	Errors              []string          `json:"errors,omitempty"`
	MetricsBefore       *metrics.Snapshot `json:"metrics_before,omitempty"`
	MetricsAfter        *metrics.Snapshot `json:"metrics_after,omitempty"`
	Log                 []string          `json:"log,omitempty"`
}

// NewRunRecord flattens a run into its serializable form.
func NewRunRecord(run *runner.Run, policy engine.Policy) RunRecord {
	rec := RunRecord{
		ID:        run.ID,
		StartedAt: run.StartedAt,
		EndedAt:   run.EndedAt,
	}
	for _, res := range run.Results {
		passed := res.Passed(policy)
		if passed {
			rec.Passed++
		} else {
			rec.Failed++
		}

		sr := ScenarioRecord{
			Name:            res.Scenario.Name,
			Kind:            string(res.Scenario.Kind),
			Impact:          string(res.Scenario.Impact),
			Passed:          passed,
			Skipped:         res.Skipped,
			DurationSeconds: res.Duration().Seconds(),
			Recovered:       res.SystemRecovered,
			MetricsBefore:   res.MetricsBefore,
			MetricsAfter:    res.MetricsAfter,
			Log:             res.Log,
		}
		if res.RecoveryTime != nil {
			secs := res.RecoveryTime.Seconds()
			sr.RecoveryTimeSeconds = &secs
		}
		for _, err := range res.ErrorsCaught {
			sr.Errors = append(sr.Errors, err.Error())
		}
		rec.Scenarios = append(rec.Scenarios, sr)
	}
	return rec
}

// SaveRun writes the run's JSON record and rendered text report and prunes
// older runs past the keep limit. It returns the JSON record's path.
func (s *Storage) SaveRun(run *runner.Run, policy engine.Policy) (string, error) {
	rec := NewRunRecord(run, policy)

	stem := fmt.Sprintf("run-%s-%s", run.StartedAt.Format("20060102-150405"), run.ID)
	jsonPath := filepath.Join(s.outputDir, stem+".json")
	textPath := filepath.Join(s.outputDir, stem+".txt")

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run record: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write run record: %w", err)
	}

	text := RenderAt(run.Results, policy, run.EndedAt)
	if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write text report: %w", err)
	}

	s.logger.Info("run report saved", "path", jsonPath)

	if s.keepLastN > 0 {
		if err := s.pruneOldRuns(); err != nil {
			s.logger.Warn("failed to prune old runs", "error", err)
		}
	}

	return jsonPath, nil
}

// LoadRecord reads a run record back from disk.
func (s *Storage) LoadRecord(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return &rec, nil
}

// RunSummary is a directory listing entry for one stored run.
type RunSummary struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
	Filepath  string    `json:"filepath"`
}

// ListRuns lists stored runs, newest first.
func (s *Storage) ListRuns() ([]RunSummary, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	summaries := make([]RunSummary, 0)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.outputDir, entry.Name())
		rec, err := s.LoadRecord(path)
		if err != nil {
			s.logger.Warn("failed to load run record", "path", path, "error", err)
			continue
		}
		summaries = append(summaries, RunSummary{
			ID:        rec.ID,
			StartedAt: rec.StartedAt,
			Passed:    rec.Passed,
			Failed:    rec.Failed,
			Filepath:  path,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries, nil
}

// pruneOldRuns removes stored runs past the keep limit, newest kept.
func (s *Storage) pruneOldRuns() error {
	summaries, err := s.ListRuns()
	if err != nil {
		return err
	}
	if len(summaries) <= s.keepLastN {
		return nil
	}

	for _, old := range summaries[s.keepLastN:] {
		if err := os.Remove(old.Filepath); err != nil {
			s.logger.Warn("failed to delete old run record", "path", old.Filepath, "error", err)
			continue
		}
		textPath := old.Filepath[:len(old.Filepath)-len(".json")] + ".txt"
		if err := os.Remove(textPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to delete old text report", "path", textPath, "error", err)
		}
		s.logger.Debug("deleted old run", "path", old.Filepath)
	}
	return nil
}
