package cleanup

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/dsk/internal/shared"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

const reportLineTemplateConstant = "%s\n"

// TargetReport captures the reported outcome for a single cleanup target.
type TargetReport struct {
	Name       string `yaml:"name"`
	Result     string `yaml:"result"`
	Detail     string `yaml:"detail,omitempty"`
	FreedBytes int64  `yaml:"freed_bytes"`
	Freed      string `yaml:"freed"`
}

// SummaryReport aggregates counters across all cleanup targets.
type SummaryReport struct {
	Succeeded  int    `yaml:"succeeded"`
	Skipped    int    `yaml:"skipped"`
	Failed     int    `yaml:"failed"`
	FreedBytes int64  `yaml:"freed_bytes"`
	Freed      string `yaml:"freed"`
}

// Report is the serializable record of a cleanup run.
type Report struct {
	GeneratedAt string         `yaml:"generated_at"`
	Aggressive  bool           `yaml:"aggressive"`
	Targets     []TargetReport `yaml:"targets"`
	Summary     SummaryReport  `yaml:"summary"`
}

// BuildReport converts a run result into a report snapshot.
func BuildReport(clock shared.Clock, configuration CommandConfiguration, result batchrunner.RunResult) Report {
	if clock == nil {
		clock = shared.SystemClock{}
	}

	targetReports := make([]TargetReport, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		targetReports = append(targetReports, TargetReport{
			Name:       outcome.Name,
			Result:     string(outcome.Classification),
			Detail:     outcome.Detail,
			FreedBytes: outcome.FreedBytes,
			Freed:      batchrunner.FormatByteCount(outcome.FreedBytes),
		})
	}

	return Report{
		GeneratedAt: clock.Now().UTC().Format(time.RFC3339),
		Aggressive:  configuration.Aggressive,
		Targets:     targetReports,
		Summary: SummaryReport{
			Succeeded:  result.Succeeded,
			Skipped:    result.Skipped,
			Failed:     result.Failed,
			FreedBytes: result.FreedBytes,
			Freed:      batchrunner.FormatByteCount(result.FreedBytes),
		},
	}
}

// RenderReport writes the report in the requested format.
func RenderReport(output io.Writer, reportFormat string, report Report, result batchrunner.RunResult) error {
	if reportFormat == ReportFormatYAML {
		encodedReport, marshalError := yaml.Marshal(report)
		if marshalError != nil {
			return marshalError
		}
		_, writeError := output.Write(encodedReport)
		return writeError
	}

	for _, outcome := range result.Outcomes {
		if _, writeError := fmt.Fprintf(output, reportLineTemplateConstant, batchrunner.RenderOutcomeLine(outcome)); writeError != nil {
			return writeError
		}
	}
	if summaryLine := batchrunner.RenderSummaryLine(result); len(summaryLine) > 0 {
		if _, writeError := fmt.Fprintf(output, reportLineTemplateConstant, summaryLine); writeError != nil {
			return writeError
		}
	}
	return nil
}
