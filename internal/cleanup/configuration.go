package cleanup

import "strings"

const (
	defaultJournalVacuumSizeConstant = "100M"
	defaultReportFormatConstant      = ReportFormatText
)

// Report format identifiers accepted by the clean command.
const (
	ReportFormatText = "text"
	ReportFormatYAML = "yaml"
)

// CommandConfiguration captures configurable cleanup behavior.
type CommandConfiguration struct {
	Aggressive        bool   `mapstructure:"aggressive" yaml:"aggressive"`
	JournalVacuumSize string `mapstructure:"journal_vacuum_size" yaml:"journal_vacuum_size"`
	ReportFormat      string `mapstructure:"report_format" yaml:"report_format"`
}

// DefaultCommandConfiguration returns the baseline cleanup configuration.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Aggressive:        false,
		JournalVacuumSize: defaultJournalVacuumSizeConstant,
		ReportFormat:      defaultReportFormatConstant,
	}
}

// Sanitize normalizes configured values, falling back to defaults for empty fields.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.JournalVacuumSize = strings.TrimSpace(sanitized.JournalVacuumSize)
	if len(sanitized.JournalVacuumSize) == 0 {
		sanitized.JournalVacuumSize = defaultJournalVacuumSizeConstant
	}
	sanitized.ReportFormat = strings.ToLower(strings.TrimSpace(sanitized.ReportFormat))
	if sanitized.ReportFormat != ReportFormatText && sanitized.ReportFormat != ReportFormatYAML {
		sanitized.ReportFormat = defaultReportFormatConstant
	}
	return sanitized
}
