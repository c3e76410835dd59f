package scaffold

import "strings"

const (
	defaultProjectKindConstant = ProjectKindPlain
	defaultGoVersionConstant   = "1.25"
)

// Project kind identifiers accepted by the init command.
const (
	ProjectKindPlain = "plain"
	ProjectKindGo    = "go"
)

// CommandConfiguration captures configurable scaffolding behavior.
type CommandConfiguration struct {
	Kind         string `mapstructure:"kind" yaml:"kind"`
	ModulePrefix string `mapstructure:"module_prefix" yaml:"module_prefix"`
	GoVersion    string `mapstructure:"go_version" yaml:"go_version"`
}

// DefaultCommandConfiguration returns the baseline scaffolding configuration.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Kind:      defaultProjectKindConstant,
		GoVersion: defaultGoVersionConstant,
	}
}

// Sanitize normalizes configured values, falling back to defaults for empty fields.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Kind = strings.ToLower(strings.TrimSpace(sanitized.Kind))
	if sanitized.Kind != ProjectKindPlain && sanitized.Kind != ProjectKindGo {
		sanitized.Kind = defaultProjectKindConstant
	}
	sanitized.ModulePrefix = strings.TrimSuffix(strings.TrimSpace(sanitized.ModulePrefix), "/")
	sanitized.GoVersion = strings.TrimSpace(sanitized.GoVersion)
	if len(sanitized.GoVersion) == 0 {
		sanitized.GoVersion = defaultGoVersionConstant
	}
	return sanitized
}
