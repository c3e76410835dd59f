package cli

import (
	_ "embed"

	"github.com/tyemirov/dsk/internal/cleanup"
	"github.com/tyemirov/dsk/internal/mount"
	"github.com/tyemirov/dsk/internal/scaffold"
)

//go:embed config.yaml
var embeddedDefaultConfiguration []byte

// EmbeddedDefaultConfiguration returns the embedded default configuration content and its type.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return embeddedDefaultConfiguration, configurationTypeConstant
}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common  ApplicationCommonConfiguration `mapstructure:"common"`
	Mount   mount.CommandConfiguration     `mapstructure:"mount"`
	Clean   cleanup.CommandConfiguration   `mapstructure:"clean"`
	Project scaffold.CommandConfiguration  `mapstructure:"project"`
}

// ApplicationCommonConfiguration stores logging and execution defaults shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	DryRun    bool   `mapstructure:"dry_run"`
	AssumeYes bool   `mapstructure:"assume_yes"`
}

func (application *Application) mountCommandConfiguration() mount.CommandConfiguration {
	return application.configuration.Mount
}

func (application *Application) cleanCommandConfiguration() cleanup.CommandConfiguration {
	return application.configuration.Clean
}

func (application *Application) projectCommandConfiguration() scaffold.CommandConfiguration {
	return application.configuration.Project
}
