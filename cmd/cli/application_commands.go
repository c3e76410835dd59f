package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/cleanup"
	"github.com/tyemirov/dsk/internal/extract"
	"github.com/tyemirov/dsk/internal/mount"
	"github.com/tyemirov/dsk/internal/permissions"
	"github.com/tyemirov/dsk/internal/scaffold"
)

const (
	mountCommandAliasConstant   = "m"
	cleanCommandAliasConstant   = "c"
	projectCommandAliasConstant = "p"
	extractCommandAliasConstant = "x"
)

func (application *Application) registerCommands(cobraCommand *cobra.Command) {
	loggerProvider := func() *zap.Logger {
		return application.logger
	}

	mountBuilder := mount.CommandBuilder{
		LoggerProvider:               loggerProvider,
		ConfigurationProvider:        application.mountCommandConfiguration,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
	}
	if mountCommand, mountBuildError := mountBuilder.Build(); mountBuildError == nil {
		mountCommand.Aliases = appendUnique(mountCommand.Aliases, mountCommandAliasConstant)
		cobraCommand.AddCommand(mountCommand)
	}

	cleanBuilder := cleanup.CommandBuilder{
		LoggerProvider:               loggerProvider,
		ConfigurationProvider:        application.cleanCommandConfiguration,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
	}
	if cleanCommand, cleanBuildError := cleanBuilder.Build(); cleanBuildError == nil {
		cleanCommand.Aliases = appendUnique(cleanCommand.Aliases, cleanCommandAliasConstant)
		cobraCommand.AddCommand(cleanCommand)
	}

	projectBuilder := scaffold.CommandBuilder{
		LoggerProvider:               loggerProvider,
		ConfigurationProvider:        application.projectCommandConfiguration,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
	}
	if projectCommand, projectBuildError := projectBuilder.Build(); projectBuildError == nil {
		projectCommand.Aliases = appendUnique(projectCommand.Aliases, projectCommandAliasConstant)
		cobraCommand.AddCommand(projectCommand)
	}

	permissionsBuilder := permissions.CommandBuilder{
		LoggerProvider: loggerProvider,
	}
	if permsCommand, permsBuildError := permissionsBuilder.Build(); permsBuildError == nil {
		cobraCommand.AddCommand(permsCommand)
	}

	extractBuilder := extract.CommandBuilder{
		LoggerProvider:               loggerProvider,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
	}
	if extractCommand, extractBuildError := extractBuilder.Build(); extractBuildError == nil {
		extractCommand.Aliases = appendUnique(extractCommand.Aliases, extractCommandAliasConstant)
		cobraCommand.AddCommand(extractCommand)
	}
}

func appendUnique(values []string, candidates ...string) []string {
	result := values
	for _, candidate := range candidates {
		trimmedCandidate := strings.TrimSpace(candidate)
		if len(trimmedCandidate) == 0 {
			continue
		}
		duplicate := false
		for _, existing := range result {
			if existing == trimmedCandidate {
				duplicate = true
				break
			}
		}
		if !duplicate {
			result = append(result, trimmedCandidate)
		}
	}
	return result
}
