package flags_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dsk/internal/utils"
	flagutils "github.com/tyemirov/dsk/internal/utils/flags"
)

const executionFlagsSubtestNameTemplateConstant = "%d_%s"

func newExecutionFlagsCommand() *cobra.Command {
	command := &cobra.Command{Use: "dsk-test", RunE: func(*cobra.Command, []string) error { return nil }}
	flagutils.BindExecutionFlags(command, flagutils.ExecutionDefaults{}, flagutils.ExecutionFlagDefinitions{
		DryRun:    flagutils.ExecutionFlagDefinition{Name: flagutils.DryRunFlagName, Usage: "preview without executing", Enabled: true},
		AssumeYes: flagutils.ExecutionFlagDefinition{Name: flagutils.AssumeYesFlagName, Usage: "assume yes", Shorthand: "y", Enabled: true},
	})
	return command
}

func TestCollectExecutionFlags(testInstance *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		expectedFlags utils.ExecutionFlags
	}{
		{
			name:          "no_flags_leaves_values_unset",
			arguments:     nil,
			expectedFlags: utils.ExecutionFlags{},
		},
		{
			name:          "dry_run_flag_is_collected",
			arguments:     []string{"--dry-run"},
			expectedFlags: utils.ExecutionFlags{DryRun: true, DryRunSet: true},
		},
		{
			name:          "assume_yes_shorthand_is_collected",
			arguments:     []string{"-y"},
			expectedFlags: utils.ExecutionFlags{AssumeYes: true, AssumeYesSet: true},
		},
		{
			name:          "both_flags_are_collected",
			arguments:     []string{"--dry-run", "--yes"},
			expectedFlags: utils.ExecutionFlags{DryRun: true, DryRunSet: true, AssumeYes: true, AssumeYesSet: true},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(executionFlagsSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			command := newExecutionFlagsCommand()
			require.NoError(testInstance, command.ParseFlags(testCase.arguments))

			collectedFlags := flagutils.CollectExecutionFlags(command)
			require.Equal(testInstance, testCase.expectedFlags, collectedFlags)
		})
	}
}

func TestResolveExecutionFlagsPrefersContextValues(testInstance *testing.T) {
	command := newExecutionFlagsCommand()
	require.NoError(testInstance, command.ParseFlags([]string{"--dry-run"}))

	contextAccessor := utils.NewCommandContextAccessor()
	contextFlags := utils.ExecutionFlags{AssumeYes: true, AssumeYesSet: true}
	command.SetContext(contextAccessor.WithExecutionFlags(context.Background(), contextFlags))

	resolvedFlags, available := flagutils.ResolveExecutionFlags(command)
	require.True(testInstance, available)
	require.Equal(testInstance, contextFlags, resolvedFlags)
}

func TestResolveExecutionFlagsFallsBackToFlagValues(testInstance *testing.T) {
	command := newExecutionFlagsCommand()
	require.NoError(testInstance, command.ParseFlags([]string{"--yes"}))

	resolvedFlags, available := flagutils.ResolveExecutionFlags(command)
	require.True(testInstance, available)
	require.True(testInstance, resolvedFlags.AssumeYes)
	require.True(testInstance, resolvedFlags.AssumeYesSet)
	require.False(testInstance, resolvedFlags.DryRunSet)
}

func TestBoolFlagReportsMissingFlag(testInstance *testing.T) {
	command := &cobra.Command{Use: "dsk-test"}

	_, _, flagError := flagutils.BoolFlag(command, "missing")
	require.ErrorIs(testInstance, flagError, flagutils.ErrFlagNotDefined)
}

func TestFormatChoiceUsage(testInstance *testing.T) {
	usage := flagutils.FormatChoiceUsage("text", []string{"text", "json"}, "report output format")
	require.Equal(testInstance, "report output format (default text; choices: text, json)", usage)
}
