package execshell_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/execshell"
)

const (
	executorSubtestNameTemplateConstant = "%d_%s"
	sampleArgumentConstant              = "--version"
	sampleStandardOutputConstant        = "rclone v1.68.0"
	sampleStandardErrorConstant         = "permission denied"
)

type recordingCommandRunner struct {
	executedCommands []execshell.ShellCommand
	result           execshell.ExecutionResult
	runError         error
}

func (runner *recordingCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.executedCommands = append(runner.executedCommands, command)
	if runner.runError != nil {
		return execshell.ExecutionResult{}, runner.runError
	}
	return runner.result, nil
}

func TestNewShellExecutorValidatesDependencies(testInstance *testing.T) {
	testCases := []struct {
		name          string
		logger        *zap.Logger
		commandRunner execshell.CommandRunner
		expectedError error
	}{
		{
			name:          "missing_logger_is_rejected",
			commandRunner: &recordingCommandRunner{},
			expectedError: execshell.ErrLoggerNotConfigured,
		},
		{
			name:          "missing_runner_is_rejected",
			logger:        zap.NewNop(),
			expectedError: execshell.ErrCommandRunnerNotConfigured,
		},
		{
			name:          "complete_dependencies_are_accepted",
			logger:        zap.NewNop(),
			commandRunner: &recordingCommandRunner{},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(executorSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			executor, creationError := execshell.NewShellExecutor(testCase.logger, testCase.commandRunner, false)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, creationError, testCase.expectedError)
				require.Nil(testInstance, executor)
				return
			}
			require.NoError(testInstance, creationError)
			require.NotNil(testInstance, executor)
		})
	}
}

func TestShellExecutorExecute(testInstance *testing.T) {
	runnerFailure := errors.New("executable not found")

	testCases := []struct {
		name               string
		command            execshell.ShellCommand
		runnerResult       execshell.ExecutionResult
		runnerError        error
		expectedResult     execshell.ExecutionResult
		expectFailedError  bool
		expectWrappedError error
		expectMissingName  bool
	}{
		{
			name:           "successful_command_returns_result",
			command:        execshell.ShellCommand{Name: execshell.CommandRclone, Details: execshell.CommandDetails{Arguments: []string{sampleArgumentConstant}}},
			runnerResult:   execshell.ExecutionResult{StandardOutput: sampleStandardOutputConstant, ExitCode: 0},
			expectedResult: execshell.ExecutionResult{StandardOutput: sampleStandardOutputConstant, ExitCode: 0},
		},
		{
			name:              "non_zero_exit_produces_command_failed_error",
			command:           execshell.ShellCommand{Name: execshell.CommandFusermount, Details: execshell.CommandDetails{Arguments: []string{"-u", "/mnt/gdrive"}}},
			runnerResult:      execshell.ExecutionResult{StandardError: sampleStandardErrorConstant, ExitCode: 1},
			expectedResult:    execshell.ExecutionResult{StandardError: sampleStandardErrorConstant, ExitCode: 1},
			expectFailedError: true,
		},
		{
			name:               "runner_error_is_wrapped",
			command:            execshell.ShellCommand{Name: execshell.CommandJournalctl},
			runnerError:        runnerFailure,
			expectWrappedError: runnerFailure,
		},
		{
			name:              "missing_command_name_is_rejected",
			command:           execshell.ShellCommand{},
			expectMissingName: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(executorSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			commandRunner := &recordingCommandRunner{result: testCase.runnerResult, runError: testCase.runnerError}
			executor, creationError := execshell.NewShellExecutor(zap.NewNop(), commandRunner, false)
			require.NoError(testInstance, creationError)

			executionResult, executionError := executor.Execute(context.Background(), testCase.command)

			if testCase.expectMissingName {
				require.ErrorIs(testInstance, executionError, execshell.ErrCommandNameMissing)
				require.Empty(testInstance, commandRunner.executedCommands)
				return
			}

			require.Len(testInstance, commandRunner.executedCommands, 1)
			require.Equal(testInstance, testCase.command, commandRunner.executedCommands[0])

			if testCase.expectWrappedError != nil {
				require.ErrorIs(testInstance, executionError, testCase.expectWrappedError)
				executionFailure := execshell.CommandExecutionError{}
				require.ErrorAs(testInstance, executionError, &executionFailure)
				require.Equal(testInstance, testCase.command, executionFailure.Command)
				return
			}

			if testCase.expectFailedError {
				commandFailure := execshell.CommandFailedError{}
				require.ErrorAs(testInstance, executionError, &commandFailure)
				require.Equal(testInstance, testCase.expectedResult, commandFailure.Result)
				require.Equal(testInstance, testCase.expectedResult, executionResult)
				return
			}

			require.NoError(testInstance, executionError)
			require.Equal(testInstance, testCase.expectedResult, executionResult)
		})
	}
}

func TestShellExecutorNamedHelpers(testInstance *testing.T) {
	testCases := []struct {
		name            string
		invoke          func(executor *execshell.ShellExecutor) error
		expectedCommand execshell.CommandName
	}{
		{
			name: "rclone_helper_targets_rclone",
			invoke: func(executor *execshell.ShellExecutor) error {
				_, executionError := executor.ExecuteRclone(context.Background(), execshell.CommandDetails{})
				return executionError
			},
			expectedCommand: execshell.CommandRclone,
		},
		{
			name: "mountpoint_helper_targets_mountpoint",
			invoke: func(executor *execshell.ShellExecutor) error {
				_, executionError := executor.ExecuteMountpoint(context.Background(), execshell.CommandDetails{})
				return executionError
			},
			expectedCommand: execshell.CommandMountpoint,
		},
		{
			name: "package_manager_helper_targets_named_manager",
			invoke: func(executor *execshell.ShellExecutor) error {
				_, executionError := executor.ExecutePackageManager(context.Background(), execshell.CommandPacman, execshell.CommandDetails{})
				return executionError
			},
			expectedCommand: execshell.CommandPacman,
		},
		{
			name: "archive_tool_helper_targets_named_tool",
			invoke: func(executor *execshell.ShellExecutor) error {
				_, executionError := executor.ExecuteArchiveTool(context.Background(), execshell.CommandUnzip, execshell.CommandDetails{})
				return executionError
			},
			expectedCommand: execshell.CommandUnzip,
		},
		{
			name: "git_helper_targets_git",
			invoke: func(executor *execshell.ShellExecutor) error {
				_, executionError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{})
				return executionError
			},
			expectedCommand: execshell.CommandGit,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(executorSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			commandRunner := &recordingCommandRunner{}
			executor, creationError := execshell.NewShellExecutor(zap.NewNop(), commandRunner, false)
			require.NoError(testInstance, creationError)

			require.NoError(testInstance, testCase.invoke(executor))
			require.Len(testInstance, commandRunner.executedCommands, 1)
			require.Equal(testInstance, testCase.expectedCommand, commandRunner.executedCommands[0].Name)
		})
	}
}

func TestCommandFailedErrorMessageIncludesDetail(testInstance *testing.T) {
	failure := execshell.CommandFailedError{
		Command: execshell.ShellCommand{
			Name:    execshell.CommandFusermount,
			Details: execshell.CommandDetails{Arguments: []string{"-u", "/mnt/gdrive"}},
		},
		Result: execshell.ExecutionResult{ExitCode: 1, StandardError: sampleStandardErrorConstant},
	}

	message := failure.Error()
	require.Contains(testInstance, message, "fusermount command exited with code 1")
	require.Contains(testInstance, message, "-u /mnt/gdrive")
	require.Contains(testInstance, message, sampleStandardErrorConstant)
}
