package cleanup_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dsk/internal/cleanup"
	"github.com/tyemirov/dsk/internal/execshell"
	"github.com/tyemirov/dsk/internal/shared"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

type scriptedExecutor struct {
	executedCommands []string
	orphanListing    string
	journalUsages    []string
	commandError     error
}

func (executor *scriptedExecutor) ExecutePackageManager(executionContext context.Context, managerName execshell.CommandName, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.executedCommands = append(executor.executedCommands, string(managerName)+" "+strings.Join(details.Arguments, " "))
	if executor.commandError != nil {
		return execshell.ExecutionResult{}, executor.commandError
	}
	if len(details.Arguments) > 0 && details.Arguments[0] == "-Qtdq" {
		return execshell.ExecutionResult{StandardOutput: executor.orphanListing}, nil
	}
	return execshell.ExecutionResult{}, nil
}

func (executor *scriptedExecutor) ExecuteJournalctl(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.executedCommands = append(executor.executedCommands, "journalctl "+strings.Join(details.Arguments, " "))
	if len(details.Arguments) > 0 && details.Arguments[0] == "--disk-usage" {
		if len(executor.journalUsages) == 0 {
			return execshell.ExecutionResult{}, nil
		}
		nextUsage := executor.journalUsages[0]
		executor.journalUsages = executor.journalUsages[1:]
		return execshell.ExecutionResult{StandardOutput: nextUsage}, nil
	}
	return execshell.ExecutionResult{}, nil
}

func availableBinaries(binaryNames ...string) shared.BinaryLocator {
	available := map[string]struct{}{}
	for _, binaryName := range binaryNames {
		available[binaryName] = struct{}{}
	}
	return func(binaryName string) (string, error) {
		if _, present := available[binaryName]; present {
			return "/usr/bin/" + binaryName, nil
		}
		return "", fmt.Errorf("binary not found: %s", binaryName)
	}
}

func outcomeByName(testInstance *testing.T, result batchrunner.RunResult, targetName string) batchrunner.TargetOutcome {
	testInstance.Helper()
	for _, outcome := range result.Outcomes {
		if outcome.Name == targetName {
			return outcome
		}
	}
	testInstance.Fatalf("no outcome recorded for target %s", targetName)
	return batchrunner.TargetOutcome{}
}

func prepareHomeDirectory(testInstance *testing.T) string {
	testInstance.Helper()
	homeDirectory := testInstance.TempDir()
	testInstance.Setenv("HOME", homeDirectory)
	return homeDirectory
}

func TestServiceCleanWithPacman(testInstance *testing.T) {
	homeDirectory := prepareHomeDirectory(testInstance)
	cacheDirectory := filepath.Join(homeDirectory, ".cache", "application")
	require.NoError(testInstance, os.MkdirAll(cacheDirectory, 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(cacheDirectory, "cached.bin"), make([]byte, 2048), 0o644))

	executor := &scriptedExecutor{journalUsages: []string{
		"Archived and active journals take up 2.0M in the file system.",
		"Archived and active journals take up 1.0M in the file system.",
	}}
	service, serviceError := cleanup.NewService(nil, executor, shared.OSFileSystem{}, availableBinaries("pacman", "journalctl"))
	require.NoError(testInstance, serviceError)

	runResult, runError := service.Clean(context.Background(), cleanup.DefaultCommandConfiguration(), batchrunner.Configuration{})
	require.NoError(testInstance, runError)

	require.Contains(testInstance, executor.executedCommands, "pacman -Sc --noconfirm")
	require.Contains(testInstance, executor.executedCommands, "journalctl --vacuum-size=100M")

	journalOutcome := outcomeByName(testInstance, runResult, "journal logs")
	require.Equal(testInstance, batchrunner.ClassificationSucceeded, journalOutcome.Classification)
	require.Equal(testInstance, int64(1024*1024), journalOutcome.FreedBytes)

	userCacheOutcome := outcomeByName(testInstance, runResult, "user cache")
	require.Equal(testInstance, batchrunner.ClassificationSucceeded, userCacheOutcome.Classification)
	require.Equal(testInstance, int64(2048), userCacheOutcome.FreedBytes)

	cacheEntries, readError := os.ReadDir(filepath.Join(homeDirectory, ".cache"))
	require.NoError(testInstance, readError)
	require.Empty(testInstance, cacheEntries)

	require.Equal(testInstance, 0, runResult.Failed)
	require.Equal(testInstance, 0, runResult.ExitCode())
}

func TestServiceCleanWithoutPackageManager(testInstance *testing.T) {
	prepareHomeDirectory(testInstance)

	executor := &scriptedExecutor{}
	service, serviceError := cleanup.NewService(nil, executor, shared.OSFileSystem{}, availableBinaries())
	require.NoError(testInstance, serviceError)

	runResult, runError := service.Clean(context.Background(), cleanup.DefaultCommandConfiguration(), batchrunner.Configuration{})
	require.NoError(testInstance, runError)

	packageCacheOutcome := outcomeByName(testInstance, runResult, "package cache")
	require.Equal(testInstance, batchrunner.ClassificationFailed, packageCacheOutcome.Classification)
	require.Contains(testInstance, packageCacheOutcome.Detail, "no supported package manager")

	journalOutcome := outcomeByName(testInstance, runResult, "journal logs")
	require.Equal(testInstance, batchrunner.ClassificationFailed, journalOutcome.Classification)

	require.Equal(testInstance, 1, runResult.ExitCode())
}

func TestServiceCleanAggressiveRemovesOrphans(testInstance *testing.T) {
	testCases := []struct {
		name                   string
		orphanListing          string
		expectedClassification batchrunner.Classification
		expectedRemovalCommand string
	}{
		{
			name:                   "removes_listed_orphans",
			orphanListing:          "orphan-one\norphan-two\n",
			expectedClassification: batchrunner.ClassificationSucceeded,
			expectedRemovalCommand: "pacman -Rns --noconfirm orphan-one orphan-two",
		},
		{
			name:                   "skips_when_no_orphans",
			orphanListing:          "",
			expectedClassification: batchrunner.ClassificationSkipped,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			prepareHomeDirectory(subtestInstance)

			executor := &scriptedExecutor{orphanListing: testCase.orphanListing}
			service, serviceError := cleanup.NewService(nil, executor, shared.OSFileSystem{}, availableBinaries("pacman"))
			require.NoError(subtestInstance, serviceError)

			configuration := cleanup.DefaultCommandConfiguration()
			configuration.Aggressive = true

			runResult, runError := service.Clean(context.Background(), configuration, batchrunner.Configuration{})
			require.NoError(subtestInstance, runError)

			require.Contains(subtestInstance, executor.executedCommands, "pacman -Scc --noconfirm")

			orphanOutcome := outcomeByName(subtestInstance, runResult, "orphaned packages")
			require.Equal(subtestInstance, testCase.expectedClassification, orphanOutcome.Classification)
			if len(testCase.expectedRemovalCommand) > 0 {
				require.Contains(subtestInstance, executor.executedCommands, testCase.expectedRemovalCommand)
			}
		})
	}
}

func TestServiceCleanSkipsEmptyHomeTargets(testInstance *testing.T) {
	prepareHomeDirectory(testInstance)

	executor := &scriptedExecutor{}
	service, serviceError := cleanup.NewService(nil, executor, shared.OSFileSystem{}, availableBinaries("apt-get"))
	require.NoError(testInstance, serviceError)

	runResult, runError := service.Clean(context.Background(), cleanup.DefaultCommandConfiguration(), batchrunner.Configuration{})
	require.NoError(testInstance, runError)

	require.Contains(testInstance, executor.executedCommands, "apt-get clean")

	userCacheOutcome := outcomeByName(testInstance, runResult, "user cache")
	require.Equal(testInstance, batchrunner.ClassificationSkipped, userCacheOutcome.Classification)

	trashOutcome := outcomeByName(testInstance, runResult, "trash")
	require.Equal(testInstance, batchrunner.ClassificationSkipped, trashOutcome.Classification)
}

func TestParseJournalDiskUsage(testInstance *testing.T) {
	testCases := []struct {
		name          string
		usageOutput   string
		expectedBytes int64
	}{
		{
			name:          "parses_gigabytes",
			usageOutput:   "Archived and active journals take up 1.5G in the file system.",
			expectedBytes: int64(1.5 * 1024 * 1024 * 1024),
		},
		{
			name:          "parses_megabytes",
			usageOutput:   "Archived and active journals take up 16.0M in the file system.",
			expectedBytes: 16 * 1024 * 1024,
		},
		{
			name:          "parses_bare_bytes",
			usageOutput:   "take up 512 in the file system",
			expectedBytes: 512,
		},
		{
			name:          "unparseable_output_yields_zero",
			usageOutput:   "no usage information",
			expectedBytes: 0,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			require.Equal(subtestInstance, testCase.expectedBytes, cleanup.ParseJournalDiskUsage(testCase.usageOutput))
		})
	}
}
