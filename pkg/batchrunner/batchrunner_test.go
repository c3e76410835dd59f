package batchrunner_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dsk/internal/shared"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

const (
	testSubtestNameTemplateConstant = "%d_%s"
	testActionFailureDetailConstant = "mount helper exploded"
	testBlockedReasonConstant       = "mount point occupied"
)

type scriptedPrompter struct {
	response     shared.ConfirmationResult
	promptError  error
	seenPrompts  []string
	promptCalled int
}

func (prompter *scriptedPrompter) Confirm(prompt string) (shared.ConfirmationResult, error) {
	prompter.promptCalled++
	prompter.seenPrompts = append(prompter.seenPrompts, prompt)
	return prompter.response, prompter.promptError
}

func readyTarget(name string, action func(context.Context) error) batchrunner.Target {
	return batchrunner.Target{
		Name:         name,
		Precondition: func(context.Context) batchrunner.Precondition { return batchrunner.Ready() },
		Action:       action,
	}
}

func TestRunEvaluatesEveryTarget(testInstance *testing.T) {
	testCases := []struct {
		name        string
		targetCount int
	}{
		{name: "empty_list", targetCount: 0},
		{name: "single_target", targetCount: 1},
		{name: "many_targets", targetCount: 7},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			preconditionCalls := 0
			targets := make([]batchrunner.Target, 0, testCase.targetCount)
			for targetIndex := 0; targetIndex < testCase.targetCount; targetIndex++ {
				targets = append(targets, batchrunner.Target{
					Name: fmt.Sprintf("target-%d", targetIndex),
					Precondition: func(context.Context) batchrunner.Precondition {
						preconditionCalls++
						return batchrunner.Ready()
					},
					Action: func(context.Context) error { return nil },
				})
			}

			result := batchrunner.NewRunner(batchrunner.Configuration{}).Run(context.Background(), targets)

			require.Equal(testInstance, testCase.targetCount, preconditionCalls)
			require.Len(testInstance, result.Outcomes, testCase.targetCount)
			require.Equal(testInstance, testCase.targetCount, result.Succeeded)
		})
	}
}

func TestRunEmptyTargetListYieldsZeroCountersAndSuccessExitCode(testInstance *testing.T) {
	result := batchrunner.NewRunner(batchrunner.Configuration{}).Run(context.Background(), nil)

	require.Equal(testInstance, 0, result.Succeeded)
	require.Equal(testInstance, 0, result.Skipped)
	require.Equal(testInstance, 0, result.Failed)
	require.Equal(testInstance, 0, result.ExitCode())
}

func TestRunAlreadyDoneTargetNeverInvokesAction(testInstance *testing.T) {
	actionInvoked := false
	targets := []batchrunner.Target{
		{
			Name:         "mounted-remote",
			Precondition: func(context.Context) batchrunner.Precondition { return batchrunner.AlreadyDone() },
			Action: func(context.Context) error {
				actionInvoked = true
				return nil
			},
		},
	}

	result := batchrunner.NewRunner(batchrunner.Configuration{}).Run(context.Background(), targets)

	require.False(testInstance, actionInvoked)
	require.Equal(testInstance, 1, result.Skipped)
	require.Equal(testInstance, batchrunner.ClassificationSkipped, result.Outcomes[0].Classification)
	require.Equal(testInstance, 0, result.ExitCode())
}

func TestRunFailingTargetDoesNotPreventSubsequentTargets(testInstance *testing.T) {
	targets := []batchrunner.Target{
		readyTarget("failing", func(context.Context) error { return errors.New(testActionFailureDetailConstant) }),
		readyTarget("succeeding", func(context.Context) error { return nil }),
	}

	result := batchrunner.NewRunner(batchrunner.Configuration{}).Run(context.Background(), targets)

	require.Len(testInstance, result.Outcomes, 2)
	require.Equal(testInstance, batchrunner.ClassificationFailed, result.Outcomes[0].Classification)
	require.Equal(testInstance, testActionFailureDetailConstant, result.Outcomes[0].Detail)
	require.Equal(testInstance, batchrunner.ClassificationSucceeded, result.Outcomes[1].Classification)
	require.Equal(testInstance, 1, result.ExitCode())
}

func TestRunBlockedTargetRecordsFailureWithReason(testInstance *testing.T) {
	targets := []batchrunner.Target{
		{
			Name: "occupied",
			Precondition: func(context.Context) batchrunner.Precondition {
				return batchrunner.Blocked(testBlockedReasonConstant)
			},
			Action: func(context.Context) error { return nil },
		},
	}

	result := batchrunner.NewRunner(batchrunner.Configuration{}).Run(context.Background(), targets)

	require.Equal(testInstance, 1, result.Failed)
	require.Equal(testInstance, testBlockedReasonConstant, result.Outcomes[0].Detail)
}

func TestRunMeasurementDeltaIsClippedAtZero(testInstance *testing.T) {
	testCases := []struct {
		name               string
		beforeValue        int64
		afterValue         int64
		expectedFreedBytes int64
	}{
		{name: "space_freed", beforeValue: 500, afterValue: 100, expectedFreedBytes: 400},
		{name: "space_grew", beforeValue: 100, afterValue: 150, expectedFreedBytes: 0},
		{name: "no_change", beforeValue: 100, afterValue: 100, expectedFreedBytes: 0},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			measurementValues := []int64{testCase.beforeValue, testCase.afterValue}
			measurementIndex := 0
			targets := []batchrunner.Target{
				{
					Name:         "cache",
					Precondition: func(context.Context) batchrunner.Precondition { return batchrunner.Ready() },
					Action:       func(context.Context) error { return nil },
					Measurement: func(context.Context) (int64, error) {
						value := measurementValues[measurementIndex]
						measurementIndex++
						return value, nil
					},
				},
			}

			result := batchrunner.NewRunner(batchrunner.Configuration{}).Run(context.Background(), targets)

			require.Equal(testInstance, testCase.expectedFreedBytes, result.Outcomes[0].FreedBytes)
			require.Equal(testInstance, testCase.expectedFreedBytes, result.FreedBytes)
		})
	}
}

func TestRunMeasurementFailureNeverFailsTheAction(testInstance *testing.T) {
	targets := []batchrunner.Target{
		{
			Name:         "journal",
			Precondition: func(context.Context) batchrunner.Precondition { return batchrunner.Ready() },
			Action:       func(context.Context) error { return nil },
			Measurement: func(context.Context) (int64, error) {
				return 0, errors.New("du unavailable")
			},
		},
	}

	result := batchrunner.NewRunner(batchrunner.Configuration{}).Run(context.Background(), targets)

	require.Equal(testInstance, 1, result.Succeeded)
	require.Equal(testInstance, int64(0), result.Outcomes[0].FreedBytes)
}

func TestRunMeasurementFailureDuringActionFailureKeepsFailureDetail(testInstance *testing.T) {
	targets := []batchrunner.Target{
		{
			Name:         "orphans",
			Precondition: func(context.Context) batchrunner.Precondition { return batchrunner.Ready() },
			Action:       func(context.Context) error { return errors.New(testActionFailureDetailConstant) },
			Measurement:  func(context.Context) (int64, error) { return 0, errors.New("unavailable") },
		},
	}

	result := batchrunner.NewRunner(batchrunner.Configuration{}).Run(context.Background(), targets)

	require.Equal(testInstance, 1, result.Failed)
	require.Equal(testInstance, testActionFailureDetailConstant, result.Outcomes[0].Detail)
	require.Equal(testInstance, int64(0), result.FreedBytes)
}

func TestRunDeclinedConfirmationCountsAsSkipped(testInstance *testing.T) {
	testCases := []struct {
		name        string
		response    shared.ConfirmationResult
		promptError error
	}{
		{name: "explicit_decline", response: shared.ConfirmationResult{}},
		{name: "prompt_error_treated_as_decline", promptError: errors.New("stdin closed")},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			prompter := &scriptedPrompter{response: testCase.response, promptError: testCase.promptError}
			actionInvoked := false
			targets := []batchrunner.Target{
				{
					Name:               "destructive",
					Precondition:       func(context.Context) batchrunner.Precondition { return batchrunner.Ready() },
					Action:             func(context.Context) error { actionInvoked = true; return nil },
					Confirmable:        true,
					ConfirmationPrompt: "Proceed? [a/N/y] ",
				},
				readyTarget("follow-up", func(context.Context) error { return nil }),
			}

			result := batchrunner.NewRunner(batchrunner.Configuration{Prompter: prompter}).Run(context.Background(), targets)

			require.False(testInstance, actionInvoked)
			require.Equal(testInstance, 1, result.Skipped)
			require.Equal(testInstance, 0, result.Failed)
			require.Equal(testInstance, 1, result.Succeeded)
			require.Equal(testInstance, 1, prompter.promptCalled)
		})
	}
}

func TestRunAssumeYesBypassesPrompter(testInstance *testing.T) {
	prompter := &scriptedPrompter{}
	targets := []batchrunner.Target{
		{
			Name:         "destructive",
			Precondition: func(context.Context) batchrunner.Precondition { return batchrunner.Ready() },
			Action:       func(context.Context) error { return nil },
			Confirmable:  true,
		},
	}

	result := batchrunner.NewRunner(batchrunner.Configuration{Prompter: prompter, AssumeYes: true}).Run(context.Background(), targets)

	require.Equal(testInstance, 1, result.Succeeded)
	require.Equal(testInstance, 0, prompter.promptCalled)
}

func TestRunDryRunRecordsSuccessWithoutInvokingActions(testInstance *testing.T) {
	actionInvoked := false
	targets := []batchrunner.Target{
		readyTarget("mount", func(context.Context) error { actionInvoked = true; return nil }),
	}

	result := batchrunner.NewRunner(batchrunner.Configuration{DryRun: true}).Run(context.Background(), targets)

	require.False(testInstance, actionInvoked)
	require.Equal(testInstance, 1, result.Succeeded)
}

func TestRunMixedOutcomeScenario(testInstance *testing.T) {
	targets := []batchrunner.Target{
		{
			Name:         "first",
			Precondition: func(context.Context) batchrunner.Precondition { return batchrunner.AlreadyDone() },
		},
		readyTarget("second", func(context.Context) error { return nil }),
		readyTarget("third", func(context.Context) error { return errors.New(testActionFailureDetailConstant) }),
	}

	result := batchrunner.NewRunner(batchrunner.Configuration{}).Run(context.Background(), targets)

	require.Equal(testInstance, 1, result.Succeeded)
	require.Equal(testInstance, 1, result.Skipped)
	require.Equal(testInstance, 1, result.Failed)
	require.Equal(testInstance, 1, result.ExitCode())
}

func TestRunConvergesWhenPreconditionsBecomeSatisfied(testInstance *testing.T) {
	mounted := map[string]bool{"alpha": false, "beta": false}
	buildTargets := func() []batchrunner.Target {
		targets := make([]batchrunner.Target, 0, len(mounted))
		for _, remoteName := range []string{"alpha", "beta"} {
			targets = append(targets, batchrunner.Target{
				Name: remoteName,
				Precondition: func(context.Context) batchrunner.Precondition {
					if mounted[remoteName] {
						return batchrunner.AlreadyDone()
					}
					return batchrunner.Ready()
				},
				Action: func(context.Context) error {
					mounted[remoteName] = true
					return nil
				},
			})
		}
		return targets
	}

	runner := batchrunner.NewRunner(batchrunner.Configuration{})

	firstResult := runner.Run(context.Background(), buildTargets())
	require.Equal(testInstance, 2, firstResult.Succeeded)
	require.Equal(testInstance, 0, firstResult.Skipped)

	secondResult := runner.Run(context.Background(), buildTargets())
	require.Equal(testInstance, 0, secondResult.Succeeded)
	require.Equal(testInstance, 2, secondResult.Skipped)
	require.Equal(testInstance, 0, secondResult.ExitCode())
}

func TestRunPreservesTargetOrderInOutcomes(testInstance *testing.T) {
	targetNames := []string{"cache", "orphans", "journal", "trash"}
	targets := make([]batchrunner.Target, 0, len(targetNames))
	for _, targetName := range targetNames {
		targets = append(targets, readyTarget(targetName, func(context.Context) error { return nil }))
	}

	result := batchrunner.NewRunner(batchrunner.Configuration{}).Run(context.Background(), targets)

	require.Len(testInstance, result.Outcomes, len(targetNames))
	for outcomeIndex, outcome := range result.Outcomes {
		require.Equal(testInstance, targetNames[outcomeIndex], outcome.Name)
	}
}
