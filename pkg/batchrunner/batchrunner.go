package batchrunner

import (
	"context"

	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/shared"
)

const (
	alreadySatisfiedDetailConstant       = "already satisfied"
	confirmationDeclinedDetailConstant   = "confirmation declined"
	dryRunDetailConstant                 = "dry-run"
	targetStartMessageConstant           = "target evaluation starting"
	targetBlockedMessageConstant         = "target blocked"
	targetAlreadyDoneMessageConstant     = "target already satisfied"
	targetDeclinedMessageConstant        = "target declined by user"
	targetActionFailedMessageConstant    = "target action failed"
	targetSucceededMessageConstant       = "target completed"
	measurementFailedMessageConstant     = "measurement unavailable"
	targetNameFieldConstant              = "target"
	reasonFieldConstant                  = "reason"
	freedBytesFieldConstant              = "freed_bytes"
	measurementPhaseFieldConstant        = "phase"
	measurementPhaseBeforeDetailConstant = "before"
	measurementPhaseAfterDetailConstant  = "after"
)

// PreconditionStatus classifies a target before any side effect is attempted.
type PreconditionStatus int

// Supported precondition statuses.
const (
	StatusReady PreconditionStatus = iota
	StatusAlreadyDone
	StatusBlocked
)

// Precondition pairs a status with an optional blocking reason.
type Precondition struct {
	Status PreconditionStatus
	Reason string
}

// Ready reports a target that requires its action to run.
func Ready() Precondition {
	return Precondition{Status: StatusReady}
}

// AlreadyDone reports a target whose desired state is already satisfied.
func AlreadyDone() Precondition {
	return Precondition{Status: StatusAlreadyDone}
}

// Blocked reports a target that cannot proceed within this run.
func Blocked(reason string) Precondition {
	return Precondition{Status: StatusBlocked, Reason: reason}
}

// Target describes one unit of batch work.
type Target struct {
	Name               string
	Precondition       func(executionContext context.Context) Precondition
	Action             func(executionContext context.Context) error
	Measurement        func(executionContext context.Context) (int64, error)
	SuccessDetail      func() string
	Confirmable        bool
	ConfirmationPrompt string
}

// Classification identifies the recorded outcome for one target.
type Classification string

// Supported outcome classifications.
const (
	ClassificationSucceeded Classification = "succeeded"
	ClassificationSkipped   Classification = "skipped"
	ClassificationFailed    Classification = "failed"
)

// TargetOutcome records the classified result for a single target.
type TargetOutcome struct {
	Name           string
	Classification Classification
	Detail         string
	FreedBytes     int64
}

// RunResult accumulates the outcome of one runner invocation.
type RunResult struct {
	Succeeded  int
	Skipped    int
	Failed     int
	FreedBytes int64
	Outcomes   []TargetOutcome
}

// ExitCode maps the finalized result to a process exit code.
func (result RunResult) ExitCode() int {
	if result.Failed > 0 {
		return 1
	}
	return 0
}

// TotalTargets reports the number of recorded outcomes.
func (result RunResult) TotalTargets() int {
	return len(result.Outcomes)
}

// Configuration captures the global policy applied to one run.
type Configuration struct {
	Prompter  shared.ConfirmationPrompter
	AssumeYes bool
	DryRun    bool
	Logger    *zap.Logger
}

// Runner executes targets strictly sequentially in input order.
type Runner struct {
	configuration Configuration
	logger        *zap.Logger
}

// NewRunner constructs a Runner with the provided policy.
func NewRunner(configuration Configuration) Runner {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Runner{configuration: configuration, logger: logger}
}

// Run evaluates every target independently and returns the accumulated result.
// A failing, blocked, or declined target never prevents evaluation of
// subsequent targets, and effects are never rolled back.
func (runner Runner) Run(executionContext context.Context, targets []Target) RunResult {
	result := RunResult{Outcomes: make([]TargetOutcome, 0, len(targets))}

	for _, target := range targets {
		runner.logger.Debug(targetStartMessageConstant, zap.String(targetNameFieldConstant, target.Name))
		outcome := runner.runTarget(executionContext, target)

		switch outcome.Classification {
		case ClassificationSucceeded:
			result.Succeeded++
		case ClassificationSkipped:
			result.Skipped++
		case ClassificationFailed:
			result.Failed++
		}
		result.FreedBytes += outcome.FreedBytes
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result
}

func (runner Runner) runTarget(executionContext context.Context, target Target) TargetOutcome {
	precondition := Ready()
	if target.Precondition != nil {
		precondition = target.Precondition(executionContext)
	}

	switch precondition.Status {
	case StatusAlreadyDone:
		runner.logger.Info(targetAlreadyDoneMessageConstant, zap.String(targetNameFieldConstant, target.Name))
		return TargetOutcome{Name: target.Name, Classification: ClassificationSkipped, Detail: alreadySatisfiedDetailConstant}
	case StatusBlocked:
		runner.logger.Warn(targetBlockedMessageConstant,
			zap.String(targetNameFieldConstant, target.Name),
			zap.String(reasonFieldConstant, precondition.Reason),
		)
		return TargetOutcome{Name: target.Name, Classification: ClassificationFailed, Detail: precondition.Reason}
	}

	if !runner.confirmTarget(target) {
		runner.logger.Info(targetDeclinedMessageConstant, zap.String(targetNameFieldConstant, target.Name))
		return TargetOutcome{Name: target.Name, Classification: ClassificationSkipped, Detail: confirmationDeclinedDetailConstant}
	}

	if runner.configuration.DryRun {
		return TargetOutcome{Name: target.Name, Classification: ClassificationSucceeded, Detail: dryRunDetailConstant}
	}

	beforeValue := runner.measure(executionContext, target, measurementPhaseBeforeDetailConstant)

	if target.Action != nil {
		if actionError := target.Action(executionContext); actionError != nil {
			runner.logger.Warn(targetActionFailedMessageConstant,
				zap.String(targetNameFieldConstant, target.Name),
				zap.Error(actionError),
			)
			return TargetOutcome{Name: target.Name, Classification: ClassificationFailed, Detail: actionError.Error()}
		}
	}

	freedBytes := int64(0)
	if target.Measurement != nil {
		afterValue := runner.measure(executionContext, target, measurementPhaseAfterDetailConstant)
		freedBytes = beforeValue - afterValue
		if freedBytes < 0 {
			freedBytes = 0
		}
	}

	successDetail := ""
	if target.SuccessDetail != nil {
		successDetail = target.SuccessDetail()
	}

	runner.logger.Info(targetSucceededMessageConstant,
		zap.String(targetNameFieldConstant, target.Name),
		zap.Int64(freedBytesFieldConstant, freedBytes),
	)
	return TargetOutcome{Name: target.Name, Classification: ClassificationSucceeded, Detail: successDetail, FreedBytes: freedBytes}
}

func (runner Runner) confirmTarget(target Target) bool {
	if !target.Confirmable {
		return true
	}
	if runner.configuration.AssumeYes {
		return true
	}
	if runner.configuration.Prompter == nil {
		return true
	}

	confirmation, confirmationError := runner.configuration.Prompter.Confirm(target.ConfirmationPrompt)
	if confirmationError != nil {
		return false
	}
	return confirmation.Confirmed
}

func (runner Runner) measure(executionContext context.Context, target Target, measurementPhase string) int64 {
	if target.Measurement == nil {
		return 0
	}
	measuredValue, measurementError := target.Measurement(executionContext)
	if measurementError != nil {
		runner.logger.Debug(measurementFailedMessageConstant,
			zap.String(targetNameFieldConstant, target.Name),
			zap.String(measurementPhaseFieldConstant, measurementPhase),
			zap.Error(measurementError),
		)
		return 0
	}
	return measuredValue
}
