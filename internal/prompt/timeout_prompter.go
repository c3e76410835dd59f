package prompt

import (
	"sync"
	"time"

	"github.com/tyemirov/dsk/internal/shared"
)

type promptOutcome struct {
	result       shared.ConfirmationResult
	confirmError error
}

type timeoutPrompter struct {
	basePrompter   shared.ConfirmationPrompter
	waitDuration   time.Duration
	mutex          sync.Mutex
	pendingOutcome chan promptOutcome
}

// NewTimeoutPrompter bounds each confirmation wait; an unanswered prompt counts as a decline.
func NewTimeoutPrompter(base shared.ConfirmationPrompter, waitDuration time.Duration) shared.ConfirmationPrompter {
	if base == nil {
		return nil
	}
	if waitDuration <= 0 {
		return base
	}
	return &timeoutPrompter{basePrompter: base, waitDuration: waitDuration}
}

// Confirm delegates to the base prompter and treats an expired wait as a declined
// confirmation. A read abandoned by an earlier timeout stays pending and is not
// re-issued; the answer it eventually produces is consumed by the next confirmation
// rather than discarded.
func (prompter *timeoutPrompter) Confirm(prompt string) (shared.ConfirmationResult, error) {
	prompter.mutex.Lock()
	defer prompter.mutex.Unlock()

	if prompter.pendingOutcome == nil {
		outcomeChannel := make(chan promptOutcome, 1)
		go func() {
			result, confirmError := prompter.basePrompter.Confirm(prompt)
			outcomeChannel <- promptOutcome{result: result, confirmError: confirmError}
		}()
		prompter.pendingOutcome = outcomeChannel
	}

	waitTimer := time.NewTimer(prompter.waitDuration)
	defer waitTimer.Stop()

	select {
	case outcome := <-prompter.pendingOutcome:
		prompter.pendingOutcome = nil
		return outcome.result, outcome.confirmError
	case <-waitTimer.C:
		return shared.ConfirmationResult{}, nil
	}
}
