// Package dependencies resolves shared collaborators with OS-backed defaults.
package dependencies

import (
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/execshell"
	"github.com/tyemirov/dsk/internal/prompt"
	"github.com/tyemirov/dsk/internal/shared"
	"github.com/tyemirov/dsk/internal/utils"
)

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing shared.FileSystem) shared.FileSystem {
	if existing != nil {
		return existing
	}
	return shared.OSFileSystem{}
}

// ResolveShellExecutor returns the provided executor or constructs a shell-backed default.
func ResolveShellExecutor(existing *execshell.ShellExecutor, logger *zap.Logger, humanReadableLogging bool) (*execshell.ShellExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner, humanReadableLogging)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveBinaryLocator returns the provided locator or an exec.LookPath-backed default.
func ResolveBinaryLocator(existing shared.BinaryLocator) shared.BinaryLocator {
	if existing != nil {
		return existing
	}
	return exec.LookPath
}

// ResolvePrompter returns the provided prompter or an IO-backed default bound to the command streams.
func ResolvePrompter(existing shared.ConfirmationPrompter, command *cobra.Command) shared.ConfirmationPrompter {
	if existing != nil {
		return existing
	}

	var inputReader io.Reader = os.Stdin
	var outputWriter io.Writer = os.Stdout
	if command != nil {
		inputReader = command.InOrStdin()
		outputWriter = command.OutOrStdout()
	}

	// Prompts must reach the terminal before the read blocks.
	return prompt.NewIOConfirmationPrompter(inputReader, utils.NewFlushingWriter(outputWriter))
}

const confirmationWaitDurationConstant = 30 * time.Second

// ResolveConfirmationPrompter layers session apply-to-all tracking and a bounded
// wait over the resolved prompter. An unanswered prompt declines the target.
func ResolveConfirmationPrompter(existing shared.ConfirmationPrompter, command *cobra.Command, assumeYes bool) shared.ConfirmationPrompter {
	basePrompter := ResolvePrompter(existing, command)
	sessionPrompter := prompt.NewSessionPrompter(basePrompter, prompt.NewSessionState(assumeYes))
	return prompt.NewTimeoutPrompter(sessionPrompter, confirmationWaitDurationConstant)
}
