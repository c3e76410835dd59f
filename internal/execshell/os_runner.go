package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
)

const environmentVariableTemplateConstant = "%s=%s"

// OSCommandRunner executes shell commands using os/exec.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs an OSCommandRunner instance.
func NewOSCommandRunner() OSCommandRunner {
	return OSCommandRunner{}
}

// Run executes the command and captures its observable outputs.
func (OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	executableCommand := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	executableCommand.Dir = command.Details.WorkingDirectory

	if len(command.Details.EnvironmentVariables) > 0 {
		environment := os.Environ()
		variableNames := make([]string, 0, len(command.Details.EnvironmentVariables))
		for variableName := range command.Details.EnvironmentVariables {
			variableNames = append(variableNames, variableName)
		}
		sort.Strings(variableNames)
		for _, variableName := range variableNames {
			environment = append(environment, fmt.Sprintf(environmentVariableTemplateConstant, variableName, command.Details.EnvironmentVariables[variableName]))
		}
		executableCommand.Env = environment
	}

	if len(command.Details.StandardInput) > 0 {
		executableCommand.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	executableCommand.Stdout = &standardOutputBuffer
	executableCommand.Stderr = &standardErrorBuffer

	runError := executableCommand.Run()

	executionResult := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}

	if runError != nil {
		var exitError *exec.ExitError
		if errors.As(runError, &exitError) {
			executionResult.ExitCode = exitError.ExitCode()
			return executionResult, nil
		}
		return ExecutionResult{}, runError
	}

	executionResult.ExitCode = 0
	return executionResult, nil
}
