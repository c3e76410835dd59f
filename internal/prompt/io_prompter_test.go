package prompt_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dsk/internal/prompt"
	"github.com/tyemirov/dsk/internal/shared"
)

const (
	prompterSubtestNameTemplateConstant = "%d_%s"
	confirmationPromptTextConstant      = "Unmount remote gdrive? [y/N/a]: "
)

func TestIOConfirmationPrompterConfirm(testInstance *testing.T) {
	testCases := []struct {
		name           string
		response       string
		expectedResult shared.ConfirmationResult
	}{
		{
			name:           "short_affirmative_confirms",
			response:       "y\n",
			expectedResult: shared.ConfirmationResult{Confirmed: true},
		},
		{
			name:           "long_affirmative_confirms",
			response:       "yes\n",
			expectedResult: shared.ConfirmationResult{Confirmed: true},
		},
		{
			name:           "uppercase_affirmative_confirms",
			response:       "YES\n",
			expectedResult: shared.ConfirmationResult{Confirmed: true},
		},
		{
			name:           "apply_all_short_response_confirms_globally",
			response:       "a\n",
			expectedResult: shared.ConfirmationResult{Confirmed: true, ApplyToAll: true},
		},
		{
			name:           "apply_all_long_response_confirms_globally",
			response:       "all\n",
			expectedResult: shared.ConfirmationResult{Confirmed: true, ApplyToAll: true},
		},
		{
			name:           "negative_response_declines",
			response:       "n\n",
			expectedResult: shared.ConfirmationResult{},
		},
		{
			name:           "empty_response_declines",
			response:       "\n",
			expectedResult: shared.ConfirmationResult{},
		},
		{
			name:           "end_of_input_declines",
			response:       "",
			expectedResult: shared.ConfirmationResult{},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(prompterSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			promptOutput := &bytes.Buffer{}
			prompter := prompt.NewIOConfirmationPrompter(strings.NewReader(testCase.response), promptOutput)

			confirmationResult, confirmError := prompter.Confirm(confirmationPromptTextConstant)
			require.NoError(testInstance, confirmError)
			require.Equal(testInstance, testCase.expectedResult, confirmationResult)
			require.Equal(testInstance, confirmationPromptTextConstant, promptOutput.String())
		})
	}
}
