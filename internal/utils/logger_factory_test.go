package utils_test

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dsk/internal/utils"
)

const (
	loggerFactorySubtestNameTemplateConstant = "%d_%s"
	loggerTestMessageConstant                = "logger factory test message"
	structuredMessageFieldConstant           = "msg"
	unsupportedLogLevelValueConstant         = "chatty"
	unsupportedLogFormatValueConstant        = "binary"
)

func captureStandardError(testInstance *testing.T, operation func()) string {
	testInstance.Helper()

	originalStandardError := os.Stderr
	readPipe, writePipe, pipeError := os.Pipe()
	require.NoError(testInstance, pipeError)
	os.Stderr = writePipe
	defer func() {
		os.Stderr = originalStandardError
	}()

	operation()

	require.NoError(testInstance, writePipe.Close())
	capturedOutput, readError := io.ReadAll(readPipe)
	require.NoError(testInstance, readError)
	return string(capturedOutput)
}

func TestLoggerFactoryCreateLoggerOutputs(testInstance *testing.T) {
	testCases := []struct {
		name                string
		logLevel            utils.LogLevel
		logFormat           utils.LogFormat
		expectError         bool
		expectStructured    bool
		expectConsoleOutput bool
	}{
		{
			name:             "structured_format_produces_json",
			logLevel:         utils.LogLevelInfo,
			logFormat:        utils.LogFormatStructured,
			expectStructured: true,
		},
		{
			name:                "console_format_produces_console_logger",
			logLevel:            utils.LogLevelInfo,
			logFormat:           utils.LogFormatConsole,
			expectConsoleOutput: true,
		},
		{
			name:             "level_parsing_ignores_case_and_whitespace",
			logLevel:         utils.LogLevel(" DEBUG "),
			logFormat:        utils.LogFormatStructured,
			expectStructured: true,
		},
		{
			name:        "unsupported_level_is_rejected",
			logLevel:    utils.LogLevel(unsupportedLogLevelValueConstant),
			logFormat:   utils.LogFormatStructured,
			expectError: true,
		},
		{
			name:        "unsupported_format_is_rejected",
			logLevel:    utils.LogLevelInfo,
			logFormat:   utils.LogFormat(unsupportedLogFormatValueConstant),
			expectError: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(loggerFactorySubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			loggerFactory := utils.NewLoggerFactory()

			var loggerOutputs utils.LoggerOutputs
			var creationError error
			capturedOutput := captureStandardError(testInstance, func() {
				loggerOutputs, creationError = loggerFactory.CreateLoggerOutputs(testCase.logLevel, testCase.logFormat)
				if creationError != nil {
					return
				}
				loggerOutputs.DiagnosticLogger.Info(loggerTestMessageConstant)
				loggerOutputs.ConsoleLogger.Info(loggerTestMessageConstant)
			})

			if testCase.expectError {
				require.Error(testInstance, creationError)
				return
			}
			require.NoError(testInstance, creationError)
			require.NotNil(testInstance, loggerOutputs.DiagnosticLogger)
			require.NotNil(testInstance, loggerOutputs.ConsoleLogger)
			require.Contains(testInstance, capturedOutput, loggerTestMessageConstant)

			if testCase.expectStructured {
				structuredEntry := map[string]any{}
				require.NoError(testInstance, json.Unmarshal([]byte(capturedOutput), &structuredEntry))
				require.Equal(testInstance, loggerTestMessageConstant, structuredEntry[structuredMessageFieldConstant])
			}
			if testCase.expectConsoleOutput {
				require.NotContains(testInstance, capturedOutput, "{")
			}
		})
	}
}
