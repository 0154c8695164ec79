package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cattle-chatbot/internal/common/camunda/camundatest"
)

type recordingLogger struct {
	messages []map[string]interface{}
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, fields)
}

// ==========================
// Standard Error Tests
// ==========================

func TestStandardError_WrapAndUnwrap(t *testing.T) {
	cause := stderrors.New("no such table: cattle_inference")
	err := fmt.Errorf("answer: %w", NewQueryExecutionFailedError("readings", cause))

	stdErr := AsStandardError(err)
	assert.Equal(t, ErrCodeQueryExecutionFailed, stdErr.Code)
	assert.Equal(t, "readings", stdErr.Metadata["operation"])
	assert.Equal(t, cause.Error(), stdErr.Details)
	assert.True(t, stderrors.Is(err, cause))
}

func TestAsStandardError_PlainError(t *testing.T) {
	stdErr := AsStandardError(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("boom")))
}

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeDatabaseConnectionFailed, 3},
		{ErrCodeQueryExecutionFailed, 3},
		{ErrCodeCatalogLookupFailed, 3},
		{ErrCodeAnswerFailed, 3},
		{ErrCodeQueryTimeout, 2},
		{ErrCodeInvalidRequest, 0},
		{ErrCodeUnsupportedDatabaseDriver, 0},
		{ErrCodeInternal, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetRetryCount(tt.code))
			assert.Equal(t, tt.expected > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryTimeout))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeCatalogLookupFailed))
	assert.Equal(t, "CHATBOT", GetErrorCategory(ErrCodeResponseRenderFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidRequest))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestConvertToBPMNError(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewQueryTimeoutError("readings", context.DeadlineExceeded))

	assert.Equal(t, "QUERY_TIMEOUT", bpmnErr.Code)
	assert.Equal(t, 2, bpmnErr.Retries)
	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "QUERY_TIMEOUT", vars["errorCode"])
	assert.Equal(t, "QUERY_TIMEOUT", vars["originalErrorCode"])
	assert.NotEmpty(t, vars["timestamp"])
}

// ==========================
// Job Error Handler Tests
// ==========================

func TestErrorHandler_HandleJobError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		jobRetries      int32
		expectFail      bool
		expectedRetries int32
		expectThrow     string
	}{
		{
			name:            "retryable error counts down",
			err:             NewQueryExecutionFailedError("readings", stderrors.New("reset")),
			jobRetries:      3,
			expectFail:      true,
			expectedRetries: 2,
		},
		{
			name:            "retries capped by code",
			err:             NewQueryTimeoutError("readings", context.DeadlineExceeded),
			jobRetries:      5,
			expectFail:      true,
			expectedRetries: 2,
		},
		{
			name:        "last attempt throws",
			err:         NewAnswerFailedError(stderrors.New("store down")),
			jobRetries:  1,
			expectThrow: "ANSWER_FAILED",
		},
		{
			name:        "validation error throws immediately",
			err:         NewInvalidRequestError("question is required"),
			jobRetries:  3,
			expectThrow: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := camundatest.NewJobClient()
			log := &recordingLogger{}
			job := camundatest.NewJob(42, "chatbot.answer-question", tt.jobRetries, map[string]interface{}{"question": "x"})

			NewErrorHandler(log).HandleJobError(context.Background(), client, job, tt.err)

			require.Len(t, log.messages, 1)
			assert.Equal(t, int64(42), log.messages[0]["jobKey"])

			if tt.expectFail {
				failed := client.Gateway.Failed()
				require.Len(t, failed, 1)
				assert.Equal(t, tt.expectedRetries, failed[0].Retries)
				assert.Empty(t, client.Gateway.Thrown())
				return
			}

			thrown := client.Gateway.Thrown()
			require.Len(t, thrown, 1)
			assert.Equal(t, tt.expectThrow, thrown[0].ErrorCode)
			assert.Empty(t, client.Gateway.Failed())

			var vars map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(thrown[0].Variables), &vars))
			assert.Equal(t, tt.expectThrow, vars["errorCode"])
		})
	}
}
