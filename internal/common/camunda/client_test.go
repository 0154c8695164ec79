package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cattle-chatbot/internal/common/config"
	apperrors "cattle-chatbot/internal/common/errors"
)

func createTestClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  time.Millisecond,
			MaxDelay:   2 * time.Millisecond,
		},
	}}
}

// ==========================
// Configuration Tests
// ==========================

func TestClientConfigFrom(t *testing.T) {
	cfg := ClientConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", Timeout: 2500})

	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.True(t, cfg.UsePlaintextConnection)
	assert.Equal(t, 2500*time.Millisecond, cfg.ConnectionTimeout)
	assert.Same(t, DefaultRetryConfig, cfg.RetryConfig)

	assert.Equal(t, 10*time.Second, ClientConfigFrom(config.CamundaConfig{}).ConnectionTimeout)
}

// ==========================
// Retry Tests
// ==========================

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	calls := 0
	err := createTestClient(3).ExecuteWithRetry(context.Background(), "topology", func(context.Context) error {
		calls++
		if calls < 3 {
			return stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_MapsFinalError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		maxRetries    int
		expectedCalls int
		expectedCode  apperrors.ErrorCode
	}{
		{"unavailable after retries", stderrors.New("connection refused"), 2, 3, apperrors.ErrCodeEngineUnavailable},
		{"timeout after retries", stderrors.New("context deadline exceeded"), 1, 2, apperrors.ErrCodeEngineTimeout},
		{"permanent error not retried", stderrors.New("permission denied"), 3, 1, apperrors.ErrCodeEngineUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := createTestClient(tt.maxRetries).ExecuteWithRetry(context.Background(), "topology", func(context.Context) error {
				calls++
				return tt.err
			})

			require.Error(t, err)
			assert.Equal(t, tt.expectedCalls, calls)
			assert.Equal(t, tt.expectedCode, apperrors.CodeOf(err))
			assert.True(t, stderrors.Is(err, tt.err))
		})
	}
}

func TestExecuteWithRetry_StopsOnCancel(t *testing.T) {
	c := createTestClient(5)
	c.config.RetryConfig.BaseDelay = time.Hour
	c.config.RetryConfig.MaxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.ExecuteWithRetry(ctx, "topology", func(context.Context) error {
		return stderrors.New("unavailable")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
