package answerquestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"cattle-chatbot/internal/chatbot"
	apperrors "cattle-chatbot/internal/common/errors"
	"cattle-chatbot/internal/common/logger"
	"cattle-chatbot/internal/common/metrics"
	"cattle-chatbot/internal/common/validation"
)

const (
	TaskType   = "chatbot.answer-question"
	WorkerName = "answer-question"
)

// Answerer is the slice of the chatbot the worker needs.
type Answerer interface {
	Answer(ctx context.Context, req chatbot.Request) chatbot.Answer
}

type Handler struct {
	config     *Config
	answerer   Answerer
	validator  *validation.Validator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler validates job variables against inputSchema when one is given.
func NewHandler(config *Config, answerer Answerer, inputSchema map[string]interface{}, log logger.Logger) (*Handler, error) {
	h := &Handler{
		config:   config,
		answerer: answerer,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
	h.errHandler = apperrors.NewErrorHandler(h.logger)

	if len(inputSchema) > 0 {
		v, err := validation.NewValidator(inputSchema)
		if err != nil {
			return nil, fmt.Errorf("answer-question input schema: %w", err)
		}
		h.validator = v
	}
	return h, nil
}

func (h *Handler) GetTaskType() string { return TaskType }

func (h *Handler) IsEnabled() bool { return h.config.Enabled }

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// Execute answers one question. An error outcome is returned as a retryable
// error so the engine can try again once the data store is back.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ans := h.answerer.Answer(ctx, chatbot.Request{
		Question:   input.Question,
		TimeWindow: input.TimeWindow,
	})
	if ans.Outcome == chatbot.OutcomeError {
		return nil, apperrors.NewAnswerFailedError(fmt.Errorf("question %q could not be answered", input.Question))
	}

	output := &Output{
		Answer:     ans.Text,
		Outcome:    string(ans.Outcome),
		Metric:     string(ans.Intent.Metric),
		TimeWindow: string(ans.Intent.TimeWindow),
		CowID:      ans.Intent.Entity(),
		RowCount:   ans.RowCount,
	}

	h.logger.Info("question answered", map[string]interface{}{
		"metric":   output.Metric,
		"outcome":  output.Outcome,
		"rowCount": output.RowCount,
	})
	return output, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	raw := []byte(job.Variables)

	if h.validator != nil {
		if result := h.validator.ValidateJSON(raw); !result.Valid {
			return nil, apperrors.NewInvalidRequestError(result.Summary())
		}
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
	}
	if input.Question == "" {
		return nil, apperrors.NewInvalidRequestError("question is required")
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.CodeOf(err))).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}
