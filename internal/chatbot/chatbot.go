// Package chatbot wires extraction, query building, the data store and
// rendering into a single question-answering call.
package chatbot

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cattle-chatbot/internal/chatbot/intent"
	"cattle-chatbot/internal/chatbot/querybuilder"
	"cattle-chatbot/internal/chatbot/response"
	apperrors "cattle-chatbot/internal/common/errors"
	"cattle-chatbot/internal/common/logger"
	"cattle-chatbot/internal/common/metrics"
	"cattle-chatbot/internal/models"
)

// DataStore is the read-only port onto the sensor database.
type DataStore interface {
	RunReadOnlyQuery(ctx context.Context, spec models.QuerySpec) ([]models.Reading, error)
	ListKnownEntities(ctx context.Context) ([]models.Entity, error)
}

type Outcome string

const (
	OutcomeAnswered Outcome = "answered"
	OutcomeNoData   Outcome = "no_data"
	OutcomeError    Outcome = "error"
)

type Config struct {
	// QueryTimeout bounds each data store call. Zero means no extra deadline.
	QueryTimeout time.Duration
	Markdown     bool
}

type Request struct {
	Question string `json:"question"`
	// TimeWindow replaces the extracted window when it names a known one.
	TimeWindow string `json:"timeWindow,omitempty"`
}

// RequestSchema is the JSON Schema for a Request arriving over a transport.
const RequestSchema = `{
  "type": "object",
  "properties": {
    "question": {"type": "string", "minLength": 1, "maxLength": 500},
    "timeWindow": {"type": "string", "enum": ["", "current", "today", "yesterday", "last_hour", "last_week"]}
  },
  "required": ["question"]
}`

type Answer struct {
	Text     string        `json:"text"`
	Intent   models.Intent `json:"intent"`
	RowCount int           `json:"rowCount"`
	Outcome  Outcome       `json:"outcome"`
}

// Explanation shows what a question would run without touching the store.
type Explanation struct {
	Intent    models.Intent `json:"intent"`
	Dialect   string        `json:"dialect"`
	Statement string        `json:"statement"`
	Args      []interface{} `json:"args"`
}

// Recorder observes every answered question.
type Recorder interface {
	RecordQuestion(ctx context.Context, metric, outcome string, duration time.Duration)
}

type Option func(*Chatbot)

func WithRecorder(r Recorder) Option {
	return func(c *Chatbot) { c.recorder = r }
}

type Chatbot struct {
	config    Config
	extractor *intent.Extractor
	builder   *querybuilder.Builder
	renderer  *response.Renderer
	store     DataStore
	logger    logger.Logger
	tracer    trace.Tracer
	recorder  Recorder
}

func New(config Config, builder *querybuilder.Builder, store DataStore, log logger.Logger, opts ...Option) *Chatbot {
	c := &Chatbot{
		config:    config,
		extractor: intent.NewExtractor(),
		builder:   builder,
		renderer:  response.NewRenderer(response.Options{Markdown: config.Markdown}),
		store:     store,
		logger:    log.WithFields(map[string]interface{}{"component": "chatbot"}),
		tracer:    otel.Tracer("cattle-chatbot/chatbot"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle answers one utterance. It always returns a displayable string.
func (c *Chatbot) Handle(ctx context.Context, utterance string) string {
	return c.Answer(ctx, Request{Question: utterance}).Text
}

func (c *Chatbot) Answer(ctx context.Context, req Request) (ans Answer) {
	startTime := time.Now()
	ctx, span := c.tracer.Start(ctx, "chatbot.answer")
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("answer panicked", map[string]interface{}{
				"panic":    fmt.Sprint(rec),
				"question": req.Question,
			})
			span.SetStatus(codes.Error, "panic")
			ans = Answer{Text: response.ErrorMessage, Intent: ans.Intent, Outcome: OutcomeError}
		}
		metrics.QuestionsTotal.WithLabelValues(string(ans.Intent.Metric), string(ans.Outcome)).Inc()
		metrics.PipelineDuration.WithLabelValues(string(ans.Intent.Metric)).Observe(time.Since(startTime).Seconds())
		if c.recorder != nil {
			c.recorder.RecordQuestion(ctx, string(ans.Intent.Metric), string(ans.Outcome), time.Since(startTime))
		}
	}()

	in := c.intentFor(req)
	ans.Intent = in
	span.SetAttributes(
		attribute.String("chatbot.metric", string(in.Metric)),
		attribute.String("chatbot.time_window", string(in.TimeWindow)),
		attribute.Bool("chatbot.has_entity", in.HasEntity()),
	)

	spec := c.builder.Build(in)

	rows, err := c.runQuery(ctx, spec)
	if err != nil {
		stdErr := apperrors.AsStandardError(err)
		c.logger.Error("query failed", map[string]interface{}{
			"errorCode":     string(stdErr.Code),
			"errorCategory": apperrors.GetErrorCategory(stdErr.Code),
			"retryable":     stdErr.Retryable,
			"details":       stdErr.Details,
			"metric":        string(in.Metric),
			"timeWindow":    string(in.TimeWindow),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stdErr.Code))
		ans.Text = response.ErrorMessage
		ans.Outcome = OutcomeError
		return ans
	}

	ans.RowCount = len(rows)
	var catalog []models.Entity
	if len(rows) == 0 {
		catalog = c.catalogForFallback(ctx)
		ans.Outcome = OutcomeNoData
	} else {
		ans.Outcome = OutcomeAnswered
	}

	ans.Text = c.renderer.Render(in, rows, catalog)
	span.SetAttributes(attribute.Int("chatbot.rows", len(rows)))

	c.logger.Debug("question answered", map[string]interface{}{
		"metric":     string(in.Metric),
		"timeWindow": string(in.TimeWindow),
		"rows":       len(rows),
		"outcome":    string(ans.Outcome),
		"duration":   time.Since(startTime).Milliseconds(),
	})
	return ans
}

// Explain extracts and builds without running the query.
func (c *Chatbot) Explain(utterance, timeWindow string) Explanation {
	in := c.intentFor(Request{Question: utterance, TimeWindow: timeWindow})
	spec := c.builder.Build(in)
	return Explanation{
		Intent:    in,
		Dialect:   c.builder.Dialect().Name(),
		Statement: spec.Statement,
		Args:      spec.Args(),
	}
}

// Catalog lists the cows the store knows about.
func (c *Chatbot) Catalog(ctx context.Context) ([]models.Entity, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.store.ListKnownEntities(ctx)
}

func (c *Chatbot) intentFor(req Request) models.Intent {
	in := c.extractor.Extract(req.Question)
	if req.TimeWindow == "" {
		return in
	}
	if tw, ok := models.ParseTimeWindow(req.TimeWindow); ok {
		in.TimeWindow = tw
	} else {
		c.logger.Warn("ignoring unknown time window override", map[string]interface{}{
			"timeWindow": req.TimeWindow,
		})
	}
	return in
}

func (c *Chatbot) runQuery(ctx context.Context, spec models.QuerySpec) ([]models.Reading, error) {
	ctx, span := c.tracer.Start(ctx, "chatbot.query")
	defer span.End()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.store.RunReadOnlyQuery(ctx, spec)
}

// catalogForFallback never fails; a lookup error leaves the list empty.
func (c *Chatbot) catalogForFallback(ctx context.Context) []models.Entity {
	catalog, err := c.Catalog(ctx)
	if err != nil {
		c.logger.Warn("catalog lookup failed, rendering without it", map[string]interface{}{
			"errorCode": string(apperrors.CodeOf(err)),
			"error":     err.Error(),
		})
		return nil
	}
	return catalog
}

func (c *Chatbot) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.config.QueryTimeout)
}
