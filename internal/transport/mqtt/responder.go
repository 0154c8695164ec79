package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"cattle-chatbot/internal/chatbot"
	"cattle-chatbot/internal/common/config"
	"cattle-chatbot/internal/common/logger"
	"cattle-chatbot/internal/common/metrics"
	"cattle-chatbot/internal/common/validation"
)

type Answerer interface {
	Answer(ctx context.Context, req chatbot.Request) chatbot.Answer
}

// Broker is the publish/subscribe surface of *Client.
type Broker interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Publish(topic string, qos byte, payload []byte) error
}

type AskMessage struct {
	RequestID string `json:"requestId"`
	chatbot.Request
}

type ReplyMessage struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error,omitempty"`
	*chatbot.Answer
}

// Responder answers each message on the ask topic and publishes the reply
// to <replyPrefix>/<requestId>.
type Responder struct {
	answerer    Answerer
	broker      Broker
	validator   *validation.Validator
	askTopic    string
	replyPrefix string
	qos         byte
	timeout     time.Duration
	logger      logger.Logger
}

func NewResponder(cfg config.MQTTConfig, timeout time.Duration, answerer Answerer, broker Broker, log logger.Logger) *Responder {
	return &Responder{
		answerer:    answerer,
		broker:      broker,
		validator:   validation.MustValidator(chatbot.RequestSchema),
		askTopic:    cfg.AskTopic,
		replyPrefix: strings.TrimSuffix(cfg.ReplyPrefix, "/"),
		qos:         cfg.QoS,
		timeout:     timeout,
		logger:      log.WithFields(map[string]interface{}{"component": "mqtt-responder"}),
	}
}

func (r *Responder) Start() error {
	if err := r.broker.Subscribe(r.askTopic, r.qos, r.onMessage); err != nil {
		return err
	}
	r.logger.Info("listening for questions", map[string]interface{}{
		"askTopic":    r.askTopic,
		"replyPrefix": r.replyPrefix,
	})
	return nil
}

func (r *Responder) onMessage(topic string, payload []byte) {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	replyTopic, reply := r.HandlePayload(ctx, payload)
	if err := r.broker.Publish(replyTopic, r.qos, reply); err != nil {
		r.logger.Error("reply publish failed", map[string]interface{}{
			"topic": replyTopic,
			"error": err.Error(),
		})
	}
}

// HandlePayload answers one ask payload and returns the reply topic and body.
func (r *Responder) HandlePayload(ctx context.Context, payload []byte) (string, []byte) {
	var msg AskMessage
	decodeErr := json.Unmarshal(payload, &msg)
	if msg.RequestID == "" {
		msg.RequestID = uuid.NewString()
	}

	reply := ReplyMessage{RequestID: msg.RequestID}
	status := "ok"
	if result := r.validator.ValidateJSON(payload); !result.Valid || decodeErr != nil {
		reply.Error = "invalid request"
		if !result.Valid {
			reply.Error += ": " + result.Summary()
		}
		status = "rejected"
		r.logger.Warn("rejected question", map[string]interface{}{
			"requestId": msg.RequestID,
			"reason":    reply.Error,
		})
	} else {
		ans := r.answerer.Answer(ctx, msg.Request)
		reply.Answer = &ans
	}
	metrics.TransportRequestsTotal.WithLabelValues("mqtt", status).Inc()

	body, _ := json.Marshal(reply)
	return r.replyPrefix + "/" + msg.RequestID, body
}
