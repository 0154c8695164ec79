// cmd/chatbot-server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cattle-chatbot/internal/api"
	"cattle-chatbot/internal/app"
	"cattle-chatbot/internal/chatbot"
	"cattle-chatbot/internal/common/camunda"
	"cattle-chatbot/internal/common/config"
	"cattle-chatbot/internal/common/logger"
	"cattle-chatbot/internal/common/observability"
	"cattle-chatbot/internal/transport/mqtt"
	aq "cattle-chatbot/internal/workers/ai-conversation/answer-question"
	"cattle-chatbot/pkg/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting chatbot server...", zap.String("environment", cfg.App.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(ctx, observability.Config{
		ServiceName:  cfg.Observability.ServiceName,
		OTLPEndpoint: cfg.Observability.OTLPEndpoint,
		Insecure:     cfg.Observability.OTLPInsecure,
	})
	defer obs.Shutdown()

	// --- Data store with retry ---
	a, err := app.New(ctx, cfg, log, app.Options{
		ConnectAttempts: 15,
		ConnectDelay:    2 * time.Second,
		ChatbotOptions:  []chatbot.Option{chatbot.WithRecorder(obs)},
	})
	if err != nil {
		zapLog.Fatal("data store failed after retries", zap.Error(err))
	}
	defer a.Close()
	zapLog.Info("Chatbot ready", zap.String("driver", a.DB.Driver), zap.Bool("catalogCache", a.Redis != nil))

	// --- HTTP API ---
	srv := api.NewServer(cfg.Server, cfg.App.Version, a.Chatbot, a.Store, log).HTTPServer()
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- MQTT responder ---
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.NewClient(cfg.MQTT, log)
		if err != nil {
			zapLog.Fatal("mqtt connection failed", zap.Error(err))
		}
		responder := mqtt.NewResponder(cfg.MQTT, config.GetDuration(cfg.Chatbot.QueryTimeout)*2, a.Chatbot, mqttClient, log)
		if err := responder.Start(); err != nil {
			zapLog.Fatal("mqtt subscribe failed", zap.Error(err))
		}
	}

	// --- Zeebe worker ---
	var (
		zeebe  *camunda.Client
		worker *camunda.CamundaWorker
	)
	if cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, aq.WorkerName) {
		zeebe, worker = startAnswerWorker(ctx, cfg, a.Chatbot, log, zapLog)
	}

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if mqttClient != nil {
		mqttClient.Close()
	}
	if worker != nil {
		worker.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Chatbot server stopped gracefully")
}

func startAnswerWorker(ctx context.Context, cfg *config.Config, bot *chatbot.Chatbot, log logger.Logger, zapLog *zap.Logger) (*camunda.Client, *camunda.CamundaWorker) {
	reg, err := registry.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	activity, err := reg.FindByTaskType(aq.TaskType)
	if err != nil {
		zapLog.Fatal("answer-question activity missing from registry", zap.Error(err))
	}

	client, err := camunda.NewClient(ctx, camunda.ClientConfigFrom(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))

	wcfg := aq.NewConfig(cfg)
	handler, err := aq.NewHandler(wcfg, bot, activity.InputSchema, log)
	if err != nil {
		zapLog.Fatal("failed to create answer-question handler", zap.Error(err))
	}

	worker := camunda.NewWorker(client.GetClient(), handler, camunda.WorkerOptions{
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       wcfg.Timeout,
	}, log)
	return client, worker
}
