package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/provider-directory/internal/config"
	"github.com/spec-kit/provider-directory/internal/events"
)

// AuditService records provider lifecycle events as structured audit entries.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.AuditConfig
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventProviderCreated, a.handle)
	a.dispatcher.Subscribe(events.EventProviderUpdated, a.handle)
	a.dispatcher.Subscribe(events.EventProviderDeactivated, a.handle)
	a.dispatcher.Subscribe(events.EventProviderImageAttached, a.handle)
	a.dispatcher.Subscribe(events.EventProviderImageRemoved, a.handle)
}

func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event", string(event.Type)),
		zap.Int64("provider_id", event.ProviderID),
		zap.Int64("actor_id", event.ActorID),
		zap.Any("payload", event.Payload),
	)
	a.sendWebhookStub(ctx, event)
	return nil
}

func (a *AuditService) sendWebhookStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.WebhookURL) == "" {
		return
	}
	a.logger.Debug("audit webhook",
		zap.String("url", a.cfg.WebhookURL),
		zap.String("event", string(event.Type)),
		zap.Int64("provider_id", event.ProviderID))
}
