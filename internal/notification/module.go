// Package notification subscribes to domain events and fans them out as
// emails and in-app inbox messages. Domain modules publish events and never
// talk to email providers or templates directly.
package notification

import (
	"context"
	"fmt"

	"telecompm_backend/internal/email"
	"telecompm_backend/internal/events"
	apphttp "telecompm_backend/internal/http"
	notifhandler "telecompm_backend/internal/notification/handler"
	"telecompm_backend/internal/notification/inapp"
	"telecompm_backend/platform/config"
	"telecompm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EngineerDirectory resolves engineer contact details for notifications.
type EngineerDirectory interface {
	ContactInfo(ctx context.Context, engineerID uuid.UUID) (name, emailAddr string, err error)
}

// SiteCodeResolver resolves a site's human-readable code for message bodies.
type SiteCodeResolver interface {
	SiteCode(ctx context.Context, siteID uuid.UUID) (string, error)
}

// InAppNotifier writes messages into a user's in-app inbox.
type InAppNotifier interface {
	Send(ctx context.Context, p inapp.SendParams) error
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender       email.Sender
	engineers    EngineerDirectory
	sites        SiteCodeResolver
	inApp        InAppNotifier
	cfg          config.NotificationConfig
	log          *logger.Logger
	inAppHandler *notifhandler.HTTPHandler
}

// New creates a new notification module.
func New(pool *pgxpool.Pool, sender email.Sender, engineers EngineerDirectory,
	sites SiteCodeResolver, cfg config.NotificationConfig, log *logger.Logger) *Module {
	inAppRepo := inapp.NewRepository(pool)
	inAppSvc := inapp.NewService(inAppRepo, log)

	return &Module{
		sender:       sender,
		engineers:    engineers,
		sites:        sites,
		inApp:        inAppSvc,
		cfg:          cfg,
		log:          log,
		inAppHandler: notifhandler.NewHTTPHandler(inAppSvc),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes registers the in-app notification inbox routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.inAppHandler == nil {
		return
	}

	notifications := ctx.Protected.Group("/notifications")
	m.inAppHandler.RegisterRoutes(notifications)
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.VisitSubmitted{}.EventName(), m)
	bus.Subscribe(events.VisitApproved{}.EventName(), m)
	bus.Subscribe(events.VisitRejected{}.EventName(), m)
	bus.Subscribe(events.VisitCorrectionRequested{}.EventName(), m)
	bus.Subscribe(events.LowStockAlert{}.EventName(), m)
	bus.Subscribe(events.SiteAssigned{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.VisitSubmitted:
		return m.handleVisitSubmitted(ctx, e)
	case events.VisitApproved:
		return m.handleVisitApproved(ctx, e)
	case events.VisitRejected:
		return m.handleVisitRejected(ctx, e)
	case events.VisitCorrectionRequested:
		return m.handleVisitCorrectionRequested(ctx, e)
	case events.LowStockAlert:
		return m.handleLowStockAlert(ctx, e)
	case events.SiteAssigned:
		return m.handleSiteAssigned(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// resolveSiteCode falls back to the raw ID when the sites port cannot answer,
// so a lookup failure never blocks a notification.
func (m *Module) resolveSiteCode(ctx context.Context, siteID uuid.UUID) string {
	if m.sites == nil {
		return siteID.String()
	}
	code, err := m.sites.SiteCode(ctx, siteID)
	if err != nil || code == "" {
		return siteID.String()
	}
	return code
}

func (m *Module) handleVisitSubmitted(ctx context.Context, e events.VisitSubmitted) error {
	engineerName, _, err := m.engineers.ContactInfo(ctx, e.EngineerID)
	if err != nil {
		m.log.Warn("failed to resolve engineer for submitted visit", "visitId", e.VisitID, "error", err)
		engineerName = "an engineer"
	}

	opsEmail := m.cfg.GetOpsEmailAddress()
	if opsEmail == "" {
		m.log.Debug("ops email not configured; submit notification skipped", "visitId", e.VisitID)
		return nil
	}

	siteCode := m.resolveSiteCode(ctx, e.SiteID)
	if err := m.sender.SendVisitSubmittedEmail(ctx, opsEmail, e.VisitNumber, siteCode, engineerName); err != nil {
		m.log.Error("failed to send visit submitted email",
			"visitId", e.VisitID,
			"visitNumber", e.VisitNumber,
			"error", err,
		)
		return err
	}
	m.log.Info("visit submitted email sent", "visitNumber", e.VisitNumber, "to", opsEmail)
	return nil
}

func (m *Module) handleVisitApproved(ctx context.Context, e events.VisitApproved) error {
	name, addr, err := m.engineers.ContactInfo(ctx, e.EngineerID)
	if err != nil {
		m.log.Error("failed to resolve engineer for approved visit", "visitId", e.VisitID, "error", err)
		return err
	}

	m.notifyInApp(ctx, inapp.SendParams{
		UserID:       e.EngineerID,
		Title:        "Visit approved",
		Content:      fmt.Sprintf("Visit %s was approved by %s.", e.VisitNumber, e.ReviewerName),
		ResourceID:   &e.VisitID,
		ResourceType: "visit",
		Category:     "success",
	})

	if addr == "" {
		return nil
	}
	if err := m.sender.SendVisitApprovedEmail(ctx, addr, name, e.VisitNumber, e.ReviewerName); err != nil {
		m.log.Error("failed to send visit approved email", "visitNumber", e.VisitNumber, "error", err)
		return err
	}
	m.log.Info("visit approved email sent", "visitNumber", e.VisitNumber, "to", addr)
	return nil
}

func (m *Module) handleVisitRejected(ctx context.Context, e events.VisitRejected) error {
	name, addr, err := m.engineers.ContactInfo(ctx, e.EngineerID)
	if err != nil {
		m.log.Error("failed to resolve engineer for rejected visit", "visitId", e.VisitID, "error", err)
		return err
	}

	m.notifyInApp(ctx, inapp.SendParams{
		UserID:       e.EngineerID,
		Title:        "Visit rejected",
		Content:      fmt.Sprintf("Visit %s was rejected by %s: %s", e.VisitNumber, e.ReviewerName, e.Reason),
		ResourceID:   &e.VisitID,
		ResourceType: "visit",
		Category:     "error",
	})

	if addr == "" {
		return nil
	}
	if err := m.sender.SendVisitRejectedEmail(ctx, addr, name, e.VisitNumber, e.ReviewerName, e.Reason); err != nil {
		m.log.Error("failed to send visit rejected email", "visitNumber", e.VisitNumber, "error", err)
		return err
	}
	m.log.Info("visit rejected email sent", "visitNumber", e.VisitNumber, "to", addr)
	return nil
}

func (m *Module) handleVisitCorrectionRequested(ctx context.Context, e events.VisitCorrectionRequested) error {
	name, addr, err := m.engineers.ContactInfo(ctx, e.EngineerID)
	if err != nil {
		m.log.Error("failed to resolve engineer for correction request", "visitId", e.VisitID, "error", err)
		return err
	}

	m.notifyInApp(ctx, inapp.SendParams{
		UserID:       e.EngineerID,
		Title:        "Visit needs correction",
		Content:      fmt.Sprintf("Visit %s was sent back by %s: %s", e.VisitNumber, e.ReviewerName, e.Notes),
		ResourceID:   &e.VisitID,
		ResourceType: "visit",
		Category:     "warning",
	})

	if addr == "" {
		return nil
	}
	if err := m.sender.SendVisitCorrectionEmail(ctx, addr, name, e.VisitNumber, e.ReviewerName, e.Notes); err != nil {
		m.log.Error("failed to send visit correction email", "visitNumber", e.VisitNumber, "error", err)
		return err
	}
	m.log.Info("visit correction email sent", "visitNumber", e.VisitNumber, "to", addr)
	return nil
}

func (m *Module) handleLowStockAlert(ctx context.Context, e events.LowStockAlert) error {
	opsEmail := m.cfg.GetOpsEmailAddress()
	if opsEmail == "" {
		m.log.Debug("ops email not configured; low stock alert skipped", "materialId", e.MaterialID)
		return nil
	}

	if err := m.sender.SendLowStockAlertEmail(ctx, opsEmail, e.MaterialName, e.Unit, e.CurrentStock, e.MinimumStock); err != nil {
		m.log.Error("failed to send low stock alert email",
			"materialId", e.MaterialID,
			"material", e.MaterialName,
			"error", err,
		)
		return err
	}
	m.log.Info("low stock alert email sent", "material", e.MaterialName, "to", opsEmail)
	return nil
}

func (m *Module) handleSiteAssigned(ctx context.Context, e events.SiteAssigned) error {
	siteCode := m.resolveSiteCode(ctx, e.SiteID)
	m.notifyInApp(ctx, inapp.SendParams{
		UserID:       e.EngineerID,
		Title:        "New site assigned",
		Content:      fmt.Sprintf("Site %s has been added to your maintenance portfolio.", siteCode),
		ResourceID:   &e.SiteID,
		ResourceType: "site",
		Category:     "info",
	})
	return nil
}

// notifyInApp writes to the inbox without failing the surrounding handler.
// In-app delivery is best effort next to the email channel.
func (m *Module) notifyInApp(ctx context.Context, p inapp.SendParams) {
	if m.inApp == nil {
		return
	}
	if err := m.inApp.Send(ctx, p); err != nil {
		m.log.Warn("failed to write in-app notification", "userId", p.UserID, "title", p.Title, "error", err)
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
