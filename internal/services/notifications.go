package services

import (
	"context"
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/yungbote/counselbridge-backend/internal/clients/mailservice"
	"github.com/yungbote/counselbridge-backend/internal/clients/rabbitmq"
	"github.com/yungbote/counselbridge-backend/internal/data/repos"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/jobs/worker"
	"github.com/yungbote/counselbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

const (
	TaskAssignmentEmail = "assignment_email"
	TaskStatisticsEvent = "statistics_event"
)

// NotificationDispatcher queues the e-mail telling a consultant a case was
// handed to them. It never reports failures to the caller.
type NotificationDispatcher interface {
	SendAssignmentEmail(ctx context.Context, consultant *types.Consultant, actorID, askerName string, tenant types.TenantContext)
}

// StatisticsDispatcher queues an audit event. It never reports failures to the caller.
type StatisticsDispatcher interface {
	FireEvent(ctx context.Context, event types.StatisticsEvent)
}

type notificationDispatcher struct {
	log         *logger.Logger
	pool        *worker.Pool
	consultants repos.ConsultantRepo
	mail        mailservice.Client
	appBaseURL  string
}

func NewNotificationDispatcher(log *logger.Logger, pool *worker.Pool, consultants repos.ConsultantRepo, mail mailservice.Client, appBaseURL string) NotificationDispatcher {
	return &notificationDispatcher{
		log:         log.With("service", "NotificationDispatcher"),
		pool:        pool,
		consultants: consultants,
		mail:        mail,
		appBaseURL:  appBaseURL,
	}
}

func (d *notificationDispatcher) SendAssignmentEmail(ctx context.Context, consultant *types.Consultant, actorID, askerName string, tenant types.TenantContext) {
	if consultant == nil {
		return
	}
	receiver := *consultant
	ok := d.pool.Submit(TaskAssignmentEmail, func(taskCtx context.Context) error {
		mails, err := d.buildAssignmentMails(taskCtx, &receiver, actorID, askerName, tenant)
		if err != nil || len(mails) == 0 {
			return err
		}
		if d.mail == nil {
			d.log.Warn("mail service not configured, assignment mail dropped", "consultant_id", receiver.ID)
			return nil
		}
		if err := d.mail.SendMails(taskCtx, mails); err != nil {
			d.log.Error("sending assignment mail failed", "consultant_id", receiver.ID, "error", err)
			return err
		}
		return nil
	})
	if !ok {
		d.log.Error("assignment mail not queued", "consultant_id", consultant.ID)
	}
}

// buildAssignmentMails returns no mail, and logs, when the receiver has no
// address or the sender cannot be found.
func (d *notificationDispatcher) buildAssignmentMails(ctx context.Context, receiver *types.Consultant, actorID, askerName string, tenant types.TenantContext) ([]mailservice.Mail, error) {
	if strings.TrimSpace(receiver.Email) == "" {
		d.log.Error("assignment mail skipped, receiver has no email", "consultant_id", receiver.ID)
		return nil, nil
	}
	sender, err := d.consultants.GetByID(ctx, nil, actorID)
	if err != nil || sender == nil {
		d.log.Error("assignment mail skipped, sender not found", "consultant_id", receiver.ID, "actor_id", actorID, "error", err)
		return nil, nil
	}
	return []mailservice.Mail{{
		Template: mailservice.TemplateAssignEnquiryNotification,
		Email:    receiver.Email,
		TemplateData: []mailservice.TemplateData{
			{Key: "name_sender", Value: sender.FullName()},
			{Key: "name_recipient", Value: receiver.FullName()},
			{Key: "name_user", Value: DecodeUsername(askerName)},
			{Key: "url", Value: tenantURL(d.appBaseURL, tenant)},
		},
	}}, nil
}

func tenantURL(base string, tenant types.TenantContext) string {
	if tenant.Subdomain == "" {
		return base
	}
	scheme, host, ok := strings.Cut(base, "://")
	if !ok {
		return base
	}
	return fmt.Sprintf("%s://%s.%s", scheme, tenant.Subdomain, host)
}

const encodedUsernamePrefix = "enc."

// DecodeUsername reverses the base32 encoding askers' chat usernames carry.
// Plain usernames are returned unchanged.
func DecodeUsername(username string) string {
	if !strings.HasPrefix(username, encodedUsernamePrefix) {
		return username
	}
	raw := strings.ToUpper(strings.ReplaceAll(strings.TrimPrefix(username, encodedUsernamePrefix), ".", "="))
	decoded, err := base32.StdEncoding.DecodeString(raw)
	if err != nil {
		return username
	}
	return string(decoded)
}

type statisticsDispatcher struct {
	log       *logger.Logger
	pool      *worker.Pool
	publisher rabbitmq.StatisticsPublisher
}

// NewStatisticsDispatcher drops every event when publisher is nil.
func NewStatisticsDispatcher(log *logger.Logger, pool *worker.Pool, publisher rabbitmq.StatisticsPublisher) StatisticsDispatcher {
	return &statisticsDispatcher{
		log:       log.With("service", "StatisticsDispatcher"),
		pool:      pool,
		publisher: publisher,
	}
}

func (d *statisticsDispatcher) FireEvent(ctx context.Context, event types.StatisticsEvent) {
	if d.publisher == nil {
		d.log.Debug("statistics disabled, event dropped", "event_type", event.EventType, "session_id", event.SessionID)
		return
	}
	ok := d.pool.Submit(TaskStatisticsEvent, func(taskCtx context.Context) error {
		if err := d.publisher.Publish(ctxutil.Detach(ctx, taskCtx), event); err != nil {
			d.log.Error("statistics event not published", "event_type", event.EventType, "session_id", event.SessionID, "error", err)
			return err
		}
		return nil
	})
	if !ok {
		d.log.Error("statistics event not queued", "event_type", event.EventType, "session_id", event.SessionID)
	}
}
