package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/helios-hr/helios/internal/jobs"
)

// AdminProvisioner creates the first admin account inside a new tenant.
type AdminProvisioner interface {
	ProvisionTenantAdmin(ctx context.Context, tenantID uuid.UUID, name, email, password string) error
}

// SessionSweeper deletes expired session audit rows.
type SessionSweeper interface {
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

// TenantProvisionHandler builds the handler for tenant provisioning tasks.
// On success it also queues a notification mail carrying the generated
// password to the tenant's contact address.
func TenantProvisionHandler(provisioner AdminProvisioner, mailer *Client, logger *slog.Logger) asynq.HandlerFunc {
	metrics := jobmetrics.NewMetrics(nil)
	return func(ctx context.Context, t *asynq.Task) (err error) {
		defer func(tracker *jobmetrics.Tracker) {
			err = tracker.End(err)
		}(metrics.Track(TaskTypeTenantProvision))

		var payload TenantProvisionPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.TenantID == uuid.Nil {
			return asynq.SkipRetry
		}

		if err := provisioner.ProvisionTenantAdmin(ctx, payload.TenantID, payload.Name, payload.Email, payload.Password); err != nil {
			logger.Error("tenant provisioning",
				slog.String("tenant", payload.TenantID.String()),
				slog.Any("error", err),
			)
			return err
		}
		logger.Info("tenant provisioned",
			slog.String("tenant", payload.TenantID.String()),
			slog.String("admin", payload.Email),
		)

		if mailer != nil {
			_, err := mailer.EnqueueSendEmail(ctx, SendEmailPayload{
				To:      payload.Email,
				Subject: "Your workspace is ready",
				Body:    fmt.Sprintf("Sign in as %s with the temporary password %s and change it immediately.", payload.Email, payload.Password),
			})
			if err != nil {
				logger.Warn("queue welcome mail", slog.Any("error", err))
			}
		}
		return nil
	}
}

// SessionSweepHandler builds the handler for the periodic session sweep.
func SessionSweepHandler(sweeper SessionSweeper, logger *slog.Logger) asynq.HandlerFunc {
	metrics := jobmetrics.NewMetrics(nil)
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeSessionSweep)
		removed, err := sweeper.SweepExpiredSessions(ctx)
		if err != nil {
			return tracker.End(err)
		}
		if removed > 0 {
			logger.Info("expired sessions swept", slog.Int64("removed", removed))
		}
		return tracker.End(nil)
	}
}
