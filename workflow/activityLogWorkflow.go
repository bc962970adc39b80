package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/crm_backend/config"
	"bitbucket.org/mmdatafocus/crm_backend/docstore"
	"bitbucket.org/mmdatafocus/crm_backend/models"
	"bitbucket.org/mmdatafocus/crm_backend/utils"
)

// LogActivity appends one audit entry for a completed user action. The
// append is fire-and-forget: a failure is logged locally and returned
// for the composite Outcome, but it never fails the parent workflow and
// is never retried. Entries are ordered by the server-assigned
// timestamp and are never updated or deleted.
func (o *Orchestrator) LogActivity(ctx context.Context, action models.ActivityAction, details models.ActivityDetails) error {
	_, path, err := o.tenantPath(ctx, models.CollectionActivityLog)
	if err != nil {
		return err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	detailFields, err := utils.EncodeFields(details)
	if err != nil {
		config.LogError(o.logger, "workflow", "LogActivity", string(action), details, err)
		return err
	}
	fields := map[string]any{
		"userId":    userId,
		"action":    string(action),
		"details":   detailFields,
		"timestamp": docstore.ServerTimestamp,
	}
	if _, err := o.backend.Create(ctx, path, fields); err != nil {
		config.LogError(o.logger, "workflow", "LogActivity", string(action), details, err)
		return err
	}
	return nil
}
