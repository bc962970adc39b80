package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/crm_backend/config"
	"bitbucket.org/mmdatafocus/crm_backend/models"
)

// SoftDelete marks a document deleted in place; nothing is ever
// physically removed. The result is a boolean: on false the entity
// remains fully visible and usable, callers must not assume it is gone.
//
// The delete is not recursive. Deleting an order does not cascade to
// its shipments or a linked quote; readers tolerate the dangling
// references by resolving lookups against deleted parents to not-found.
func (o *Orchestrator) SoftDelete(ctx context.Context, collection string, id string) (bool, Outcome) {
	_, path, err := o.tenantPath(ctx, collection)
	if err != nil {
		return false, Outcome{Err: err}
	}

	fields := map[string]any{
		models.FieldIsDeleted: true,
		models.FieldDeletedAt: o.now(),
	}
	if err := o.backend.Update(ctx, path, id, fields); err != nil {
		config.LogError(o.logger, "workflow", "SoftDelete", collection+"/"+id, nil, err)
		return false, Outcome{Err: err}
	}

	out := Outcome{}
	if action, ok := models.ActionForDelete(collection); ok {
		out.AuditErr = o.LogActivity(ctx, action, models.ActivityDetails{
			Message: string(action) + " " + id,
		})
	}
	return true, out
}
