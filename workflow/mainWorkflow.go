// Package workflow translates user-level intents into ordered backend
// writes and records an audit entry for every completed action. The
// orchestrator owns no persistent state: every write is immediately
// delegated to the document backend, and reads flow back through the
// collection mirror asynchronously.
package workflow

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/crm_backend/docstore"
	"bitbucket.org/mmdatafocus/crm_backend/events"
	"bitbucket.org/mmdatafocus/crm_backend/models"
	"bitbucket.org/mmdatafocus/crm_backend/utils"
)

// Outcome is the composite result of one user intent: the business
// write outcome and, separately, the audit append outcome. Audit
// failure never fails the parent operation.
type Outcome struct {
	Err      error
	AuditErr error
}

func (o Outcome) OK() bool { return o.Err == nil }

type Orchestrator struct {
	backend docstore.Backend
	logger  *logrus.Logger
	events  *events.Publisher

	now func() time.Time
}

func NewOrchestrator(backend docstore.Backend, logger *logrus.Logger, publisher *events.Publisher) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		logger:  logger,
		events:  publisher,
		now:     time.Now,
	}
}

// tenantPath resolves the tenant-scoped path for a collection from the
// caller's context.
func (o *Orchestrator) tenantPath(ctx context.Context, collection string) (string, string, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return "", "", utils.ErrorTenantRequired
	}
	return tenantId, models.TenantCollectionPath(tenantId, collection), nil
}

// Fetch reads one document by id, for callers that need an entity's
// current stored state before starting a workflow (e.g. the quote to
// convert). Lookups for display go through the mirror instead.
func (o *Orchestrator) Fetch(ctx context.Context, collection string, id string) (docstore.Document, error) {
	_, path, err := o.tenantPath(ctx, collection)
	if err != nil {
		return docstore.Document{}, err
	}
	return o.backend.Get(ctx, path, id)
}

// fieldAbsent reports whether a field is missing or falsy, the condition
// under which create-time defaults apply. Defaults never override an
// explicit value and are never reapplied on update.
func fieldAbsent(fields map[string]any, key string) bool {
	v, ok := fields[key]
	if !ok || v == nil {
		return true
	}
	s, isStr := v.(string)
	return isStr && s == ""
}
