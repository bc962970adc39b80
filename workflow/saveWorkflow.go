package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/crm_backend/config"
	"bitbucket.org/mmdatafocus/crm_backend/models"
	"bitbucket.org/mmdatafocus/crm_backend/utils"
)

// Upsert saves one record into a collection. With an "id" field present
// it performs a partial update of only the supplied fields; without one
// it creates a new document and returns the generated id.
//
// Collection quirks, preserved from the product's behavior:
//   - products: cost_price / selling_price are coerced to decimal,
//     silently becoming 0 on parse failure;
//   - orders created without status default to Pending, quotes to
//     Prepared; both default a missing date to the current date.
func (o *Orchestrator) Upsert(ctx context.Context, collection string, record map[string]any) (string, Outcome) {
	_, path, err := o.tenantPath(ctx, collection)
	if err != nil {
		return "", Outcome{Err: err}
	}

	id, _ := record["id"].(string)
	fields := make(map[string]any, len(record))
	for k, v := range record {
		if k == "id" {
			continue
		}
		fields[k] = v
	}

	creating := id == ""
	if collection == models.CollectionProducts {
		normalizeProductFields(fields, creating)
	}
	if creating {
		o.applyCreateDefaults(collection, fields)
		id, err = o.backend.Create(ctx, path, fields)
	} else {
		err = o.backend.Update(ctx, path, id, fields)
	}
	if err != nil {
		config.LogError(o.logger, "workflow", "Upsert", collection, record, err)
		return "", Outcome{Err: err}
	}

	out := Outcome{}
	if action, ok := models.ActionForSave(collection, creating); ok {
		out.AuditErr = o.LogActivity(ctx, action, models.ActivityDetails{
			Message: string(action) + " " + id,
		})
	}
	return id, out
}

// normalizeProductFields coerces the price fields whenever they are
// supplied, and on create also fills missing prices with zero so a
// product's prices are always stored numeric. Invalid or missing input
// never blocks the save. On update an absent price stays untouched:
// partial-update semantics win over the zero default.
func normalizeProductFields(fields map[string]any, creating bool) {
	for _, key := range []string{"cost_price", "selling_price"} {
		if _, ok := fields[key]; ok || creating {
			fields[key] = utils.CoerceDecimal(fields[key]).String()
		}
	}
}

func (o *Orchestrator) applyCreateDefaults(collection string, fields map[string]any) {
	switch collection {
	case models.CollectionOrders:
		if fieldAbsent(fields, "status") {
			fields["status"] = string(models.OrderStatusPending)
		}
		if fieldAbsent(fields, "order_date") {
			fields["order_date"] = o.now()
		}
	case models.CollectionQuotes:
		if fieldAbsent(fields, "status") {
			fields["status"] = string(models.QuoteStatusPrepared)
		}
		if fieldAbsent(fields, "date") {
			fields["date"] = o.now()
		}
	}
}
