package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/crm_backend/config"
	"bitbucket.org/mmdatafocus/crm_backend/events"
	"bitbucket.org/mmdatafocus/crm_backend/models"
	"bitbucket.org/mmdatafocus/crm_backend/utils"
)

// MarkDelivered records a shipment's delivery and completes its order:
//
//	step 1: shipment status -> Delivered, delivery_date = today;
//	step 2: order status -> Completed, unconditionally.
//
// Step 2 does not check whether undelivered shipments remain against
// the order: delivering one partial shipment marks the whole order
// Completed. Known limitation, kept as observable behavior (see
// Order.RemainingQuantities for the read-side derivation that still
// reports the undelivered remainder).
//
// Same non-atomicity as conversion: two sequential writes, no rollback.
func (o *Orchestrator) MarkDelivered(ctx context.Context, shipmentId string, orderId string) Outcome {
	tenantId, _, err := o.tenantPath(ctx, models.CollectionShipments)
	if err != nil {
		return Outcome{Err: err}
	}

	release := o.acquireTenantLock(ctx, tenantId)
	defer release()

	err = o.backend.Update(ctx, models.TenantCollectionPath(tenantId, models.CollectionShipments), shipmentId, map[string]any{
		"status":        string(models.ShipmentStatusDelivered),
		"delivery_date": o.now(),
	})
	if err != nil {
		config.LogError(o.logger, "workflow", "MarkDelivered", "shipment "+shipmentId, nil, err)
		return Outcome{Err: err}
	}

	err = o.backend.Update(ctx, models.TenantCollectionPath(tenantId, models.CollectionOrders), orderId, map[string]any{
		"status": string(models.OrderStatusCompleted),
	})
	if err != nil {
		config.LogError(o.logger, "workflow", "MarkDelivered", "order "+orderId, nil, err)
		return Outcome{Err: fmt.Errorf("%w: complete order %s after delivering shipment %s: %v",
			utils.ErrorPartialWorkflow, orderId, shipmentId, err)}
	}

	auditErr := o.LogActivity(ctx, models.ActionMarkShipmentDelivered, models.ActivityDetails{
		Message: fmt.Sprintf("shipment %s delivered, order %s completed", shipmentId, orderId),
	})
	o.events.Publish(ctx, tenantId, events.EventShipmentDelivered, map[string]any{
		"shipmentId": shipmentId,
		"orderId":    orderId,
	})
	return Outcome{AuditErr: auditErr}
}
