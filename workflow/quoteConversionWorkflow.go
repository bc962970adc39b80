package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/crm_backend/config"
	"bitbucket.org/mmdatafocus/crm_backend/events"
	"bitbucket.org/mmdatafocus/crm_backend/models"
	"bitbucket.org/mmdatafocus/crm_backend/utils"
)

// ConvertQuoteToOrder advances a prepared quote into an order:
//
//	step 1: create the order, copying items and totals, status forced
//	        to Pending, fresh order date, quoteId linking back;
//	step 2: update the quote to Approved with orderId set.
//
// The two writes are sequential and NOT atomic; the backend offers no
// multi-document transaction to this client. If step 2 fails after
// step 1 committed, the order exists with quoteId set while the quote
// still reads Prepared with no orderId. That window is observable by
// concurrent readers and the failure is surfaced as
// utils.ErrorPartialWorkflow rather than compensated.
func (o *Orchestrator) ConvertQuoteToOrder(ctx context.Context, quote models.Quote) (models.Order, Outcome) {
	tenantId, _, err := o.tenantPath(ctx, models.CollectionOrders)
	if err != nil {
		return models.Order{}, Outcome{Err: err}
	}
	if quote.Id == "" {
		return models.Order{}, Outcome{Err: errors.New("quote id is required")}
	}
	if quote.Status == models.QuoteStatusApproved {
		// An approved quote already has its order; never re-approve.
		return models.Order{}, Outcome{Err: errors.New("quote is already approved")}
	}

	release := o.acquireTenantLock(ctx, tenantId)
	defer release()

	order := models.Order{
		CustomerId:  quote.CustomerId,
		Items:       quote.Items,
		Subtotal:    quote.Subtotal,
		VatRate:     quote.VatRate,
		VatAmount:   quote.VatAmount,
		TotalAmount: quote.TotalAmount,
		Status:      models.OrderStatusPending,
		OrderDate:   o.now(),
		QuoteId:     quote.Id,
		CreatedAt:   o.now(),
	}
	orderFields, err := utils.EncodeFields(order)
	if err != nil {
		return models.Order{}, Outcome{Err: err}
	}

	orderId, err := o.backend.Create(ctx, models.TenantCollectionPath(tenantId, models.CollectionOrders), orderFields)
	if err != nil {
		config.LogError(o.logger, "workflow", "ConvertQuoteToOrder", "create order from quote "+quote.Id, nil, err)
		return models.Order{}, Outcome{Err: err}
	}
	order.Id = orderId

	err = o.backend.Update(ctx, models.TenantCollectionPath(tenantId, models.CollectionQuotes), quote.Id, map[string]any{
		"status":  string(models.QuoteStatusApproved),
		"orderId": orderId,
	})
	if err != nil {
		config.LogError(o.logger, "workflow", "ConvertQuoteToOrder", "approve quote "+quote.Id, nil, err)
		return order, Outcome{Err: fmt.Errorf("%w: approve quote %s after creating order %s: %v",
			utils.ErrorPartialWorkflow, quote.Id, orderId, err)}
	}

	auditErr := o.LogActivity(ctx, models.ActionConvertQuoteToOrder, models.ActivityDetails{
		Message:    fmt.Sprintf("quote %s converted to order %s", quote.Id, orderId),
		Amount:     &quote.TotalAmount,
		CustomerId: quote.CustomerId,
	})
	o.events.Publish(ctx, tenantId, events.EventQuoteConverted, map[string]any{
		"quoteId": quote.Id,
		"orderId": orderId,
	})
	return order, Outcome{AuditErr: auditErr}
}
