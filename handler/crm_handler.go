package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/crm_backend/mirror"
	"bitbucket.org/mmdatafocus/crm_backend/models"
	"bitbucket.org/mmdatafocus/crm_backend/reports"
	"bitbucket.org/mmdatafocus/crm_backend/utils"
	"bitbucket.org/mmdatafocus/crm_backend/workflow"
)

type CRMHandler struct {
	Manager      *mirror.Manager
	Orchestrator *workflow.Orchestrator
	Logger       *logrus.Logger
}

func NewCRMHandler(manager *mirror.Manager, orchestrator *workflow.Orchestrator, logger *logrus.Logger) *CRMHandler {
	return &CRMHandler{Manager: manager, Orchestrator: orchestrator, Logger: logger}
}

// Save handles POST /api/:collection and PUT /api/:collection/:id.
// Creates bind to the collection's input type so required-field tags
// run; updates keep the raw field subset the client supplied, because
// a typed bind would materialize every omitted field as its zero value
// and overwrite stored data on the partial update.
func (h *CRMHandler) Save(c *gin.Context) {
	collection := c.Param("collection")
	id := c.Param("id")

	var record map[string]any
	var ok bool
	if id == "" {
		record, ok = h.bindNewRecord(c, collection)
	} else {
		record, ok = h.bindPartialRecord(c, collection)
	}
	if !ok {
		return
	}
	if id != "" {
		record["id"] = id
	}

	id, out := h.Orchestrator.Upsert(c.Request.Context(), collection, record)
	if out.Err != nil {
		status := http.StatusInternalServerError
		if errors.Is(out.Err, utils.ErrorRecordNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": out.Err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "audit_ok": out.AuditErr == nil})
}

func (h *CRMHandler) bindNewRecord(c *gin.Context, collection string) (map[string]any, bool) {
	var input any
	switch collection {
	case models.CollectionCustomers:
		input = &models.NewCustomer{}
	case models.CollectionProducts:
		input = &models.NewProduct{}
	case models.CollectionQuotes:
		input = &models.NewQuote{}
	case models.CollectionOrders:
		input = &models.NewOrder{}
	case models.CollectionShipments:
		input = &models.NewShipment{}
	case models.CollectionMeetings:
		input = &models.NewMeeting{}
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
		return nil, false
	}
	if err := c.ShouldBindJSON(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return nil, false
	}
	if nc, ok := input.(*models.NewCustomer); ok {
		if err := nc.Validate(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}
	}
	record, err := utils.EncodeFields(input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return record, true
}

func (h *CRMHandler) bindPartialRecord(c *gin.Context, collection string) (map[string]any, bool) {
	var record map[string]any
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	delete(record, "id")
	if len(record) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty update"})
		return nil, false
	}
	if err := validatePartialRecord(collection, record); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errUnknownCollection) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, false
	}
	return record, true
}

var errUnknownCollection = errors.New("unknown collection")

// validatePartialRecord type-checks only the supplied fields by decoding
// the subset into the entity type, so enum validation still runs on
// updates. Product prices are excluded: they are coerced on save, never
// rejected.
func validatePartialRecord(collection string, record map[string]any) error {
	subset := record
	var dest any
	switch collection {
	case models.CollectionCustomers:
		dest = &models.Customer{}
	case models.CollectionProducts:
		subset = make(map[string]any, len(record))
		for k, v := range record {
			if k == "cost_price" || k == "selling_price" {
				continue
			}
			subset[k] = v
		}
		dest = &models.Product{}
	case models.CollectionQuotes:
		dest = &models.Quote{}
	case models.CollectionOrders:
		dest = &models.Order{}
	case models.CollectionShipments:
		dest = &models.Shipment{}
	case models.CollectionMeetings:
		dest = &models.Meeting{}
	default:
		return errUnknownCollection
	}
	return utils.DecodeFields(subset, dest)
}

// Delete handles DELETE /api/:collection/:id as a soft delete. On
// failure the entity remains fully visible and usable.
func (h *CRMHandler) Delete(c *gin.Context) {
	collection := c.Param("collection")
	id := c.Param("id")

	ok, out := h.Orchestrator.SoftDelete(c.Request.Context(), collection, id)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"deleted": false, "error": out.Err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "audit_ok": out.AuditErr == nil})
}

// Convert handles POST /api/quotes/:id/convert.
func (h *CRMHandler) Convert(c *gin.Context) {
	ctx := c.Request.Context()
	quoteId := c.Param("id")

	doc, err := h.Orchestrator.Fetch(ctx, models.CollectionQuotes, quoteId)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, utils.ErrorRecordNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	quote, err := models.DecodeDocument[models.Quote](doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	order, out := h.Orchestrator.ConvertQuoteToOrder(ctx, quote)
	if out.Err != nil {
		if errors.Is(out.Err, utils.ErrorPartialWorkflow) {
			// Step 1 committed, step 2 failed: report the partially
			// completed state instead of hiding it.
			c.JSON(http.StatusConflict, gin.H{
				"error":   "conversion partially completed",
				"orderId": order.Id,
				"detail":  out.Err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": out.Err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "audit_ok": out.AuditErr == nil})
}

// Deliver handles POST /api/shipments/:id/deliver.
func (h *CRMHandler) Deliver(c *gin.Context) {
	var body struct {
		OrderId string `json:"orderId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}

	out := h.Orchestrator.MarkDelivered(c.Request.Context(), c.Param("id"), body.OrderId)
	if out.Err != nil {
		if errors.Is(out.Err, utils.ErrorPartialWorkflow) {
			c.JSON(http.StatusConflict, gin.H{
				"error":  "delivery partially completed",
				"detail": out.Err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": out.Err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": true, "audit_ok": out.AuditErr == nil})
}

// Dashboard handles GET /api/dashboard, computed from the tenant's
// mirror state. The mirror may momentarily lag recent writes; the
// response carries the connection status so clients can tell.
func (h *CRMHandler) Dashboard(c *gin.Context) {
	tenantId := c.GetString("tenant_id")
	m := h.Manager.Acquire(tenantId)
	defer h.Manager.Release(tenantId)
	h.waitMirror(c, m)

	customers, err1 := models.DecodeAll[models.Customer](m.Snapshot(models.CollectionCustomers))
	quotes, err2 := models.DecodeAll[models.Quote](m.Snapshot(models.CollectionQuotes))
	orders, err3 := models.DecodeAll[models.Order](m.Snapshot(models.CollectionOrders))
	meetings, err4 := models.DecodeAll[models.Meeting](m.Snapshot(models.CollectionMeetings))
	for _, err := range []error{err1, err2, err3, err4} {
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    m.Status(),
		"dashboard": reports.BuildDashboard(customers, quotes, orders, meetings, time.Now()),
	})
}

// CustomerReport handles GET /api/reports/customers.xlsx.
func (h *CRMHandler) CustomerReport(c *gin.Context) {
	tenantId := c.GetString("tenant_id")
	m := h.Manager.Acquire(tenantId)
	defer h.Manager.Release(tenantId)
	h.waitMirror(c, m)

	customers, err := models.DecodeAll[models.Customer](m.Snapshot(models.CollectionCustomers))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	orders, err := models.DecodeAll[models.Order](m.Snapshot(models.CollectionOrders))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	f, err := reports.CustomerReport(customers, orders)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="customers.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		h.Logger.WithError(err).Error("failed to stream customer report")
	}
}

// waitMirror gives a freshly opened mirror a bounded window to load its
// first snapshots before a read derives anything from it. A mirror kept
// warm by a previous request returns immediately.
func (h *CRMHandler) waitMirror(c *gin.Context, m *mirror.Mirror) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	m.WaitReady(ctx)
}

// Status handles GET /api/status: the single aggregate connection
// status, no per-collection health.
func (h *CRMHandler) Status(c *gin.Context) {
	tenantId := c.GetString("tenant_id")
	m := h.Manager.Acquire(tenantId)
	defer h.Manager.Release(tenantId)
	c.JSON(http.StatusOK, gin.H{"status": m.Status()})
}
