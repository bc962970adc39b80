// Package reports derives read-side views from the mirrored collection
// state. Derivations always run on whatever the last mirror snapshot
// is, which may momentarily lag a write that triggered them; soft
// deleted documents are filtered everywhere.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/crm_backend/models"
	"bitbucket.org/mmdatafocus/crm_backend/utils"
)

type Dashboard struct {
	TotalCustomers  int                        `json:"total_customers"`
	ActiveCustomers int                        `json:"active_customers"`
	PendingQuotes   int                        `json:"pending_quotes"`
	OpenOrders      int                        `json:"open_orders"`
	OverdueMeetings []models.Meeting           `json:"overdue_meetings"`
	MonthlySales    map[string]decimal.Decimal `json:"monthly_sales"`
}

// BuildDashboard computes the dashboard from decoded snapshots.
func BuildDashboard(
	customers []models.Customer,
	quotes []models.Quote,
	orders []models.Order,
	meetings []models.Meeting,
	now time.Time,
) Dashboard {
	d := Dashboard{
		OverdueMeetings: []models.Meeting{},
		MonthlySales:    map[string]decimal.Decimal{},
	}

	for _, c := range models.FilterDeleted(customers) {
		d.TotalCustomers++
		if c.Status == models.CustomerStatusActive {
			d.ActiveCustomers++
		}
	}
	for _, q := range models.FilterDeleted(quotes) {
		if q.Status == models.QuoteStatusPrepared {
			d.PendingQuotes++
		}
	}
	for _, o := range models.FilterDeleted(orders) {
		if o.Status != models.OrderStatusCompleted {
			d.OpenOrders++
		}
		if !o.OrderDate.IsZero() {
			month := o.OrderDate.Format("2006-01")
			d.MonthlySales[month] = d.MonthlySales[month].Add(o.TotalAmount)
		}
	}
	for _, m := range meetings {
		if m.IsOverdue(now) {
			d.OverdueMeetings = append(d.OverdueMeetings, m)
		}
	}
	return d
}

// LookupCustomer resolves a customer by id for display. A soft-deleted
// customer resolves to not-found even though the raw document still
// exists; dangling references from orders or quotes land here.
func LookupCustomer(customers []models.Customer, id string) (models.Customer, error) {
	for _, c := range customers {
		if c.Id == id {
			if c.IsDeleted {
				return models.Customer{}, utils.ErrorRecordNotFound
			}
			return c, nil
		}
	}
	return models.Customer{}, utils.ErrorRecordNotFound
}
