package reports

import (
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bitbucket.org/mmdatafocus/crm_backend/models"
)

// CustomerReport renders one row per non-deleted customer with their
// order totals, ready to stream as an .xlsx download.
func CustomerReport(customers []models.Customer, orders []models.Order) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Customers"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"Name", "Company", "Email", "Phone", "Status", "Orders", "Total Amount"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	totals := map[string]decimal.Decimal{}
	counts := map[string]int{}
	for _, o := range models.FilterDeleted(orders) {
		totals[o.CustomerId] = totals[o.CustomerId].Add(o.TotalAmount)
		counts[o.CustomerId]++
	}

	row := 2
	for _, c := range models.FilterDeleted(customers) {
		values := []any{c.Name, c.Company, c.Email, c.Phone, string(c.Status), counts[c.Id], totals[c.Id].String()}
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
		row++
	}

	if row == 2 {
		// Keep an explicit marker so an empty export is visibly empty.
		if err := f.SetCellValue(sheet, "A2", "no customers"); err != nil {
			return nil, err
		}
	}
	return f, nil
}
