package xlsxexport

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"medparse/internal/service"
)

const sheet = "Invoices"

// columns defines the header row. One row per submitted document; failed
// documents keep their row with the error message filled in.
var columns = []string{
	"File Name",
	"Status",
	"Error",
	"Total Amount",
	"Payee",
	"Visit Date",
	"Insurance Payment",
	"Personal Payment",
	"Personal Account Payment",
	"Personal Cash Payment",
}

// Write renders a batch of conversion results as an XLSX workbook.
func Write(results []service.DocumentResult) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}

	for i, h := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for rowIdx, res := range results {
		row := buildRow(res)
		for colIdx, val := range row {
			if val == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func buildRow(res service.DocumentResult) []interface{} {
	row := make([]interface{}, len(columns))
	row[0] = res.FileName

	if res.Err != nil {
		row[1] = "failed"
		row[2] = res.Err.Error()
		return row
	}

	row[1] = "ok"
	inv := res.Invoice
	if inv == nil {
		return row
	}
	if inv.TotalAmount != nil {
		row[3] = *inv.TotalAmount
	}
	if inv.Payee != nil {
		row[4] = *inv.Payee
	}
	if inv.VisitDate != nil {
		row[5] = *inv.VisitDate
	}
	if inv.InsurancePayment != nil {
		row[6] = *inv.InsurancePayment
	}
	if inv.PersonalPayment != nil {
		row[7] = *inv.PersonalPayment
	}
	if inv.PersonalAccountPayment != nil {
		row[8] = *inv.PersonalAccountPayment
	}
	if inv.PersonalCashPayment != nil {
		row[9] = *inv.PersonalCashPayment
	}
	return row
}
