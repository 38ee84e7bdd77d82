package wallet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
)

const ledgerSheet = "RAN Ledger"

var ledgerHeaders = []string{"No", "Ngày", "Giờ", "SĐT", "Loại", "Mô tả", "Tham chiếu", "RAN", "Số dư sau"}

// ExportLedger writes entries as an xlsx workbook. Credits are green and
// debits red in the type column.
func ExportLedger(w io.Writer, entries []*walletDatamodel.LedgerEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range ledgerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ledgerSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4F46E5"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	creditStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "#10B981"}})
	if err != nil {
		return fmt.Errorf("credit style: %w", err)
	}
	debitStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "#EF4444"}})
	if err != nil {
		return fmt.Errorf("debit style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(ledgerHeaders), 1)
	_ = f.SetCellStyle(ledgerSheet, "A1", lastHeader, headerStyle)

	for i, e := range entries {
		row := i + 2
		values := []interface{}{
			i + 1,
			e.CreatedAt.Format("02-01-2006"),
			e.CreatedAt.Format("15:04"),
			e.UserPhone,
			e.TransactionType,
			e.Description,
			e.ReferenceType + ":" + e.ReferenceID,
			e.AmountRAN,
			e.BalanceAfter,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(ledgerSheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}

		style := creditStyle
		if e.AmountRAN < 0 {
			style = debitStyle
		}
		typeCell := fmt.Sprintf("E%d", row)
		_ = f.SetCellStyle(ledgerSheet, typeCell, typeCell, style)
	}

	_ = f.SetColWidth(ledgerSheet, "A", "A", 5)
	_ = f.SetColWidth(ledgerSheet, "B", "C", 12)
	_ = f.SetColWidth(ledgerSheet, "D", "E", 16)
	_ = f.SetColWidth(ledgerSheet, "F", "G", 36)
	_ = f.SetColWidth(ledgerSheet, "H", "I", 14)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
