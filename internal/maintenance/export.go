package maintenance

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

const exportSheet = "Maintenance"

var exportHeaders = []string{
	"No.", "Equipment", "Brand/Model", "Serial No.", "Month", "Date Accomplished", "Accomplished By", "Status",
}

func exportRow(r Row) []interface{} {
	return []interface{}{
		r.Num, r.EquipmentName, r.BrandModel, r.SerialNumber, r.Month, r.DateAccomplished, r.AccomplishedBy, r.Status,
	}
}

// ExportFileName is the attachment name for an export taken at now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("maintenance_%s.xlsx", now.Format("2006-01-02"))
}

// Export writes the schedule with the status derived at now as an xlsx
// workbook.
func Export(items []model.MaintenanceItem, now time.Time, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(exportSheet, "A1", "H1", style)
	}

	for i, r := range WithStatus(items, now) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := exportRow(r)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(exportSheet, "B", "B", 30)
	_ = f.SetColWidth(exportSheet, "C", "D", 20)
	_ = f.SetColWidth(exportSheet, "F", "H", 22)

	return f.Write(w)
}
