package parking

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// 车辆导出表头
var vehicleExportHeader = []string{
	"ID",
	"License Plate",
	"Brand",
	"Model",
	"Weight (kg)",
	"Floor",
	"Slot",
	"Status",
	"Entry Time",
	"Exit Time",
}

// 车位导出表头
var slotExportHeader = []string{
	"Slot Code",
	"Floor",
	"Occupied",
	"Vehicle ID",
}

const exportTimeLayout = "2006-01-02 15:04:05"

// BuildSnapshotWorkbook 把全量快照渲染成 Excel 工作簿
// （Vehicles / Parking Slots 两个 sheet），返回文件字节。
func BuildSnapshotWorkbook(snap *Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot is nil")
	}

	f := excelize.NewFile()
	// WriteTo 之前不能 Close，错误路径下手动关闭

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	vehicleRows := make([][]interface{}, 0, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		exitTime := ""
		if v.ExitTime != nil {
			exitTime = v.ExitTime.Format(exportTimeLayout)
		}
		vehicleRows = append(vehicleRows, []interface{}{
			v.ID, v.LicensePlate, v.BrandCorrected, v.ModelCorrected,
			v.Weight, v.DetectedFloor, v.AssignedSlot, string(v.Status),
			v.EntryTime.Format(exportTimeLayout), exitTime,
		})
	}
	if err := writeSheet(f, "Vehicles", headerStyle, vehicleExportHeader, vehicleRows); err != nil {
		f.Close()
		return nil, err
	}

	slotRows := make([][]interface{}, 0, len(snap.Slots))
	for _, slot := range snap.Slots {
		vehicleID := ""
		if slot.VehicleID != nil {
			vehicleID = fmt.Sprintf("%d", *slot.VehicleID)
		}
		slotRows = append(slotRows, []interface{}{
			slot.SlotCode, slot.Floor, slot.IsOccupied, vehicleID,
		})
	}
	if err := writeSheet(f, "Parking Slots", headerStyle, slotExportHeader, slotRows); err != nil {
		f.Close()
		return nil, err
	}

	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, headerStyle int, headers []string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(name, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}

// workbookFileName 导出文件名（带时间戳，便于归档）。
func workbookFileName(at time.Time) string {
	return "parking_export_" + at.Format("20060102_150405") + ".xlsx"
}
