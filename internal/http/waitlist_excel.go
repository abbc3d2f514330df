package httpapi

import (
	"bytes"
	"fmt"
	"strings"

	"wisefido-health/internal/models"

	"github.com/xuri/excelize/v2"
)

// WaitlistExportHeader 候补名单导出表头
var WaitlistExportHeader = []string{
	"Rank",
	"Person ID",
	"Priority Score",
	"Risk Level",
	"Critical Alerts",
	"Accommodation Needs",
}

const waitlistSheet = "Waitlist"

// GenerateWaitlistExport 生成候补名单 Excel 文件（按传入顺序写入）
func GenerateWaitlistExport(entries []models.WaitlistEntry) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(waitlistSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

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

	if err := f.SetSheetRow(waitlistSheet, "A1", &WaitlistExportHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(WaitlistExportHeader))
	if err := f.SetCellStyle(waitlistSheet, "A1", lastCol+"1", headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	columnWidths := []float64{8, 24, 15, 12, 15, 60}
	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(waitlistSheet, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := []any{
			i + 1,
			e.PersonID,
			e.PriorityScore,
			string(e.RiskLevel),
			e.CriticalAlerts,
			strings.Join(criteriaLabels(e.Criteria), ", "),
		}
		if err := f.SetSheetRow(waitlistSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	// 冻结表头
	if err := f.SetPanes(waitlistSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel: %w", err)
	}
	return buf.Bytes(), nil
}

// criteriaLabels 安置需求的可读标签
func criteriaLabels(c models.AccommodationCriteria) []string {
	var labels []string
	if c.RequiresMedicalSupervision {
		labels = append(labels, "medical supervision")
	}
	if c.NeedsEmergencyMonitoring {
		labels = append(labels, "emergency monitoring")
	}
	if c.NeedsStaffProximity {
		labels = append(labels, "staff proximity")
	}
	if c.NeedsMedicationReminders {
		labels = append(labels, "medication reminders")
	}
	if c.NeedsAccessibility {
		labels = append(labels, "accessibility")
	}
	if c.NeedsMobilityAssistance {
		labels = append(labels, "mobility assistance")
	}
	if c.RequiresQuietEnvironment {
		labels = append(labels, "quiet environment")
	}
	if c.NonStandardTemperature() {
		labels = append(labels, string(c.TemperatureRegulation)+" temperature")
	}
	if len(labels) == 0 {
		labels = append(labels, "standard")
	}
	return labels
}
