package httpapi

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"

	"github.com/xuri/excelize/v2"
)

const summarySheetName = "Care Summaries"

// SummaryExportHeader 导出表头
var SummaryExportHeader = []string{
	"Created At",
	"Check-in ID",
	"Risk Level",
	"Provider Source",
	"One Liner",
	"Symptoms",
	"Med Adherence",
	"BP",
	"HR",
	"SpO2",
	"Temp",
	"Weight",
	"Red Flags",
	"Next Steps",
	"Caregiver SMS",
	"Assessment",
	"Plan",
}

var summaryColumnWidths = []float64{20, 38, 12, 16, 50, 30, 14, 10, 8, 8, 8, 10, 30, 50, 50, 50, 50}

// riskFill 风险等级单元格底色
var riskFill = map[models.RiskLevel]string{
	models.RiskGreen:  "#E2F0D9",
	models.RiskYellow: "#FFF2CC",
	models.RiskRed:    "#F8CBAD",
}

// GenerateSummaryExport 生成分析历史 Excel；records 为空时只有表头
func GenerateSummaryExport(records []*models.SummaryRecord) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(summarySheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	riskStyles := make(map[models.RiskLevel]int, len(riskFill))
	for level, color := range riskFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create risk style: %w", err)
		}
		riskStyles[level] = id
	}

	for col, header := range SummaryExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(summarySheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(summarySheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		colName, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(summarySheetName, colName, colName, summaryColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, rec := range records {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := summaryRow(rec)
		if err := f.SetSheetRow(summarySheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		if style, ok := riskStyles[rec.RiskLevel]; ok {
			riskCell, _ := excelize.CoordinatesToCellName(3, row)
			if err := f.SetCellStyle(summarySheetName, riskCell, riskCell, style); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set risk style: %w", err)
			}
		}
	}

	if err := f.SetPanes(summarySheetName, &excelize.Panes{
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

func summaryRow(rec *models.SummaryRecord) []interface{} {
	s := rec.Summary
	v := s.PatientSummary.Vitals
	return []interface{}{
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.CheckInID,
		string(rec.RiskLevel),
		string(rec.ProviderSource),
		s.PatientSummary.OneLiner,
		strings.Join(s.PatientSummary.Symptoms, ", "),
		string(s.PatientSummary.MedAdherence),
		v.BP,
		v.HR,
		v.SpO2,
		v.Temp,
		v.Weight,
		strings.Join(s.Triage.RedFlags, "; "),
		strings.Join(s.Triage.RecommendedNextSteps, "; "),
		s.CaregiverMessage.SMSText,
		s.ClinicianNoteDraft.Assessment,
		s.ClinicianNoteDraft.Plan,
	}
}
