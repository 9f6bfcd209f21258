package reports

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/deltaapi"
)

// Format is an export file format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Source is the backend data a report is built from.
type Source interface {
	ListAssets(ctx context.Context) ([]deltaapi.Asset, error)
	MaintenanceForecast(ctx context.Context) (deltaapi.Forecast, error)
}

// Build fetches assets and forecast and summarizes them. A failed forecast still yields a
// report without the maintenance table.
func Build(ctx context.Context, source Source, logger *log.Logger, now time.Time) (Summary, []assets.Asset, error) {
	wire, err := source.ListAssets(ctx)
	if err != nil {
		return Summary{}, nil, fmt.Errorf("report assets: %w", err)
	}
	list := assets.FromWireList(wire, logger)
	forecast, err := source.MaintenanceForecast(ctx)
	if err != nil && logger != nil {
		logger.Printf("report forecast error: %v", err)
	}
	return Summarize(list, forecast, now), list, nil
}

// Render dispatches on format.
func Render(format Format, summary Summary, list []assets.Asset) ([]byte, error) {
	switch format {
	case FormatPDF:
		return BuildPDF(summary, list)
	case FormatXLSX:
		return BuildXLSX(summary, list)
	default:
		return nil, fmt.Errorf("reports: unknown format %q", format)
	}
}

// BuildPDF renders the report as a PDF.
func BuildPDF(summary Summary, list []assets.Asset) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Digital Delta - Asset Rapport")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Gegenereerd: %s", summary.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Totaal assets: %d", summary.TotalAssets))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Gemiddelde gezondheid: %.1f", summary.AverageHealthScore))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Aantal", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range summary.Statuses {
		pdf.CellFormat(60, 6, row.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", row.Count), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Gezondheid", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Aantal", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range summary.Health {
		pdf.CellFormat(60, 6, row.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", row.Count), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Asset", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Score", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, asset := range list {
		pdf.CellFormat(60, 6, asset.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, asset.Type.Label(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, asset.Status.Label(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", asset.HealthScore), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(summary.Forecast) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(60, 6, "Onderhoud", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Datum", "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, "Dagen", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Prioriteit", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, item := range summary.Forecast {
			pdf.CellFormat(60, 6, item.AssetName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, item.NextMaintenance, "1", 0, "C", false, 0, "")
			pdf.CellFormat(25, 6, fmt.Sprintf("%d", item.DaysUntil), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, item.Priority, "1", 0, "C", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildXLSX renders the report as a workbook with a summary and an assets sheet.
func BuildXLSX(summary Summary, list []assets.Asset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	assetSheet := "assets"
	forecastSheet := "maintenance"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(assetSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(forecastSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Digital Delta - Asset Rapport")
	_ = f.SetCellValue(summarySheet, "A3", "Gegenereerd")
	_ = f.SetCellValue(summarySheet, "B3", summary.GeneratedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "Totaal assets")
	_ = f.SetCellValue(summarySheet, "B4", summary.TotalAssets)
	_ = f.SetCellValue(summarySheet, "A5", "Gemiddelde gezondheid")
	_ = f.SetCellValue(summarySheet, "B5", summary.AverageHealthScore)
	row := 7
	for _, status := range summary.Statuses {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), status.Label)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), status.Count)
		row++
	}
	row++
	for _, kind := range summary.Types {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), kind.Label)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), kind.Count)
		row++
	}
	row++
	for _, health := range summary.Health {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), health.Label)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), health.Count)
		row++
	}

	_ = f.SetCellValue(assetSheet, "A1", "ID")
	_ = f.SetCellValue(assetSheet, "B1", "Naam")
	_ = f.SetCellValue(assetSheet, "C1", "Type")
	_ = f.SetCellValue(assetSheet, "D1", "Locatie")
	_ = f.SetCellValue(assetSheet, "E1", "Status")
	_ = f.SetCellValue(assetSheet, "F1", "Gezondheid")
	_ = f.SetCellValue(assetSheet, "G1", "Volgend onderhoud")
	for i, asset := range list {
		r := i + 2
		_ = f.SetCellValue(assetSheet, fmt.Sprintf("A%d", r), asset.ID)
		_ = f.SetCellValue(assetSheet, fmt.Sprintf("B%d", r), asset.Name)
		_ = f.SetCellValue(assetSheet, fmt.Sprintf("C%d", r), asset.Type.Label())
		_ = f.SetCellValue(assetSheet, fmt.Sprintf("D%d", r), asset.Location)
		_ = f.SetCellValue(assetSheet, fmt.Sprintf("E%d", r), asset.Status.Label())
		_ = f.SetCellValue(assetSheet, fmt.Sprintf("F%d", r), asset.HealthScore)
		_ = f.SetCellValue(assetSheet, fmt.Sprintf("G%d", r), asset.NextMaintenance)
	}

	_ = f.SetCellValue(forecastSheet, "A1", "Asset")
	_ = f.SetCellValue(forecastSheet, "B1", "Datum")
	_ = f.SetCellValue(forecastSheet, "C1", "Dagen")
	_ = f.SetCellValue(forecastSheet, "D1", "Prioriteit")
	for i, item := range summary.Forecast {
		r := i + 2
		_ = f.SetCellValue(forecastSheet, fmt.Sprintf("A%d", r), item.AssetName)
		_ = f.SetCellValue(forecastSheet, fmt.Sprintf("B%d", r), item.NextMaintenance)
		_ = f.SetCellValue(forecastSheet, fmt.Sprintf("C%d", r), item.DaysUntil)
		_ = f.SetCellValue(forecastSheet, fmt.Sprintf("D%d", r), item.Priority)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
