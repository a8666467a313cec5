package pipeline

import (
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/xuri/excelize/v2"
)

// XLSXSheet is the worksheet that receives the records.
const XLSXSheet = "Products"

// XLSXWriter buffers records into a workbook and saves it on Close.
type XLSXWriter struct {
	filename string
	file     *excelize.File
	row      int
	mu       sync.Mutex
}

// NewXLSXWriter creates a workbook with the header row in place.
func NewXLSXWriter(filename string) (*XLSXWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", XLSXSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, len(CSVHeader))
	for i, h := range CSVHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(XLSXSheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write xlsx header: %w", err)
	}

	return &XLSXWriter{filename: filename, file: f, row: 1}, nil
}

// Write appends one row per product. Prices and rating stay numeric cells.
func (xw *XLSXWriter) Write(products []*models.Product) error {
	xw.mu.Lock()
	defer xw.mu.Unlock()

	for _, p := range products {
		xw.row++
		cell, err := excelize.CoordinatesToCellName(1, xw.row)
		if err != nil {
			return fmt.Errorf("xlsx cell name: %w", err)
		}
		row := []interface{}{
			p.Title,
			p.Price.InexactFloat64(),
			p.OriginalPrice.InexactFloat64(),
			p.Discount(),
			p.Rating,
			p.ImageURL,
			p.ProductURL,
			p.Category,
		}
		if err := xw.file.SetSheetRow(XLSXSheet, cell, &row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", xw.row, err)
		}
	}
	return nil
}

// Close saves the workbook to disk.
func (xw *XLSXWriter) Close() error {
	xw.mu.Lock()
	defer xw.mu.Unlock()

	if err := xw.file.SaveAs(xw.filename); err != nil {
		xw.file.Close()
		return fmt.Errorf("save xlsx file: %w", err)
	}
	return xw.file.Close()
}

// Validate ensures the workbook was written.
func (xw *XLSXWriter) Validate() error {
	return validateNonEmpty("xlsx", xw.filename)
}
