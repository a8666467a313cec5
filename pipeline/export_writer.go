package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// MultiWriter fans every batch out to a list of named writers. Errors carry
// the writer's name so a failed export says which file broke.
type MultiWriter struct {
	names   []string
	writers []OutputWriter
}

// Add appends w under name.
func (mw *MultiWriter) Add(name string, w OutputWriter) {
	mw.names = append(mw.names, name)
	mw.writers = append(mw.writers, w)
}

// NewExportWriter opens the CSV and JSON exports, plus a workbook when
// xlsxFilename is set. Files opened before a failure are closed again.
func NewExportWriter(csvFilename, jsonFilename, xlsxFilename string) (*MultiWriter, error) {
	mw := &MultiWriter{}

	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create CSV writer: %w", err)
	}
	mw.Add("csv", csvWriter)

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		_ = mw.Close()
		return nil, fmt.Errorf("create JSON writer: %w", err)
	}
	mw.Add("json", jsonWriter)

	if xlsxFilename != "" {
		xlsxWriter, err := NewXLSXWriter(xlsxFilename)
		if err != nil {
			_ = mw.Close()
			return nil, fmt.Errorf("create XLSX writer: %w", err)
		}
		mw.Add("xlsx", xlsxWriter)
	}
	return mw, nil
}

// Write stops at the first writer that fails.
func (mw *MultiWriter) Write(products []*models.Product) error {
	for i, w := range mw.writers {
		if err := w.Write(products); err != nil {
			return fmt.Errorf("%s write: %w", mw.names[i], err)
		}
	}
	return nil
}

// Close closes every writer even when an earlier one fails.
func (mw *MultiWriter) Close() error {
	var errs []error
	for i, w := range mw.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", mw.names[i], err))
		}
	}
	return errors.Join(errs...)
}

func (mw *MultiWriter) Validate() error {
	var errs []error
	for i, w := range mw.writers {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s validate: %w", mw.names[i], err))
		}
	}
	return errors.Join(errs...)
}
