package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// CSVHeader is the fixed export column order.
var CSVHeader = []string{"title", "price", "original_price", "discount", "rating", "image_url", "product_url", "category"}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	filename string
	file     *os.File
	writer   *csv.Writer
	mu       sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row, so the
// file carries a header even when no record follows.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(CSVHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		filename: filename,
		file:     f,
		writer:   writer,
	}, nil
}

// Write appends products to the CSV output.
func (cw *CSVWriter) Write(products []*models.Product) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, p := range products {
		if err := cw.writer.Write(csvRecord(p)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func csvRecord(p *models.Product) []string {
	return []string{
		p.Title,
		p.Price.String(),
		p.OriginalPrice.String(),
		p.Discount(),
		strconv.FormatFloat(p.Rating, 'f', -1, 64),
		p.ImageURL,
		p.ProductURL,
		p.Category,
	}
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file exists and holds at least the header.
func (cw *CSVWriter) Validate() error {
	return validateNonEmpty("csv", cw.filename)
}

// JSONWriter writes one JSON array of records with 4-space indentation.
// Elements are streamed as they arrive; Close terminates the array.
type JSONWriter struct {
	filename string
	file     *os.File
	writer   *bufio.Writer
	count    int
	mu       sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	return &JSONWriter{
		filename: filename,
		file:     f,
		writer:   bufio.NewWriter(f),
	}, nil
}

// Write appends products as array elements.
func (jw *JSONWriter) Write(products []*models.Product) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, p := range products {
		element, err := encodeElement(p)
		if err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		sep := ",\n    "
		if jw.count == 0 {
			sep = "[\n    "
		}
		if _, err := jw.writer.WriteString(sep); err != nil {
			return fmt.Errorf("write json record: %w", err)
		}
		if _, err := jw.writer.Write(element); err != nil {
			return fmt.Errorf("write json record: %w", err)
		}
		jw.count++
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

func encodeElement(p *models.Product) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("    ", "    ")
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Close terminates the array, flushes buffers and closes the file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	closing := "\n]\n"
	if jw.count == 0 {
		closing = "[]\n"
	}
	if _, err := jw.writer.WriteString(closing); err != nil {
		return fmt.Errorf("terminate json array: %w", err)
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file exists and has data.
func (jw *JSONWriter) Validate() error {
	return validateNonEmpty("json", jw.filename)
}

func validateNonEmpty(kind, filename string) error {
	info, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
