package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/parser"
	"github.com/shopspring/decimal"
)

// FallbackBatchSize is the number of placeholder records per empty page.
const FallbackBatchSize = 3

// SyntheticTitlePattern matches every title produced by FallbackGenerator.
var SyntheticTitlePattern = regexp.MustCompile(`^Sample .+ Item \d+$`)

// FallbackFunc produces the placeholder batch for a category.
type FallbackFunc func(category string) []*models.Product

type sample struct {
	price    int64
	original int64
	rating   float64
}

var samples = [FallbackBatchSize]sample{
	{price: 1200, original: 1500, rating: 4.5},
	{price: 850, original: 850, rating: 3.8},
	{price: 2400, original: 3000, rating: 4.2},
}

// FallbackGenerator builds deterministic synthetic records.
type FallbackGenerator struct {
	baseURL string
}

// NewFallbackGenerator roots synthetic product links at baseURL.
func NewFallbackGenerator(baseURL string) *FallbackGenerator {
	return &FallbackGenerator{baseURL: strings.TrimRight(baseURL, "/")}
}

// Generate returns FallbackBatchSize placeholder records tagged with
// category and marked Synthetic.
func (g *FallbackGenerator) Generate(category string) []*models.Product {
	out := make([]*models.Product, 0, FallbackBatchSize)
	for i, s := range samples {
		n := i + 1
		price := decimal.NewFromInt(s.price)
		original := decimal.NewFromInt(s.original)
		out = append(out, &models.Product{
			Title:           syntheticTitle(category, n),
			Price:           price,
			OriginalPrice:   original,
			DiscountPercent: parser.DiscountPercent(price, original),
			Rating:          s.rating,
			ImageURL:        fmt.Sprintf("https://example.com/image%d.jpg", n),
			ProductURL:      fmt.Sprintf("%s/products/sample%d/", g.baseURL, n),
			Category:        category,
			Synthetic:       true,
		})
	}
	return out
}

// IsSynthetic reports whether p came from a FallbackGenerator.
func IsSynthetic(p *models.Product) bool {
	return p != nil && p.Synthetic && SyntheticTitlePattern.MatchString(p.Title)
}

// syntheticTitle shortens the category rather than the suffix so long
// category names still match SyntheticTitlePattern. A blank category gets a
// placeholder name for the same reason.
func syntheticTitle(category string, n int) string {
	suffix := fmt.Sprintf(" Item %d", n)
	room := parser.MaxTitleLength - len("Sample ") - len(suffix)
	name := []rune(parser.NormalizeTitle(category))
	if len(name) == 0 {
		name = []rune("Uncategorised")
	}
	if len(name) > room {
		name = name[:room]
	}
	return "Sample " + strings.TrimSpace(string(name)) + suffix
}
