package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// MaxTitleLength bounds stored titles, counted in runes.
const MaxTitleLength = 100

// MaxRating is the top of the star scale.
const MaxRating = 5.0

var (
	numberPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	widthPattern  = regexp.MustCompile(`(?i)width\s*:\s*([^;%]*)%`)
	hundred       = decimal.NewFromInt(100)
)

// ValidateProduct is the validity gate: title and a positive price are
// mandatory, everything else must sit inside its documented range.
func ValidateProduct(p *models.Product) error {
	if p == nil {
		return fmt.Errorf("product is nil")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("product missing title")
	}
	if utf8.RuneCountInString(p.Title) > MaxTitleLength {
		return fmt.Errorf("title exceeds %d characters for %s", MaxTitleLength, p.ProductURL)
	}
	if !p.Price.IsPositive() {
		return fmt.Errorf("product missing price for %s", p.Title)
	}
	if p.OriginalPrice.IsNegative() {
		return fmt.Errorf("negative original price for %s", p.Title)
	}
	if p.Rating < 0 || p.Rating > MaxRating {
		return fmt.Errorf("rating %.1f out of range for %s", p.Rating, p.Title)
	}
	if p.DiscountPercent < 0 || p.DiscountPercent > 100 {
		return fmt.Errorf("discount %d out of range for %s", p.DiscountPercent, p.Title)
	}
	return nil
}

// NormalizeTitle applies NFC, collapses runs of whitespace and truncates
// the result to MaxTitleLength runes.
func NormalizeTitle(title string) string {
	title = strings.Join(strings.Fields(norm.NFC.String(title)), " ")
	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:MaxTitleLength]))
}

// ParseText trims s and reports Missing when nothing is left.
func ParseText(s string) Result[string] {
	s = NormalizeTitle(s)
	if s == "" {
		return Missing[string]()
	}
	return Parsed(s)
}

// ParsePrice reads the first number in text. Thousands separators are
// dropped and at most one decimal point is kept, so "Rs. 1,200" is 1200.
func ParsePrice(text string) Result[decimal.Decimal] {
	text = strings.TrimSpace(text)
	if text == "" {
		return Missing[decimal.Decimal]()
	}
	match := numberPattern.FindString(text)
	if match == "" {
		return Malformed[decimal.Decimal]()
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return Malformed[decimal.Decimal]()
	}
	return Parsed(value)
}

// ParseRating converts a fill-percentage style attribute such as
// "width: 84%" into a 0-5 star value rounded to one decimal.
func ParseRating(style string) Result[float64] {
	if strings.TrimSpace(style) == "" {
		return Missing[float64]()
	}
	m := widthPattern.FindStringSubmatch(style)
	if m == nil {
		return Missing[float64]()
	}
	percent, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 64)
	if err != nil || math.IsNaN(percent) || math.IsInf(percent, 0) {
		return Malformed[float64]()
	}
	rating := math.Round(percent/100*MaxRating*10) / 10
	return Parsed(math.Max(0, math.Min(MaxRating, rating)))
}

// DiscountPercent is round((original-price)/original*100) when the
// original price is above the sale price, and 0 otherwise.
func DiscountPercent(price, original decimal.Decimal) int {
	if !price.IsPositive() || !original.GreaterThan(price) {
		return 0
	}
	pct := original.Sub(price).Div(original).Mul(hundred).Round(0).IntPart()
	if pct > 100 {
		return 100
	}
	return int(pct)
}
