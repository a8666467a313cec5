package extractor

import (
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-listings/parser"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackGeneratorBatch(t *testing.T) {
	g := NewFallbackGenerator("https://www.daraz.com.np/")

	batch := g.Generate("Men's Shirts")

	require.Len(t, batch, FallbackBatchSize)
	assert.Equal(t, "Sample Men's Shirts Item 1", batch[0].Title)
	assert.True(t, batch[0].Price.Equal(decimal.NewFromInt(1200)))
	assert.True(t, batch[0].OriginalPrice.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, "20%", batch[0].Discount())
	assert.Equal(t, "0%", batch[1].Discount())
	assert.Equal(t, "https://www.daraz.com.np/products/sample3/", batch[2].ProductURL)

	for _, p := range batch {
		assert.True(t, p.Synthetic)
		assert.Equal(t, "Men's Shirts", p.Category)
		assert.NoError(t, parser.ValidateProduct(p))
	}
}

func TestFallbackGeneratorDeterministic(t *testing.T) {
	g := NewFallbackGenerator("https://www.daraz.com.np")

	first := g.Generate("Women's Tops")
	second := g.Generate("Women's Tops")

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, *first[i], *second[i])
		assert.NotSame(t, first[i], second[i])
	}
}

func TestFallbackGeneratorLongCategoryStillRecognisable(t *testing.T) {
	g := NewFallbackGenerator("https://www.daraz.com.np")

	for _, p := range g.Generate(strings.Repeat("Very Long Category ", 10)) {
		assert.Regexp(t, SyntheticTitlePattern, p.Title)
		assert.LessOrEqual(t, len([]rune(p.Title)), parser.MaxTitleLength)
	}
}

func TestFallbackGeneratorBlankCategoryStillRecognisable(t *testing.T) {
	g := NewFallbackGenerator("https://www.daraz.com.np")

	for _, category := range []string{"", "   "} {
		batch := g.Generate(category)
		require.Len(t, batch, FallbackBatchSize)
		for _, p := range batch {
			assert.True(t, IsSynthetic(p), "title %q", p.Title)
			assert.Equal(t, category, p.Category)
		}
	}
}

func TestIsSyntheticRejectsRealRecords(t *testing.T) {
	p := NewFallbackGenerator("https://x.test").Generate("c")[0]
	p.Synthetic = false
	assert.False(t, IsSynthetic(p))
	assert.False(t, IsSynthetic(nil))
}
