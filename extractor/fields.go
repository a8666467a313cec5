package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-listings/parser"
	"github.com/shopspring/decimal"
)

// titleFrom reads a title from an element's title attribute, then its
// data-title attribute, then its text.
func titleFrom(s *goquery.Selection) parser.Result[string] {
	if s.Length() == 0 {
		return parser.Missing[string]()
	}
	s = s.First()
	for _, attr := range []string{"title", "data-title"} {
		if v, ok := s.Attr(attr); ok {
			if r := parser.ParseText(v); r.Ok() {
				return r
			}
		}
	}
	return parser.ParseText(s.Text())
}

func (e *Extractor) title(c *goquery.Selection, link *goquery.Selection) parser.Result[string] {
	return parser.FirstOf(
		func() parser.Result[string] { return titleFrom(c.Find(".title")) },
		func() parser.Result[string] { return titleFrom(c.Find("[data-title]")) },
		func() parser.Result[string] { return titleFrom(c.Find("a[title]")) },
		func() parser.Result[string] { return titleFrom(link) },
		func() parser.Result[string] {
			// image-only anchors often precede the anchor that carries the name
			r := parser.Missing[string]()
			c.Find(e.linkSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
				r = titleFrom(a)
				return !r.Ok()
			})
			return r
		},
	)
}

func priceFrom(s *goquery.Selection) parser.Result[decimal.Decimal] {
	if s.Length() == 0 {
		return parser.Missing[decimal.Decimal]()
	}
	s = s.First()
	r := parser.ParsePrice(s.Text())
	if r.Outcome == parser.OutcomeMissing {
		if v, ok := s.Attr("data-price"); ok {
			return parser.ParsePrice(v)
		}
	}
	return r
}

func (e *Extractor) price(c *goquery.Selection) parser.Result[decimal.Decimal] {
	return parser.FirstOf(
		func() parser.Result[decimal.Decimal] { return priceFrom(c.Find(".price")) },
		func() parser.Result[decimal.Decimal] { return priceFrom(c.Find("[data-price]")) },
		func() parser.Result[decimal.Decimal] {
			return priceFrom(c.Find(`span:contains("` + e.currency + `")`))
		},
		func() parser.Result[decimal.Decimal] {
			m := e.currencyText.FindString(c.Text())
			if m == "" {
				return parser.Missing[decimal.Decimal]()
			}
			return parser.ParsePrice(m)
		},
	)
}

// originalPrice only overrides the sale price when a strikethrough marker
// parses to a value at or above it. An original below the sale price is
// treated as malformed.
func (e *Extractor) originalPrice(c *goquery.Selection, price decimal.Decimal) parser.Result[decimal.Decimal] {
	r := parser.FirstOf(
		func() parser.Result[decimal.Decimal] { return priceFrom(c.Find(".original-price")) },
		func() parser.Result[decimal.Decimal] { return priceFrom(c.Find(".origPrice")) },
		func() parser.Result[decimal.Decimal] { return priceFrom(c.Find("del, s, strike")) },
	)
	if r.Ok() && r.Value.LessThan(price) {
		return parser.Malformed[decimal.Decimal]()
	}
	return r
}

func (e *Extractor) rating(c *goquery.Selection) parser.Result[float64] {
	el := c.Find(".rating-stars").First()
	if el.Length() == 0 {
		return parser.Missing[float64]()
	}
	style, _ := el.Attr("style")
	return parser.ParseRating(style)
}

func (e *Extractor) image(c *goquery.Selection) parser.Result[string] {
	img := c.Find("img").First()
	if img.Length() == 0 {
		return parser.Missing[string]()
	}
	for _, attr := range []string{"src", "data-src", "data-ks-lazyload"} {
		v := strings.TrimSpace(img.AttrOr(attr, ""))
		if v == "" || strings.HasPrefix(v, "data:") {
			continue
		}
		return parser.Parsed(e.absolute(v))
	}
	return parser.Missing[string]()
}

// link picks the product anchor, falling back to any anchor with an href.
func (e *Extractor) link(c *goquery.Selection) *goquery.Selection {
	if a := c.Find(e.linkSelector).First(); a.Length() > 0 {
		return a
	}
	if c.Is("a[href]") {
		return c.First()
	}
	return c.Find("a[href]").First()
}

func (e *Extractor) absolute(ref string) string {
	if e.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return e.base.ResolveReference(u).String()
}

func currencyPattern(marker string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(marker) + `\s*\d[\d,]*(?:\.\d+)?`)
}
