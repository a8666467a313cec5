package extractor

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultProductLinkSelector matches anchors that point at a product page.
const DefaultProductLinkSelector = `a[href*="/products/"]`

// blockSelector lists the elements a product link is promoted to.
const blockSelector = "div, li, article, section"

// DefaultCardSelectors are the known listing-card class hints, in priority order.
var DefaultCardSelectors = []string{
	".gridItem",
	".box--ujueT",
	".c2prKC",
	`[data-qa-locator="product-item"]`,
	".c1ZEkM",
}

// Strategy locates candidate record containers in a parsed page. Find
// returns an empty selection when the strategy does not apply.
type Strategy struct {
	Name string
	Find func(doc *goquery.Document) *goquery.Selection
}

// DefaultStrategies builds the container discovery table: every card
// selector on its own, then link promotion, then the brute-force scan.
func DefaultStrategies(productLinkSelector string) []Strategy {
	if productLinkSelector == "" {
		productLinkSelector = DefaultProductLinkSelector
	}
	strategies := make([]Strategy, 0, len(DefaultCardSelectors)+2)
	for _, sel := range DefaultCardSelectors {
		strategies = append(strategies, SelectorStrategy(sel))
	}
	return append(strategies,
		LinkAncestorStrategy(productLinkSelector),
		BruteForceStrategy(productLinkSelector),
	)
}

// SelectorStrategy matches containers with a single CSS selector.
func SelectorStrategy(selector string) Strategy {
	return Strategy{
		Name: "selector:" + selector,
		Find: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find(selector)
		},
	}
}

// LinkAncestorStrategy promotes every product link to its nearest block
// ancestor. Links sharing an ancestor yield a single container. Whether a
// container holds a usable record is left to the validity gate.
func LinkAncestorStrategy(linkSelector string) Strategy {
	return Strategy{
		Name: "product-link-ancestor",
		Find: func(doc *goquery.Document) *goquery.Selection {
			seen := make(map[*html.Node]struct{})
			var nodes []*html.Node
			doc.Find(linkSelector).Each(func(_ int, link *goquery.Selection) {
				parent := link.ParentsFiltered(blockSelector).First()
				if parent.Length() == 0 {
					return
				}
				node := parent.Get(0)
				if _, ok := seen[node]; ok {
					return
				}
				seen[node] = struct{}{}
				nodes = append(nodes, node)
			})
			return doc.FindNodes(nodes...)
		},
	}
}

// BruteForceStrategy scans every div for one that holds a product link, an
// image and a text span at once. In the default table any div it could
// match has already given link promotion a container, so it matters for
// custom tables that leave link promotion out. Only the innermost qualifying div is kept
// so wrapper elements do not duplicate their children.
func BruteForceStrategy(linkSelector string) Strategy {
	qualifies := func(_ int, s *goquery.Selection) bool {
		return s.Find(linkSelector).Length() > 0 &&
			s.Find("img").Length() > 0 &&
			s.Find("span").Length() > 0
	}
	return Strategy{
		Name: "brute-force",
		Find: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find("div").
				FilterFunction(qualifies).
				FilterFunction(func(_ int, s *goquery.Selection) bool {
					return s.Find("div").FilterFunction(qualifies).Length() == 0
				})
		},
	}
}

// discover runs the strategy table in order; the first strategy that finds
// at least one container wins and later ones are not evaluated.
func discover(doc *goquery.Document, strategies []Strategy) (string, *goquery.Selection) {
	for _, strategy := range strategies {
		found := strategy.Find(doc)
		if found != nil && found.Length() > 0 {
			return strategy.Name, found
		}
	}
	return "", nil
}
