package config

import (
	"fmt"
	"os"

	"github.com/aluiziolira/go-scrape-listings/models"
	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk category list.
type Catalog struct {
	Categories []models.Category `yaml:"categories"`
}

// DefaultCategories are the clothing searches scraped when no catalog file
// is given.
func DefaultCategories() []models.Category {
	return []models.Category{
		{
			Name: "Men's T-Shirts",
			URL:  "https://www.daraz.com.np/catalog/?spm=a2a0e.searchlist.search.d_go.7b7f72d9Xd3TKK&q=mens%20tshirt",
		},
		{
			Name: "Men's Shirts",
			URL:  "https://www.daraz.com.np/catalog/?spm=a2a0e.searchlist.search.d_go.738236c2KmqPyH&q=mens%20shirt",
		},
		{
			Name: "Women's Tops",
			URL:  "https://www.daraz.com.np/catalog/?spm=a2a0e.searchlist.search.d_go.8c1daa1b1337ew&q=Women%27s%20Tops",
		},
		{
			Name: "Women's Dresses",
			URL:  "https://www.daraz.com.np/catalog/?spm=a2a0e.searchlist.search.d_go.37a0aa1bDTPYCD&q=Women%27s%20Dresses",
		},
	}
}

// LoadCategories reads an ordered category list from a YAML file:
//
//	categories:
//	  - name: Men's Shirts
//	    url: https://www.daraz.com.np/catalog/?q=mens%20shirt
func LoadCategories(path string) ([]models.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(catalog.Categories) == 0 {
		return nil, fmt.Errorf("catalog %s lists no categories", path)
	}
	return catalog.Categories, nil
}
