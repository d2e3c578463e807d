package cms

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type fallbackDocument struct {
	Collections []Collection `yaml:"collections"`
}

func (c *Client) fallbackCollections() ([]Collection, error) {
	if c == nil || c.fallbackFile == "" {
		return nil, nil
	}
	return readFallbackFile(c.fallbackFile)
}

func (c *Client) fallbackCollection(slug string) (Collection, error) {
	items, err := c.fallbackCollections()
	if err != nil {
		return Collection{}, err
	}
	for _, item := range items {
		if item.Slug.Current == slug {
			return cloneCollection(item), nil
		}
	}
	return Collection{}, ErrNotFound
}

func readFallbackFile(path string) ([]Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cms: read fallback %s: %w", path, err)
	}
	var doc fallbackDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cms: parse fallback %s: %w", path, err)
	}
	out := make([]Collection, 0, len(doc.Collections))
	for _, item := range doc.Collections {
		item.Slug.Current = strings.TrimSpace(item.Slug.Current)
		if item.Slug.Current == "" {
			continue
		}
		if strings.TrimSpace(item.Title) == "" {
			item.Title = prettifySlug(item.Slug.Current)
		}
		if strings.TrimSpace(item.NFTCollectionName) == "" {
			item.NFTCollectionName = item.Title
		}
		if item.ID == "" {
			item.ID = "local-" + item.Slug.Current
		}
		out = append(out, item)
	}
	return out, nil
}

func prettifySlug(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return slug
	}
	return cases.Title(language.English).String(strings.ReplaceAll(slug, "-", " "))
}
