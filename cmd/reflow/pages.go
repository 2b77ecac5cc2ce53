package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// pageDef is one JSON page document under pages/.
type pageDef struct {
	// Route is derived from the filename: index.json serves "/",
	// about.json serves "/about".
	Route string `json:"-"`

	Title string         `json:"title"`
	Lang  string         `json:"lang,omitempty"`
	State map[string]any `json:"state,omitempty"`
	Body  any            `json:"body"`
}

// loadPages reads every *.json file under dir/pages.
func loadPages(dir string) ([]pageDef, error) {
	pagesDir := filepath.Join(dir, "pages")
	entries, err := os.ReadDir(pagesDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pagesDir, err)
	}

	var pages []pageDef
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(pagesDir, name))
		if err != nil {
			return nil, err
		}

		var p pageDef
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		if p.Body == nil {
			return nil, fmt.Errorf("%s: page has no body", name)
		}
		p.Route = routeForFile(name)
		pages = append(pages, p)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no page documents found in %s", pagesDir)
	}
	return pages, nil
}

// routeForFile maps a page filename to its route.
func routeForFile(name string) string {
	base := strings.TrimSuffix(name, ".json")
	if base == "index" {
		return "/"
	}
	return "/" + base
}
