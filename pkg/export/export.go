package export

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/reflow-dev/reflow/pkg/render"
	"github.com/reflow-dev/reflow/pkg/state"
	"github.com/reflow-dev/reflow/pkg/view"
)

// ManifestName is the file listing every exported document.
const ManifestName = "manifest.json"

// PageBuilder produces the page for one exported route. The store is fresh
// per route; writes made while building seed the page's hydration snapshot.
type PageBuilder func(s *state.Store) render.Page

// Publisher stores one exported file.
type Publisher interface {
	Publish(ctx context.Context, name string, data []byte) error
}

// ManifestEntry describes one exported document.
type ManifestEntry struct {
	Route      string    `json:"route"`
	File       string    `json:"file"`
	Size       int       `json:"size"`
	RenderedAt time.Time `json:"rendered_at"`
}

// Exporter renders registered routes to static HTML and hands the
// documents to a publisher.
type Exporter struct {
	registry     *view.Registry
	publisher    Publisher
	storeFactory func() *state.Store
	logger       *slog.Logger

	routes []exportRoute
}

type exportRoute struct {
	route string
	build PageBuilder
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithStoreFactory sets the per-route store constructor.
func WithStoreFactory(f func() *state.Store) ExporterOption {
	return func(e *Exporter) { e.storeFactory = f }
}

// WithLogger sets the exporter's logger.
func WithLogger(logger *slog.Logger) ExporterOption {
	return func(e *Exporter) { e.logger = logger }
}

// New creates an exporter publishing through p.
func New(registry *view.Registry, p Publisher, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		registry:  registry,
		publisher: p,
		storeFactory: func() *state.Store {
			return state.New(nil)
		},
		logger: slog.Default().With("component", "export"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add registers a route for export.
func (e *Exporter) Add(route string, build PageBuilder) {
	e.routes = append(e.routes, exportRoute{route: route, build: build})
}

// Run renders every registered route and publishes the documents plus a
// manifest. The first failure aborts the export.
func (e *Exporter) Run(ctx context.Context) ([]ManifestEntry, error) {
	manifest := make([]ManifestEntry, 0, len(e.routes))

	for _, r := range e.routes {
		store := e.storeFactory()
		page := r.build(store)

		if page.StateSnapshot == nil {
			if snap, err := store.Snapshot(); err == nil {
				page.StateSnapshot = snap
			}
		}

		renderer := render.NewRenderer(store, e.registry,
			render.WithLogger(e.logger.With("route", r.route)))
		result, err := renderer.RenderPage(page)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", r.route, err)
		}
		html, err := result.Await(ctx)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", r.route, err)
		}

		file := RouteFile(r.route)
		if err := e.publisher.Publish(ctx, file, []byte(html)); err != nil {
			return nil, fmt.Errorf("publish %s: %w", file, err)
		}
		e.logger.Info("exported", "route", r.route, "file", file, "bytes", len(html))

		manifest = append(manifest, ManifestEntry{
			Route:      r.route,
			File:       file,
			Size:       len(html),
			RenderedAt: time.Now().UTC(),
		})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := e.publisher.Publish(ctx, ManifestName, data); err != nil {
		return nil, fmt.Errorf("publish manifest: %w", err)
	}
	return manifest, nil
}

// RouteFile maps a route to its output file: "/" becomes index.html and
// "/about" becomes about/index.html.
func RouteFile(route string) string {
	trimmed := strings.Trim(route, "/")
	if trimmed == "" {
		return "index.html"
	}
	return path.Join(trimmed, "index.html")
}
