package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/reflow-dev/reflow/pkg/render"
	"github.com/reflow-dev/reflow/pkg/state"
	"github.com/reflow-dev/reflow/pkg/view"
)

func TestRouteFile(t *testing.T) {
	cases := []struct{ route, want string }{
		{"/", "index.html"},
		{"/about", "about/index.html"},
		{"/docs/intro/", "docs/intro/index.html"},
	}
	for _, c := range cases {
		if got := RouteFile(c.route); got != c.want {
			t.Errorf("RouteFile(%q) = %q, want %q", c.route, got, c.want)
		}
	}
}

func TestExportToDisk(t *testing.T) {
	reg := view.NewRegistry()
	reg.Register("Hello", func(_ view.Props, ctx *view.Context) any {
		return map[string]any{"h1": map[string]any{
			"text": ctx.Store.Get("greeting", ""),
		}}
	})

	dir := t.TempDir()
	e := New(reg, NewDiskPublisher(dir))
	e.Add("/", func(s *state.Store) render.Page {
		s.Set("greeting", "hello")
		return render.Page{Title: "Home", Body: map[string]any{"Hello": map[string]any{}}}
	})
	e.Add("/about", func(s *state.Store) render.Page {
		return render.Page{Title: "About", Body: map[string]any{"p": map[string]any{"text": "about us"}}}
	})

	manifest, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(manifest) != 2 {
		t.Fatalf("manifest entries = %d, want 2", len(manifest))
	}

	index, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if !strings.Contains(string(index), "<h1>hello</h1>") {
		t.Errorf("index missing rendered body:\n%s", index)
	}
	if !strings.Contains(string(index), `"greeting":"hello"`) {
		t.Errorf("index missing hydration snapshot:\n%s", index)
	}

	about, err := os.ReadFile(filepath.Join(dir, "about", "index.html"))
	if err != nil {
		t.Fatalf("read about: %v", err)
	}
	if !strings.Contains(string(about), "<title>About</title>") {
		t.Errorf("about missing title:\n%s", about)
	}

	raw, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if entries[0].Route != "/" || entries[0].File != "index.html" {
		t.Errorf("manifest entry = %+v", entries[0])
	}
}

// capturingS3 records PutObject calls without hitting the network.
type capturingS3 struct {
	keys         []string
	contentTypes []string
}

func (c *capturingS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	c.keys = append(c.keys, *in.Key)
	c.contentTypes = append(c.contentTypes, *in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3PublisherKeysAndTypes(t *testing.T) {
	api := &capturingS3{}
	pub := newS3Publisher(api, "my-site", "v2/")

	if err := pub.Publish(context.Background(), "index.html", []byte("<html>")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := pub.Publish(context.Background(), ManifestName, []byte("[]")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if api.keys[0] != "v2/index.html" {
		t.Errorf("key = %q, want v2/index.html", api.keys[0])
	}
	if !strings.HasPrefix(api.contentTypes[0], "text/html") {
		t.Errorf("content type = %q", api.contentTypes[0])
	}
	if api.contentTypes[1] != "application/json" {
		t.Errorf("manifest content type = %q", api.contentTypes[1])
	}
}
