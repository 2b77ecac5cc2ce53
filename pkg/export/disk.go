package export

import (
	"context"
	"os"
	"path/filepath"
)

// DiskPublisher writes exported files under a root directory.
type DiskPublisher struct {
	root string
}

// NewDiskPublisher creates a publisher writing under root. The directory
// is created on first publish.
func NewDiskPublisher(root string) *DiskPublisher {
	return &DiskPublisher{root: root}
}

// Publish implements Publisher.
func (d *DiskPublisher) Publish(_ context.Context, name string, data []byte) error {
	target := filepath.Join(d.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}
