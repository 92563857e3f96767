package files

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FileInfo describes a discovered workbook
type FileInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Discovery lists workbooks. Relative directories are taken from root.
type Discovery struct {
	root string
}

func NewDiscovery(root string) *Discovery {
	return &Discovery{root: root}
}

// IsWorkbookName reports whether name is an .xlsx file and not an Office
// lock file (~$name.xlsx)
func IsWorkbookName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx") && !strings.HasPrefix(name, "~$")
}

// FindWorkbooks lists the workbooks directly inside dir, sorted by name
func (d *Discovery) FindWorkbooks(dir string) ([]FileInfo, error) {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(d.root, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list workbooks in %s: %w", dir, err)
	}

	found := []FileInfo{}
	for _, e := range entries {
		if e.IsDir() || !IsWorkbookName(e.Name()) {
			continue
		}
		// The file may vanish between listing and stat.
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, FileInfo{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	slices.SortFunc(found, func(a, b FileInfo) int { return strings.Compare(a.Name, b.Name) })
	return found, nil
}
