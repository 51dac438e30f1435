package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TableExtensions are the file types a Discovery reports as tables.
var TableExtensions = []string{".csv", ".xlsx"}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds input tables. Relative directories are resolved against
// basePath.
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindTables returns the CSV and XLSX files directly inside dir, sorted by
// name. Files whose name starts with "~$" (Excel lock files) are skipped.
func (d *Discovery) FindTables(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") || !IsTable(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// IsTable reports whether name has one of TableExtensions, ignoring case.
func IsTable(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range TableExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// OutputPath names the result file for input inside outDir: the input's
// base name with suffix inserted before the extension.
//
//	OutputPath("out", "data/city.xlsx", "_qol") == "out/city_qol.xlsx"
func OutputPath(outDir, input, suffix string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	return filepath.Join(outDir, strings.TrimSuffix(base, ext)+suffix+ext)
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
