package documents

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// supportedExtensions lists the file types the bulk loader reads.
var supportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// IsSupported reports whether a file name has a loadable extension.
func IsSupported(name string) bool {
	return supportedExtensions[strings.ToLower(path.Ext(name))]
}

// DirSource reads documents from a local directory (non-recursive).
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// List returns the supported file names in the directory, sorted.
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSupported(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Open reads one document by name.
func (s *DirSource) Open(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", name, err)
	}
	return data, nil
}

// ObjectStore is the subset of object storage used by S3Source.
type ObjectStore interface {
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// S3Source reads documents stored under a bucket prefix.
type S3Source struct {
	store  ObjectStore
	prefix string
}

func NewS3Source(store ObjectStore, prefix string) *S3Source {
	return &S3Source{store: store, prefix: prefix}
}

// List returns the supported object keys under the prefix, sorted.
func (s *S3Source) List(ctx context.Context) ([]string, error) {
	keys, err := s.store.ListKeys(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var names []string
	for _, key := range keys {
		if strings.HasSuffix(key, "/") || !IsSupported(key) {
			continue
		}
		names = append(names, key)
	}
	sort.Strings(names)
	return names, nil
}

// Open downloads one document by key.
func (s *S3Source) Open(ctx context.Context, name string) ([]byte, error) {
	data, err := s.store.GetObject(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", name, err)
	}
	return data, nil
}
