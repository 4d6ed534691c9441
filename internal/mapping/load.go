package mapping

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Fetcher reads a mapping document from object storage.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// Source identifies where a mapping document lives: a local file or an
// s3://bucket/key object.
type Source struct {
	Path   string
	Bucket string
	Key    string
}

// IsObject reports whether the source is an object-storage location.
func (s Source) IsObject() bool { return s.Bucket != "" }

func (s Source) String() string {
	if s.IsObject() {
		return "s3://" + s.Bucket + "/" + s.Key
	}
	return s.Path
}

// format derives the document format from the file or key extension.
func (s Source) format() string {
	name := s.Path
	if s.IsObject() {
		name = s.Key
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// ParseSource parses a MAPPING_SOURCE value.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, fmt.Errorf("%w: mapping source is empty", ErrConfig)
	}
	if rest, ok := strings.CutPrefix(raw, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return Source{}, fmt.Errorf("%w: object source must be s3://bucket/key, got %q", ErrConfig, raw)
		}
		return Source{Bucket: bucket, Key: key}, nil
	}
	return Source{Path: raw}, nil
}

// Load reads and parses the mapping from src. fetcher may be nil for file
// sources.
func Load(ctx context.Context, src Source, fetcher Fetcher) (*Table, error) {
	if !src.IsObject() {
		return LoadFile(src.Path)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("%w: no object storage configured for %s", ErrConfig, src)
	}
	data, err := fetcher.Fetch(ctx, src.Bucket, src.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrConfig, src, err)
	}
	return Parse(data, src.format())
}

// LoadFile reads a JSON or YAML mapping file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}
	return Parse(data, Source{Path: path}.format())
}
