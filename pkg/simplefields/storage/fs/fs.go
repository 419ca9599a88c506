// Package fs provides a filesystem-backed MediaResolver: attachment ids are
// file names under a base directory, served from a base URL.
package fs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Config options for the filesystem resolver.
type Config struct {
	BaseDir string // Directory holding the attachment files
	BaseURL string // Public URL prefix the files are served from
}

// Resolver is a filesystem implementation of the simplefields.MediaResolver
// interface.
type Resolver struct {
	baseDir string
	baseURL string
}

// New creates a new filesystem media resolver.
func New(config Config) (*Resolver, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	return &Resolver{
		baseDir: config.BaseDir,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
	}, nil
}

// URL returns the public URL for an attachment id, verifying the backing file
// exists. Ids may not escape the base directory.
func (r *Resolver) URL(ctx context.Context, id string) (string, error) {
	clean := filepath.Clean(id)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid attachment id %q", id)
	}
	if _, err := os.Stat(filepath.Join(r.baseDir, clean)); err != nil {
		return "", fmt.Errorf("attachment %q: %w", id, err)
	}
	return r.baseURL + "/" + url.PathEscape(clean), nil
}
