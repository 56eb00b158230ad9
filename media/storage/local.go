package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalProvider stores objects below a directory.
type LocalProvider struct {
	basePath string
	baseURL  string
}

// NewLocalProvider creates a new local storage provider
func NewLocalProvider(basePath, baseURL string) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalProvider{
		basePath: basePath,
		baseURL:  baseURL,
	}, nil
}

func (p *LocalProvider) fullPath(key string) (string, string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(p.basePath, filepath.FromSlash(cleaned)), cleaned, nil
}

// Upload writes the object through a temporary file so readers never see a
// partial thumbnail.
func (p *LocalProvider) Upload(ctx context.Context, r io.Reader, key, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, cleaned, err := p.fullPath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file content: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return p.URL(cleaned), nil
}

func (p *LocalProvider) Delete(_ context.Context, key string) error {
	full, _, err := p.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (p *LocalProvider) Exists(_ context.Context, key string) (bool, error) {
	full, _, err := p.fullPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// URL uses forward slashes even on Windows.
func (p *LocalProvider) URL(key string) string {
	return joinURL(p.baseURL, key)
}

func (p *LocalProvider) Name() string {
	return DriverLocal
}

var _ Provider = (*LocalProvider)(nil)
