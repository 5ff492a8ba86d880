package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalImageStore writes images below Dir; the server exposes Dir under BaseURL
type LocalImageStore struct {
	Dir     string
	BaseURL string
}

func NewLocalImageStore(dir, baseURL string) *LocalImageStore {
	return &LocalImageStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalImageStore) Save(ctx context.Context, img *Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := objectKey(img)
	path := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	return s.BaseURL + "/" + key, nil
}

func (s *LocalImageStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, ok := strings.CutPrefix(url, s.BaseURL+"/")
	if !ok || key == "" || strings.Contains(key, "..") {
		return ErrForeignImageURL
	}
	if err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}
