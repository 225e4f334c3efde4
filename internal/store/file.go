package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yourorg/handoff/pkg/types"
)

// FileCache keeps one file per key under dir.
type FileCache struct {
	dir string
}

func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

// Dir returns the cache root.
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) Locate(content string) (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	return c.path(Key(content)), nil
}

func (c *FileCache) Load(_ context.Context, content string) (string, bool, error) {
	data, err := os.ReadFile(c.path(Key(content)))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading cache file: %w", err)
	}
	return string(data), true, nil
}

// Store writes body atomically (temp file + rename), replacing any previous entry.
func (c *FileCache) Store(_ context.Context, content, body string) error {
	target, err := c.Locate(content)
	if err != nil {
		return err
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

func (c *FileCache) List(_ context.Context) ([]types.CacheEntry, error) {
	matches, err := filepath.Glob(filepath.Join(c.dir, "cache_*.txt"))
	if err != nil {
		return nil, err
	}
	out := make([]types.CacheEntry, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), "cache_"), ".txt")
		key, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			return nil, err
		}
		out = append(out, types.CacheEntry{Key: key, Location: m, Size: int(info.Size()), UpdatedAt: info.ModTime().UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (c *FileCache) Close() error {
	return nil
}

func (c *FileCache) path(key uint64) string {
	return filepath.Join(c.dir, EntryName(key))
}
