package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend keeps uploads in a single directory on disk. This is the
// default backend.
type LocalBackend struct {
	dir string
}

func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalBackend{dir: dir}, nil
}

func (b *LocalBackend) GetName() string {
	return "local"
}

func (b *LocalBackend) Save(filename string, data []byte) error {
	if err := os.WriteFile(filepath.Join(b.dir, filename), data, 0o644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (b *LocalBackend) Read(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (b *LocalBackend) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload dir: %w", err)
	}

	files := []FileInfo{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

func (b *LocalBackend) Delete(filename string) error {
	if err := os.Remove(filepath.Join(b.dir, filename)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (b *LocalBackend) Rename(oldName, newName string) error {
	oldPath := filepath.Join(b.dir, oldName)
	newPath := filepath.Join(b.dir, newName)
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

func (b *LocalBackend) Exists(filename string) (bool, error) {
	_, err := os.Stat(filepath.Join(b.dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
