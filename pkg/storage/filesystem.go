package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UploadStore persists uploaded report files on disk under a base directory.
// Stored names are collision-resistant: {timestamp}-{randomSuffix}{ext}.
type UploadStore struct {
	baseDir      string
	publicPrefix string
}

// NewUploadStore ensures the reports subdirectory exists and returns a handle.
func NewUploadStore(baseDir, publicPrefix string) (*UploadStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if publicPrefix == "" {
		publicPrefix = "/uploads"
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "reports"), 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &UploadStore{baseDir: baseDir, publicPrefix: strings.TrimRight(publicPrefix, "/")}, nil
}

// GenerateName builds a stored filename from the original file's extension.
func (s *UploadStore) GenerateName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), time.Now().UnixNano()%1e9, ext)
	}
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), hex.EncodeToString(buf), ext)
}

// SaveStream copies the upload into reports/ under a generated name and
// returns the stored name with the public-relative URL.
func (s *UploadStore) SaveStream(originalName string, r io.Reader) (string, string, error) {
	name := s.GenerateName(originalName)
	path := s.resolve(name)
	file, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close() //nolint:errcheck
		_ = os.Remove(path)
		return "", "", fmt.Errorf("write upload stream: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", "", fmt.Errorf("close upload file: %w", err)
	}
	return name, s.PublicURL(name), nil
}

// MoveFromTemp relocates a temp upload into reports/ under a generated name.
// Rename is attempted first; cross-device failures fall back to copy followed
// by removal of the temp file. Partial targets are cleaned up on failure.
func (s *UploadStore) MoveFromTemp(tempPath, originalName string) (string, string, error) {
	name := s.GenerateName(originalName)
	target := s.resolve(name)

	if err := os.Rename(tempPath, target); err == nil {
		return name, s.PublicURL(name), nil
	}

	src, err := os.Open(tempPath)
	if err != nil {
		return "", "", fmt.Errorf("open temp upload: %w", err)
	}
	defer src.Close() //nolint:errcheck

	dst, err := os.Create(target)
	if err != nil {
		return "", "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close() //nolint:errcheck
		_ = os.Remove(target)
		return "", "", fmt.Errorf("copy temp upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(target)
		return "", "", fmt.Errorf("close upload file: %w", err)
	}
	_ = os.Remove(tempPath)
	return name, s.PublicURL(name), nil
}

// Backup copies the stored file to {path}.backup_{timestamp} and returns the
// backup path.
func (s *UploadStore) Backup(name string) (string, error) {
	path := s.resolve(name)
	backupPath := fmt.Sprintf("%s.backup_%d", path, time.Now().UnixMilli())

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for backup: %w", err)
	}
	defer src.Close() //nolint:errcheck

	dst, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close() //nolint:errcheck
		_ = os.Remove(backupPath)
		return "", fmt.Errorf("write backup file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(backupPath)
		return "", fmt.Errorf("close backup file: %w", err)
	}
	return backupPath, nil
}

// WriteContent replaces the stored file's content and returns the new size.
func (s *UploadStore) WriteContent(name string, content []byte) (int64, error) {
	path := s.resolve(name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return 0, fmt.Errorf("write file content: %w", err)
	}
	return int64(len(content)), nil
}

// ReadContent returns the stored file's bytes.
func (s *UploadStore) ReadContent(name string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("read file content: %w", err)
	}
	return data, nil
}

// Open returns a read-only handle for the stored file.
func (s *UploadStore) Open(name string) (*os.File, error) {
	file, err := os.Open(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Stat returns file info for the stored file.
func (s *UploadStore) Stat(name string) (os.FileInfo, error) {
	info, err := os.Stat(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("stat upload file: %w", err)
	}
	return info, nil
}

// Delete removes a stored file if present.
func (s *UploadStore) Delete(name string) error {
	if err := os.Remove(s.resolve(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// PublicURL exposes the public-relative path for a stored name.
func (s *UploadStore) PublicURL(name string) string {
	return s.publicPrefix + "/reports/" + name
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *UploadStore) Path(name string) string {
	return s.resolve(name)
}

func (s *UploadStore) resolve(name string) string {
	return filepath.Join(s.baseDir, "reports", filepath.Base(name))
}
