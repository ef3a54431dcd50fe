package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStore keeps objects as files under a root directory, with the
// content type in a sidecar file. Keys are slash-separated and must not
// escape the root.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates the root directory if needed.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

func (s *FilesystemStore) pathFor(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *FilesystemStore) Put(_ context.Context, key string, obj Object) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(path, obj.Data, 0o644); err != nil {
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := os.WriteFile(path+".type", []byte(obj.ContentType), 0o644); err != nil {
		return fmt.Errorf("write object type %s: %w", key, err)
	}
	return nil
}

func (s *FilesystemStore) Get(_ context.Context, key string) (Object, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return Object{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Object{}, fmt.Errorf("read object %s: %w", key, err)
	}
	contentType, err := os.ReadFile(path + ".type")
	if err != nil {
		contentType = []byte("application/octet-stream")
	}
	return Object{Data: data, ContentType: string(contentType)}, nil
}

func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	_ = os.Remove(path + ".type")
	return nil
}
