// Package storage 提供模型文件的对象存储抽象，支持本地目录与 MinIO/S3 两种驱动。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotExist 表示对象不存在，各驱动返回的错误都可用 errors.Is 与之匹配。
var ErrNotExist = fs.ErrNotExist

// Storage 定义了对象存储的通用接口。
type Storage interface {
	// Upload 上传对象，size 未知时传 -1。
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	// Download 下载对象，调用方负责关闭返回的 ReadCloser。
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
	// Delete 删除对象，对象不存在时不报错。
	Delete(ctx context.Context, objectName string) error
	// Exists 检查对象是否存在。
	Exists(ctx context.Context, objectName string) (bool, error)
}

// LocalStorage 把对象保存为目录下的文件。
type LocalStorage struct {
	root string
}

// NewLocalStorage 创建本地存储，目录不存在时自动创建。
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) path(objectName string) (string, error) {
	clean := filepath.Clean("/" + objectName)
	if clean == "/" || strings.Contains(objectName, "\x00") {
		return "", fmt.Errorf("invalid object name %q", objectName)
	}
	return filepath.Join(s.root, clean), nil
}

// Upload 先写入临时文件再重命名，读者不会看到写了一半的对象。
func (s *LocalStorage) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	p, err := s.path(objectName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (s *LocalStorage) Download(_ context.Context, objectName string) (io.ReadCloser, error) {
	p, err := s.path(objectName)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *LocalStorage) Delete(_ context.Context, objectName string) error {
	p, err := s.path(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) Exists(_ context.Context, objectName string) (bool, error) {
	p, err := s.path(objectName)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
