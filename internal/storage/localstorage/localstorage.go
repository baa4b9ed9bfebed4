// Package localstorage keeps images in a flat upload directory
package localstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

var ErrBadKey = errors.New("storage key must be a plain file name")

type LocalImageStorage struct {
	fs  afero.Fs
	dir string
}

func NewLocalStorage(fs afero.Fs, dir string) (*LocalImageStorage, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalImageStorage{fs: fs, dir: dir}, nil
}

func (s *LocalImageStorage) Put(ctx context.Context, key string, _ int64, _ string, r io.Reader) error {
	if r == nil {
		return errors.New("nil reader passed to storage.Put")
	}
	full, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// пишем во временный файл, чтобы читатели не увидели половину картинки
	tmp := full + ".part"
	if err := afero.WriteReader(s.fs, tmp, r); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return s.fs.Rename(tmp, full)
}

// Get detects content type from the first bytes; the returned reader starts at offset 0.
func (s *LocalImageStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	full, err := s.path(key)
	if err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	f, err := s.fs.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", model.ErrImageNotFound, key)
		}
		return nil, "", err
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		closeFile(f)
		return nil, "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		closeFile(f)
		return nil, "", err
	}

	return f, mt.String(), nil
}

func (s *LocalImageStorage) Delete(_ context.Context, key string) error {
	full, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalImageStorage) List(ctx context.Context, olderThan time.Time) ([]model.StoredObject, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, err
	}

	objects := make([]model.StoredObject, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if e.IsDir() || strings.HasSuffix(e.Name(), ".part") || !e.ModTime().Before(olderThan) {
			continue
		}
		objects = append(objects, model.StoredObject{
			Key:          e.Name(),
			Size:         e.Size(),
			LastModified: e.ModTime(),
		})
	}

	return objects, nil
}

func (s *LocalImageStorage) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return filepath.Join(s.dir, key), nil
}

func closeFile(f afero.File) {
	if err := f.Close(); err != nil {
		log.Println("Failed to close stored file:", err)
	}
}
