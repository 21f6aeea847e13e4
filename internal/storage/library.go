package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"mediacache/internal/domain"
)

// LibraryReader reads original image bytes from the media library.
type LibraryReader struct {
	fs billy.Filesystem
}

// NewLibraryReader reads source paths relative to root on the local disk.
func NewLibraryReader(root string) *LibraryReader {
	if strings.TrimSpace(root) == "" {
		root = "/"
	}
	return &LibraryReader{fs: osfs.New(root)}
}

func NewLibraryReaderFS(fs billy.Filesystem) *LibraryReader {
	return &LibraryReader{fs: fs}
}

// ReadSource returns the bytes of the image's original file.
func (r *LibraryReader) ReadSource(ctx context.Context, img domain.SourceImage) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := sanitizeKey(img.Path)
	if err != nil {
		return nil, fmt.Errorf("storage: source %s: %w", img.ID, err)
	}
	data, err := util.ReadFile(r.fs, key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage: source %s: %w", img.ID, ErrNotExist)
		}
		return nil, fmt.Errorf("storage: read source %s: %w", img.ID, err)
	}
	return data, nil
}
