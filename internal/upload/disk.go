package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// DiskStorage writes videos into a local directory that is served
// statically under PublicPath.
type DiskStorage struct {
	Dir        string
	PublicPath string
}

// NewDiskStorage creates a disk backend rooted at dir.
func NewDiskStorage(dir, publicPath string) *DiskStorage {
	return &DiskStorage{Dir: dir, PublicPath: publicPath}
}

// Save writes body to Dir/name, creating Dir when it does not exist.
func (d *DiskStorage) Save(ctx context.Context, name string, body io.Reader, _ int64, _ string) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}
	dst := filepath.Join(d.Dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, readerWithContext(ctx, body)); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return path.Join(d.PublicPath, name), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
