package extractor

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cosnicolaou/pbzip2"
	"github.com/fujiwara/shapeio"

	"github.com/pddg/sparkly/internal/logging"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrIllegalPath       = errors.New("archive entry escapes the destination")
)

// Extractor unpacks update archives.
type Extractor struct {
	extractLimitBytesPerSec float64
}

func New(options ...Option) *Extractor {
	x := &Extractor{
		extractLimitBytesPerSec: math.MaxFloat64,
	}
	for _, option := range options {
		option(x)
	}
	return x
}

// IsCompressed reports whether an archive with the given file name is bzip2
// compressed. Only tar archives are supported.
func IsCompressed(name string) (bool, error) {
	switch {
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz"), strings.HasSuffix(name, ".tbz2"):
		return true, nil
	case strings.HasSuffix(name, ".tar"):
		return false, nil
	default:
		return false, fmt.Errorf("extractor.IsCompressed: %q: %w", name, ErrUnsupportedFormat)
	}
}

// Extract unpacks the tar archive read from archive into destPath.
// Archives are bzip2 compressed unless Uncompressed is given. On failure
// destPath is removed.
func (x *Extractor) Extract(ctx context.Context, archive io.Reader, destPath string, options ...ExtractOption) error {
	logger := logging.FromContext(ctx)
	logger.Info("extract update", "dest", destPath)
	destStat, err := os.Stat(destPath)
	if err != nil {
		if err := os.MkdirAll(destPath, 0755); err != nil {
			return fmt.Errorf("extractor.Extractor.Extract: failed to create destination directory %q: %w", destPath, err)
		}
	} else if !destStat.IsDir() {
		return fmt.Errorf("extractor.Extractor.Extract: destination %q is not a directory", destPath)
	}
	if err := x.extract(ctx, archive, destPath, options...); err != nil {
		if rmErr := os.RemoveAll(destPath); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to remove destination directory %q: %w", destPath, rmErr))
		}
		return fmt.Errorf("extractor.Extractor.Extract: failed to extract to %q: %w", destPath, err)
	}
	return nil
}

type runtimeOption struct {
	uncompressed bool
	size         int64
	progress     func(completed float64)
}

func (x *Extractor) extract(ctx context.Context, archive io.Reader, destPath string, options ...ExtractOption) error {
	opt := &runtimeOption{}
	for _, option := range options {
		option(opt)
	}
	if opt.progress != nil && opt.size > 0 {
		archive = &progressReader{r: archive, size: opt.size, report: opt.progress}
	}
	var r io.Reader
	if opt.uncompressed {
		r = archive
	} else {
		r = pbzip2.NewReader(ctx, archive)
	}
	limited := shapeio.NewReaderWithContext(r, ctx)
	limited.SetRateLimit(x.extractLimitBytesPerSec)
	untar := tar.NewReader(limited)
	for {
		header, err := untar.Next()
		if err != nil {
			if err == io.EOF {
				if opt.progress != nil {
					opt.progress(1)
				}
				return nil
			}
			if errors.Is(err, tar.ErrInsecurePath) {
				return fmt.Errorf("%q: %w", header.Name, ErrIllegalPath)
			}
			return fmt.Errorf("failed to read tar header: %w", err)
		}
		target, err := entryPath(destPath, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", filepath.Dir(target), err)
			}
			if err := atomicWrite(target, untar, header.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("failed to write file %q: %w", target, err)
			}
		default:
			logging.FromContext(ctx).Debug("skipped archive entry", "name", header.Name, "type", header.Typeflag)
			continue
		}
		if err := os.Chtimes(target, header.ModTime, header.ModTime); err != nil {
			return fmt.Errorf("failed to change modtime of %q: %w", target, err)
		}
	}
}

func entryPath(destPath, name string) (string, error) {
	target := filepath.Join(destPath, name)
	rel, err := filepath.Rel(destPath, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", name, ErrIllegalPath)
	}
	return target, nil
}

func atomicWrite(dest string, src io.Reader, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(dest), "tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
	}()
	if _, err := io.Copy(tmpFile, src); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("failed to change mode: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), dest); err != nil {
		return fmt.Errorf("failed to rename temp file to %q: %w", dest, err)
	}
	return nil
}
