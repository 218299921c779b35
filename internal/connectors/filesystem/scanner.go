package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure Scanner implements the interface.
var _ driven.FileScanner = (*Scanner)(nil)

// Scanner lists and reads files under a root folder.
type Scanner struct {
	retry RetryConfig
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithRetry overrides the locked-file retry policy.
func WithRetry(cfg RetryConfig) Option {
	return func(s *Scanner) {
		s.retry = cfg
	}
}

// NewScanner creates a scanner with the default retry policy.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{retry: DefaultRetryConfig()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns every regular, non-hidden file under root in lexical order.
// Unreadable sub-directories are skipped rather than failing the scan.
func (s *Scanner) Scan(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: %w: not a directory", root, domain.ErrInvalidInput)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return walkErr
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, nil
}

// Read returns the file contents, retrying while the file is locked.
func (s *Scanner) Read(ctx context.Context, path string) ([]byte, error) {
	var content []byte
	err := retry(ctx, "read "+path, s.retry, func() error {
		var err error
		content, err = os.ReadFile(path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return content, nil
}

// HashFile returns the content fingerprint of a file, retrying while locked.
func (s *Scanner) HashFile(ctx context.Context, path string) (string, error) {
	content, err := s.Read(ctx, path)
	if err != nil {
		return "", err
	}
	return domain.FingerprintBytes(content), nil
}

// isHidden reports whether a single path element is hidden.
// "." and ".." are not hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// hasHiddenElement reports whether any element of path is hidden.
func hasHiddenElement(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if isHidden(part) {
			return true
		}
	}
	return false
}
