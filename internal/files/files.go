// Package files stores uploaded certificates and supporting documents on the
// local filesystem and serves them back under /uploads.
package files

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"
)

// URLPrefix is the public mount point of the upload root.
const URLPrefix = "/uploads"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// Ref points at a stored file.
type Ref struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Local writes files below a root directory.
type Local struct {
	root string
}

// NewLocal creates the root directory if needed.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("upload root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &Local{root: root}, nil
}

// Root returns the directory files are written to.
func (l *Local) Root() string { return l.root }

// Store writes content to {root}/{subdir}/{name}. The name is sanitized
// before use. The write is atomic: a temp file is renamed into place.
func (l *Local) Store(ctx context.Context, subdir, name string, content []byte) (Ref, error) {
	if err := ctx.Err(); err != nil {
		return Ref{}, err
	}
	subdir = SanitizeName(subdir)
	name = SanitizeName(name)
	if name == "" || name == "." || name == ".." {
		return Ref{}, fmt.Errorf("invalid file name %q", name)
	}

	dir := filepath.Join(l.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Ref{}, fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "upload-*.tmp")
	if err != nil {
		return Ref{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return Ref{}, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Ref{}, fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return Ref{}, fmt.Errorf("rename upload: %w", err)
	}
	success = true

	return Ref{
		URL:      path.Join(URLPrefix, subdir, name),
		Name:     name,
		Size:     int64(len(content)),
		Checksum: Checksum(content),
	}, nil
}

// Remove deletes the file behind ref. A missing file is not an error.
func (l *Local) Remove(_ context.Context, ref Ref) error {
	rel, ok := strings.CutPrefix(ref.URL, URLPrefix+"/")
	if !ok || rel == "" {
		return fmt.Errorf("not an upload url: %q", ref.URL)
	}
	target := filepath.Join(l.root, filepath.FromSlash(path.Clean("/"+rel)))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// Handler serves the upload root read-only. Directory listings are refused.
func (l *Local) Handler() http.Handler {
	fileServer := http.StripPrefix(URLPrefix, http.FileServer(http.Dir(l.root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// SanitizeName replaces every character outside [a-zA-Z0-9.-] with '_'.
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Checksum is the hex BLAKE3-256 digest of content.
func Checksum(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}
