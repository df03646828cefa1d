package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs"
	afsurl "github.com/viant/afs/url"
)

var (
	ErrEmptyName = errors.New("empty name")
	ErrNotFound  = errors.New("not found")
)

var errFound = errors.New("found")

type searchFunc func(ctx context.Context, root, name string, wantDir bool) (string, error)

// Resolver turns a user supplied file or folder name into a local path.
type Resolver struct {
	Root string
	fs   afs.Service
	// search is the recursive lookup; absolute names never reach it.
	search searchFunc
}

func NewResolver(root string) *Resolver {
	r := &Resolver{Root: strings.TrimSpace(root), fs: afs.New()}
	r.search = r.walk
	return r
}

func toURL(p string) string {
	if afsurl.Scheme(p, "") != "" {
		return p
	}
	return "file://" + filepath.ToSlash(filepath.Clean(p))
}

func toPath(u string) string {
	if afsurl.Scheme(u, "") == "" {
		return u
	}
	return filepath.FromSlash(afsurl.Path(u))
}

// ResolveDir finds a directory by absolute path or by name under Root.
func (r *Resolver) ResolveDir(ctx context.Context, name string) (string, error) {
	return r.resolve(ctx, name, true)
}

// ResolveFile finds a file by absolute path or by name under Root.
func (r *Resolver) ResolveFile(ctx context.Context, name string) (string, error) {
	return r.resolve(ctx, name, false)
}

func (r *Resolver) resolve(ctx context.Context, name string, wantDir bool) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if filepath.IsAbs(name) {
		obj, err := r.fs.Object(ctx, toURL(name))
		if err != nil || obj == nil || obj.IsDir() != wantDir {
			return "", fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return filepath.Clean(name), nil
	}
	if r.Root == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return r.search(ctx, r.Root, name, wantDir)
}

// walk does a depth-first search under root and returns the first entry whose
// base name matches name, case-insensitively.
func (r *Resolver) walk(ctx context.Context, root, name string, wantDir bool) (string, error) {
	var hit string
	err := r.fs.Walk(ctx, toURL(root), func(ctx context.Context, baseURL, parent string, info os.FileInfo, _ io.Reader) (bool, error) {
		if info == nil {
			return true, nil
		}
		if info.IsDir() == wantDir && strings.EqualFold(info.Name(), name) {
			if parent == "" {
				hit = afsurl.Join(baseURL, info.Name())
			} else {
				hit = afsurl.Join(baseURL, parent, info.Name())
			}
			return false, errFound
		}
		return true, nil
	})
	if hit != "" {
		return toPath(hit), nil
	}
	if err != nil && !errors.Is(err, errFound) {
		return "", fmt.Errorf("search %s: %w", root, err)
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// ListDir returns the entries of dir sorted by name.
func (r *Resolver) ListDir(ctx context.Context, dir string) ([]Entry, error) {
	objs, err := r.fs.List(ctx, toURL(dir))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	self := filepath.Clean(dir)
	out := make([]Entry, 0, len(objs))
	for _, o := range objs {
		if o == nil {
			continue
		}
		if filepath.Clean(toPath(o.URL())) == self {
			continue
		}
		out = append(out, Entry{Name: o.Name(), IsDir: o.IsDir(), Size: o.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Download returns the raw bytes of a local file.
func (r *Resolver) Download(ctx context.Context, path string) ([]byte, error) {
	return r.fs.DownloadWithURL(ctx, toURL(path))
}
