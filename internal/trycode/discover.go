package trycode

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultExt is the extension of the files scanned when none is configured.
const DefaultExt = ".md"

// ErrDiscovery wraps failures to walk the content tree.
var ErrDiscovery = errors.New("discovery failed")

// File is a Markdown file found by a [Discoverer].
type File struct {
	// Path is the slash-separated path inside the discoverer's file system.
	Path string
	// Name is Path joined to the discoverer's base, for diagnostics.
	Name string
}

// Discoverer lists the Markdown files below a root directory.
type Discoverer struct {
	fsys    fs.FS
	root    string
	base    string
	ext     string
	exclude []glob.Glob
}

// DiscovererOption configures a [Discoverer].
type DiscovererOption func(*Discoverer) error

// WithExt sets the file extension to match, with or without the leading dot.
func WithExt(ext string) DiscovererOption {
	return func(d *Discoverer) error {
		if len(ext) == 0 {
			return nil
		}

		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		d.ext = ext

		return nil
	}
}

// WithExclude skips files whose path relative to the root matches any of the
// glob patterns. Patterns use '/' as separator, so "drafts/**" skips a subtree.
func WithExclude(patterns ...string) DiscovererOption {
	return func(d *Discoverer) error {
		for _, pattern := range patterns {
			g, err := glob.Compile(pattern, '/')
			if err != nil {
				return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
			}

			d.exclude = append(d.exclude, g)
		}

		return nil
	}
}

// WithBase sets the prefix used to build [File.Name].
func WithBase(base string) DiscovererOption {
	return func(d *Discoverer) error {
		d.base = base

		return nil
	}
}

// NewDiscoverer returns a Discoverer walking root inside fsys.
func NewDiscoverer(fsys fs.FS, root string, opts ...DiscovererOption) (*Discoverer, error) {
	d := &Discoverer{fsys: fsys, root: root, ext: DefaultExt}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Discover walks the tree and returns matching files sorted by path.
// Symbolic links to directories are not followed.
func (d *Discoverer) Discover() ([]File, error) {
	var files []File

	err := fs.WalkDir(d.fsys, d.root, func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() || path.Ext(name) != d.ext {
			return nil
		}

		if d.excluded(name) {
			return nil
		}

		files = append(files, File{Path: name, Name: d.display(name)})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDiscovery, d.display(d.root), err)
	}

	slices.SortFunc(files, func(a, b File) int {
		return strings.Compare(a.Path, b.Path)
	})

	return files, nil
}

// ReadFile returns the content of a discovered file.
func (d *Discoverer) ReadFile(file File) ([]byte, error) {
	return fs.ReadFile(d.fsys, file.Path)
}

func (d *Discoverer) excluded(name string) bool {
	if len(d.exclude) == 0 {
		return false
	}

	rel := strings.TrimPrefix(strings.TrimPrefix(name, d.root), "/")
	if d.root == "." {
		rel = name
	}

	for _, g := range d.exclude {
		if g.Match(rel) {
			return true
		}
	}

	return false
}

func (d *Discoverer) display(name string) string {
	if len(d.base) == 0 {
		return filepath.FromSlash(name)
	}

	return filepath.Join(d.base, filepath.FromSlash(name))
}
