package library

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/galleriahq/galleria/internal/app/system/taxonomy"
	"github.com/galleriahq/galleria/internal/domain/models"
	"go.uber.org/zap"
)

// Local is the on-disk Tree implementation. File identity is the inode
// number, which the filesystem keeps stable across rename and move within
// the same volume.
type Local struct {
	root   string
	logger *zap.Logger
}

var _ Tree = (*Local)(nil)

// NewLocal opens (creating if needed) a library rooted at dir.
func NewLocal(dir string, logger *zap.Logger) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("library: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("library: create root: %w", err)
	}
	return &Local{root: abs, logger: logger}, nil
}

// Root returns the absolute path of the library root.
func (l *Local) Root() string {
	return l.root
}

// identity returns the stable id for a path. Inode numbers when the
// filesystem exposes them; a path hash otherwise (not move-stable, but keeps
// the adapter functional on exotic mounts).
func identity(path string, info os.FileInfo) string {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return strconv.FormatUint(uint64(st.Ino), 10)
	}
	sum := sha1.Sum([]byte(path))
	return hex.EncodeToString(sum[:8])
}

// fileAt stats a path and builds the File record, including the ancestor
// chain relative to the root.
func (l *Local) fileAt(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	parent := filepath.Dir(path)
	parentInfo, err := os.Stat(parent)
	if err != nil {
		return File{}, err
	}
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return File{}, err
	}
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")

	return File{
		ID:        identity(path, info),
		Name:      info.Name(),
		Path:      path,
		RelPath:   rel,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		ParentID:  identity(parent, parentInfo),
		Ancestors: append([]string(nil), parts[:len(parts)-1]...),
	}, nil
}

func (l *Local) Walk(ctx context.Context, fn func(File) error) error {
	return filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == l.root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		f, err := l.fileAt(path)
		if err != nil {
			// A dangling symlink, or a file moved or deleted between
			// readdir and stat. The entry is gone; the next pass sees
			// whatever replaced it.
			if errors.Is(err, fs.ErrNotExist) {
				l.logger.Debug("skipping vanished entry", zap.String("path", path))
				return nil
			}
			return err
		}
		return fn(f)
	})
}

var errFound = errors.New("library: found")

func (l *Local) FindByID(ctx context.Context, id string) (File, error) {
	var found File
	err := l.Walk(ctx, func(f File) error {
		if f.ID == id {
			found = f
			return errFound
		}
		return nil
	})
	switch {
	case errors.Is(err, errFound):
		return found, nil
	case err != nil:
		return File{}, err
	default:
		return File{}, ErrNotFound
	}
}

func (l *Local) EnsurePath(ctx context.Context, cat1, cat2 string) (Folder, error) {
	if cat1 == "" {
		return l.folderAt(l.root)
	}
	if !validComponent(cat1) || (cat2 != "" && !validComponent(cat2)) {
		return Folder{}, ErrBadName
	}
	dir := filepath.Join(l.root, cat1)
	if cat2 != "" {
		dir = filepath.Join(dir, cat2)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Folder{}, err
	}
	return l.folderAt(dir)
}

func (l *Local) folderAt(dir string) (Folder, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Folder{}, err
	}
	name := filepath.Base(dir)
	if dir == l.root {
		name = ""
	}
	return Folder{ID: identity(dir, info), Name: name, Path: dir}, nil
}

func (l *Local) Move(ctx context.Context, f File, dst Folder) (File, error) {
	target := filepath.Join(dst.Path, f.Name)
	if target == f.Path {
		return f, nil
	}
	if _, err := os.Stat(target); err == nil {
		return File{}, fmt.Errorf("library: %q already exists in %q", f.Name, dst.Path)
	}
	if err := os.Rename(f.Path, target); err != nil {
		return File{}, err
	}
	l.logger.Debug("moved file",
		zap.String("file_id", f.ID),
		zap.String("from", f.RelPath),
		zap.String("to_folder", dst.Name))
	return l.fileAt(target)
}

func (l *Local) Rename(ctx context.Context, f File, name string) (File, error) {
	if name == f.Name {
		return f, nil
	}
	if !validComponent(name) {
		return File{}, ErrBadName
	}
	target := filepath.Join(filepath.Dir(f.Path), name)
	if _, err := os.Stat(target); err == nil {
		return File{}, fmt.Errorf("library: %q already exists", name)
	}
	if err := os.Rename(f.Path, target); err != nil {
		return File{}, err
	}
	l.logger.Debug("renamed file",
		zap.String("file_id", f.ID),
		zap.String("from", f.Name),
		zap.String("to", name))
	return l.fileAt(target)
}

func (l *Local) Categories(ctx context.Context) ([]models.CategoryNode, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, err
	}

	var tree []models.CategoryNode
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		node := models.CategoryNode{Slug: taxonomy.Slug(e.Name()), Name: e.Name()}
		subs, err := os.ReadDir(filepath.Join(l.root, e.Name()))
		if err != nil {
			return nil, err
		}
		for _, sub := range subs {
			if !sub.IsDir() || strings.HasPrefix(sub.Name(), ".") {
				continue
			}
			node.Children = append(node.Children, models.CategoryNode{
				Slug: taxonomy.Slug(sub.Name()),
				Name: sub.Name(),
			})
		}
		tree = append(tree, node)
	}
	sort.Slice(tree, func(i, j int) bool { return tree[i].Name < tree[j].Name })
	return tree, nil
}
