// Package library abstracts the hierarchical asset store the gallery is
// built on: a root folder, one folder level per category1, a second level
// per category2, and image files as leaves.
//
// The Tree interface is what the reconciliation engine and the category-edit
// path program against; Local is the on-disk implementation. File identity is
// assigned by the backing store and survives moves and renames, which is what
// lets the index track a file across recategorization.
package library

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/galleriahq/galleria/internal/domain/models"
)

// ErrNotFound is returned when a file id cannot be resolved in the tree.
var ErrNotFound = errors.New("library: file not found")

// ErrBadName is returned for folder or file names that would escape the tree.
var ErrBadName = errors.New("library: invalid name")

// File describes one leaf file in the tree.
type File struct {
	ID        string    // stable identity, survives move/rename
	Name      string    // base filename including extension
	Path      string    // absolute path
	RelPath   string    // path relative to the root, forward slashes
	Size      int64     // bytes
	ModTime   time.Time
	ParentID  string    // identity of the immediate parent folder
	Ancestors []string  // folder names between root and file, outermost first
}

// Folder is a handle to a directory inside the tree.
type Folder struct {
	ID   string
	Name string
	Path string
}

// Tree is the storage abstraction the scan and category edits run against.
type Tree interface {
	// Walk visits every leaf file under the root. The callback's error
	// aborts the walk.
	Walk(ctx context.Context, fn func(File) error) error

	// FindByID resolves a file id to its current location.
	// Returns ErrNotFound when no live file carries the id.
	FindByID(ctx context.Context, id string) (File, error)

	// EnsurePath idempotently creates the cat1/cat2 folder chain and
	// returns the leaf folder. An empty cat1 returns the root. May create
	// zero, one, or two folders.
	EnsurePath(ctx context.Context, cat1, cat2 string) (Folder, error)

	// Move relocates a file into dst, keeping its name and identity.
	Move(ctx context.Context, f File, dst Folder) (File, error)

	// Rename changes a file's name in place, keeping its identity.
	Rename(ctx context.Context, f File, name string) (File, error)

	// Categories reads the live two-level folder structure as a category
	// tree.
	Categories(ctx context.Context) ([]models.CategoryNode, error)
}

// Signature derives the change-detection value for a file: identity plus
// modification time plus parent folder. It is compared, never parsed.
func Signature(f File) string {
	return f.ID + "|" + strconv.FormatInt(f.ModTime.Unix(), 10) + "|" + f.ParentID
}

var supportedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Supported reports whether the filename's extension names an asset type the
// index tracks. Everything else is invisible to the scan.
func Supported(name string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(name))]
}

// validComponent rejects names that would traverse outside the tree.
func validComponent(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return !strings.HasPrefix(name, ".")
}
