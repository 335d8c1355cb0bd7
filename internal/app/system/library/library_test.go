package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"go.uber.org/zap"
)

func newTestLibrary(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return l
}

func writeFile(t *testing.T, root string, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWalkVisitsLeafFiles(t *testing.T) {
	l := newTestLibrary(t)
	writeFile(t, l.Root(), "Cars/Sedans/one.jpg")
	writeFile(t, l.Root(), "Cars/Sedans/two.png")
	writeFile(t, l.Root(), "intake.jpg")
	writeFile(t, l.Root(), ".hidden/skipped.jpg")

	var got []string
	err := l.Walk(context.Background(), func(f File) error {
		got = append(got, f.RelPath)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	sort.Strings(got)

	want := []string{"Cars/Sedans/one.jpg", "Cars/Sedans/two.png", "intake.jpg"}
	if len(got) != len(want) {
		t.Fatalf("visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWalkSkipsVanishedEntries(t *testing.T) {
	l := newTestLibrary(t)
	writeFile(t, l.Root(), "Art/Posters/sunset.png")

	// A dangling symlink stats like a file that vanished between readdir
	// and stat; it must not abort the walk.
	if err := os.Symlink(
		filepath.Join(l.Root(), "gone.png"),
		filepath.Join(l.Root(), "broken.png"),
	); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	var got []string
	err := l.Walk(context.Background(), func(f File) error {
		got = append(got, f.RelPath)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(got) != 1 || got[0] != "Art/Posters/sunset.png" {
		t.Errorf("visited %v, want only Art/Posters/sunset.png", got)
	}
}

func TestWalkAncestors(t *testing.T) {
	l := newTestLibrary(t)
	writeFile(t, l.Root(), "Cars/Sedans/one.jpg")

	err := l.Walk(context.Background(), func(f File) error {
		if len(f.Ancestors) != 2 || f.Ancestors[0] != "Cars" || f.Ancestors[1] != "Sedans" {
			t.Errorf("ancestors = %v, want [Cars Sedans]", f.Ancestors)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
}

func TestIdentityStableAcrossMove(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()
	writeFile(t, l.Root(), "photo.jpg")

	var before File
	if err := l.Walk(ctx, func(f File) error { before = f; return nil }); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	dst, err := l.EnsurePath(ctx, "Art", "Posters")
	if err != nil {
		t.Fatalf("EnsurePath: %v", err)
	}
	after, err := l.Move(ctx, before, dst)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}

	if after.ID != before.ID {
		t.Errorf("identity changed across move: %q -> %q", before.ID, after.ID)
	}
	if after.RelPath != "Art/Posters/photo.jpg" {
		t.Errorf("RelPath = %q, want Art/Posters/photo.jpg", after.RelPath)
	}
	if after.ParentID == before.ParentID {
		t.Error("ParentID should change when the file moves folders")
	}
	if Signature(after) == Signature(before) {
		t.Error("signature should change when the parent folder changes")
	}
}

func TestRenameKeepsIdentity(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()
	writeFile(t, l.Root(), "Art/Posters/Art Posters - Sunset View.png")

	var f File
	if err := l.Walk(ctx, func(file File) error { f = file; return nil }); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	renamed, err := l.Rename(ctx, f, "Sunset View.png")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.ID != f.ID {
		t.Errorf("identity changed across rename: %q -> %q", f.ID, renamed.ID)
	}
	if renamed.Name != "Sunset View.png" {
		t.Errorf("Name = %q, want Sunset View.png", renamed.Name)
	}

	if _, err := l.Rename(ctx, renamed, "../escape.png"); !errors.Is(err, ErrBadName) {
		t.Errorf("Rename with traversal err = %v, want ErrBadName", err)
	}
}

func TestEnsurePathIdempotent(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()

	first, err := l.EnsurePath(ctx, "Cars", "Sedans")
	if err != nil {
		t.Fatalf("EnsurePath: %v", err)
	}
	second, err := l.EnsurePath(ctx, "Cars", "Sedans")
	if err != nil {
		t.Fatalf("EnsurePath again: %v", err)
	}
	if first.ID != second.ID || first.Path != second.Path {
		t.Errorf("EnsurePath not idempotent: %+v vs %+v", first, second)
	}

	root, err := l.EnsurePath(ctx, "", "")
	if err != nil {
		t.Fatalf("EnsurePath root: %v", err)
	}
	if root.Path != l.Root() {
		t.Errorf("root folder path = %q, want %q", root.Path, l.Root())
	}

	if _, err := l.EnsurePath(ctx, "..", ""); !errors.Is(err, ErrBadName) {
		t.Errorf("EnsurePath traversal err = %v, want ErrBadName", err)
	}
}

func TestFindByID(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()
	writeFile(t, l.Root(), "Cars/Sedans/one.jpg")

	var f File
	if err := l.Walk(ctx, func(file File) error { f = file; return nil }); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	found, err := l.FindByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.RelPath != f.RelPath {
		t.Errorf("RelPath = %q, want %q", found.RelPath, f.RelPath)
	}

	if _, err := l.FindByID(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID unknown err = %v, want ErrNotFound", err)
	}
}

func TestCategories(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()
	writeFile(t, l.Root(), "Cars/Sedans/one.jpg")
	writeFile(t, l.Root(), "Art/Posters/two.png")
	writeFile(t, l.Root(), "Art/Prints/three.png")
	writeFile(t, l.Root(), "loose.jpg")

	tree, err := l.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}

	if len(tree) != 2 {
		t.Fatalf("top-level count = %d, want 2", len(tree))
	}
	if tree[0].Name != "Art" || tree[1].Name != "Cars" {
		t.Errorf("top-level order = [%s %s], want [Art Cars]", tree[0].Name, tree[1].Name)
	}
	if len(tree[0].Children) != 2 {
		t.Fatalf("Art children = %d, want 2", len(tree[0].Children))
	}
	if tree[0].Children[0].Slug != "posters" || tree[0].Children[1].Slug != "prints" {
		t.Errorf("Art children slugs = %v", tree[0].Children)
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.JPEG", true},
		{"photo.png", true},
		{"photo.gif", true},
		{"photo.webp", true},
		{"notes.txt", false},
		{"video.mp4", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.name); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
