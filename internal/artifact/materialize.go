package artifact

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Materialize downloads every file under prefix into dir, keeping paths
// relative to prefix. Directory markers are skipped, as are files for which
// keep returns false. Files already present with the listed size are not
// downloaded again. It returns the number of files now present and
// ErrNotFound when the listing holds no files.
func Materialize(ctx context.Context, store Store, prefix, dir string, keep func(rel string) bool) (int, error) {
	entries, err := store.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", prefix, err)
	}
	base := strings.TrimSuffix(prefix, "/") + "/"

	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name, base) {
			continue
		}
		rel := strings.TrimPrefix(e.Name, base)
		if keep != nil && !keep(rel) {
			continue
		}
		local := filepath.FromSlash(rel)
		if !filepath.IsLocal(local) {
			return n, fmt.Errorf("refusing to write %q outside %s", e.Name, dir)
		}
		dst := filepath.Join(dir, local)
		if info, err := os.Stat(dst); err == nil && info.Mode().IsRegular() && e.Size > 0 && info.Size() == e.Size {
			n++
			continue
		}
		if err := fetch(ctx, store, e.Name, dst); err != nil {
			return n, err
		}
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no files under %s", ErrNotFound, prefix)
	}
	return n, nil
}

// fetch downloads name to a temporary file next to dst and renames it into
// place, so an interrupted transfer never leaves a truncated file at dst.
func fetch(ctx context.Context, store Store, name, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".part-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := store.Download(ctx, name, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// UploadDir uploads every regular file under localDir to prefix and returns
// the uploaded names.
func UploadDir(ctx context.Context, store Store, localDir, prefix string) ([]string, error) {
	prefix = strings.Trim(prefix, "/")
	var uploaded []string
	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		name := path.Join(prefix, filepath.ToSlash(rel))
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := store.Upload(ctx, name, f); err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}
		uploaded = append(uploaded, name)
		return nil
	})
	if err != nil {
		return uploaded, err
	}
	if len(uploaded) == 0 {
		return nil, fmt.Errorf("%w: no files in %s", ErrNotFound, localDir)
	}
	return uploaded, nil
}
