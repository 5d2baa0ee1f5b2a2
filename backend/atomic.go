package backend

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// writeFileAtomic persists data at path by writing it to a temp file
// in the same directory first, then renaming it into place. This
// guarantees a reader never observes a torn/partial write: either the
// rename happened and path holds the full content, or it didn't and
// path still holds whatever was there before.
func writeFileAtomic(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(fs, dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("could not create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // best effort, we're already failing
		fs.Remove(tmpName) //nolint:errcheck,gosec // best effort, we're already failing
		return fmt.Errorf("could not write temp file %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		fs.Remove(tmpName) //nolint:errcheck,gosec // best effort, we're already failing
		return fmt.Errorf("could not close temp file %s: %w", tmpName, err)
	}
	if err = fs.Chmod(tmpName, perm); err != nil {
		fs.Remove(tmpName) //nolint:errcheck,gosec // best effort, we're already failing
		return fmt.Errorf("could not set permissions on temp file %s: %w", tmpName, err)
	}
	if err = fs.Rename(tmpName, path); err != nil {
		fs.Remove(tmpName) //nolint:errcheck,gosec // best effort, we're already failing
		return fmt.Errorf("could not rename %s to %s: %w", tmpName, path, err)
	}
	return nil
}
