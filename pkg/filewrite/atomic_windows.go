//go:build windows

package filewrite

import (
	"os"

	"github.com/pkg/errors"
)

// renameio does not build on Windows; fall back to tmp + rename.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "atomic write %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "atomic write %s", path)
	}
	return nil
}
