//go:build !windows

package filewrite

import (
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// writeAtomic writes to a temp file next to path and renames it over path,
// so readers see either the old content or the complete payload.
func writeAtomic(path string, data []byte) error {
	return errors.Wrapf(renameio.WriteFile(path, data, filePerm), "atomic write %s", path)
}
