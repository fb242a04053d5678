// Package scratch manages per-request temporary files for uploaded media.
package scratch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DefaultExt is used when the upload's filename carries no extension.
// Browser MediaRecorder captures typically arrive as webm.
const DefaultExt = ".webm"

// Save streams r into a uniquely named file under the system temp directory
// and returns its path together with a cleanup func. The file is fully
// written before Save returns. cleanup removes the file and never fails the
// caller; removal errors are logged and swallowed.
func Save(r io.Reader, filename string) (string, func(), error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = DefaultExt
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("lylo-%s%s", uuid.NewString(), ext))

	f, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", nil, fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("close scratch file: %w", err)
	}

	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Debug("remove scratch file", "path", path, "err", err)
		}
	}
	return path, cleanup, nil
}
