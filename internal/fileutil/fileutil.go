package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
)

// claimLimit bounds the number of suffixes tried before ClaimUnique gives up.
const claimLimit = 1000

// ErrNoFreeName is returned when every candidate destination name is taken.
var ErrNoFreeName = errors.New("no free destination name")

// CopyFile streams src to dst with SHA256 + size integrity verification.
// dst is truncated if it exists. Removes dst on mismatch.
func CopyFile(fs billy.Filesystem, src, dst string) error {
	srcInfo, err := fs.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := fs.MkdirAll(path.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = fs.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = fs.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	return nil
}

// ClaimUnique atomically creates an empty file at target, appending suffix
// until a free name is found. It returns the claimed path. Parent
// directories are created as needed. Concurrent claimers never receive the
// same path.
func ClaimUnique(fs billy.Filesystem, target, suffix string) (string, error) {
	if suffix == "" {
		return "", fmt.Errorf("claim %s: empty collision suffix", target)
	}
	if err := fs.MkdirAll(path.Dir(target), 0o755); err != nil {
		return "", err
	}
	candidate := target
	for range claimLimit {
		f, err := fs.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			if err := f.Close(); err != nil {
				_ = fs.Remove(candidate)
				return "", err
			}
			return candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
		candidate += suffix
	}
	return "", fmt.Errorf("claim %s: %w", target, ErrNoFreeName)
}

// Move renames src onto dst, falling back to copy and remove when the two
// paths live on different devices.
func Move(fs billy.Filesystem, src, dst string) error {
	err := fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}
	if err := CopyFile(fs, src, dst); err != nil {
		return fmt.Errorf("copy across devices: %w", err)
	}
	if err := fs.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}
