package fsys

import (
	"errors"
	"io/fs"
	"os"
)

// ErrNotExist reports that a path disappeared between the event that named
// it and the read. Callers use errors.Is to distinguish it from IO failures.
var ErrNotExist = errors.New("file does not exist")

// FileInfo is the subset of stat data the pipeline cares about.
type FileInfo struct {
	Size int64
}

// FS abstracts filesystem access so the pipeline is storage-agnostic.
type FS interface {
	// ReadFile returns the full content of the file at path.
	ReadFile(path string) ([]byte, error)

	// Stat returns file metadata. Returns ErrNotExist for missing paths.
	Stat(path string) (FileInfo, error)

	// ReadDir lists the entries of a directory.
	ReadDir(path string) ([]fs.DirEntry, error)
}

// OS returns an FS backed by the operating system.
func OS() FS {
	return osFS{}
}

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapNotExist(err)
	}
	return data, nil
}

func (osFS) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, wrapNotExist(err)
	}
	return FileInfo{Size: info.Size()}, nil
}

func (osFS) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

func wrapNotExist(err error) error {
	if os.IsNotExist(err) {
		return errors.Join(ErrNotExist, err)
	}
	return err
}
