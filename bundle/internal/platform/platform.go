// Package platform opens bundle inputs without following symbolic links.
package platform

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrSymlink is returned when an input path is a symbolic link.
var ErrSymlink = errors.New("bundle input is a symbolic link")

// errReplaced reports a file swapped between the link check and the open.
var errReplaced = errors.New("bundle input replaced while opening")

// OpenInput opens the input file name under root for packing.
//
// Errors are *fs.PathError values naming the file's path within the input
// directory; a symbolic link yields one wrapping ErrSymlink.
func OpenInput(root *os.Root, name string) (*os.File, error) {
	f, err := open(root, name)
	if err == nil {
		return f, nil
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return nil, &fs.PathError{Op: "open bundle input", Path: filepath.Join(root.Name(), name), Err: err}
}

// open refuses a link at name, then checks that the opened file is the one
// that was inspected.
func open(root *os.Root, name string) (*os.File, error) {
	linfo, err := root.Lstat(name)
	if err != nil {
		return nil, err
	}
	if linfo.Mode()&fs.ModeSymlink != 0 {
		return nil, ErrSymlink
	}
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !os.SameFile(linfo, info) {
		f.Close()
		return nil, errReplaced
	}
	return f, nil
}
