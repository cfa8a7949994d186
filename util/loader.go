package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ClipFile represents a candidate clip inside a directory.
type ClipFile struct {
	// Path is the path to the clip file.
	Path string
	// Name is the base name of the file.
	Name string
	// Ext is the lower-case extension, with the dot.
	Ext string
	// Size is the file size in bytes.
	Size int64
}

// LoadDirectoryClipFiles lists the regular files of a directory in name order.
//
// Directories, symlinks to directories and other non-regular entries are left out.
//
// Arguments:
// - dir: Directory path containing clip files.
//
// Returns:
// - []ClipFile: The regular files, sorted by name.
// - error: Error if the directory cannot be read.
func LoadDirectoryClipFiles(dir string) ([]ClipFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var files []ClipFile
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, ClipFile{
			Path: path,
			Name: entry.Name(),
			Ext:  strings.ToLower(filepath.Ext(entry.Name())),
			Size: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// FilterByExtension splits files into those with one of exts and the rest.
func FilterByExtension(files []ClipFile, exts []string) (matched, rejected []ClipFile) {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}
	for _, f := range files {
		if allowed[f.Ext] {
			matched = append(matched, f)
		} else {
			rejected = append(rejected, f)
		}
	}
	return matched, rejected
}
