package clickhouse

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"
)

// memFS is a flat in-memory filesystem serving rendered migrations to the
// iofs source driver.
type memFS struct {
	files map[string]string
}

func (m *memFS) Open(name string) (fs.File, error) {
	name = strings.TrimPrefix(name, "/")

	if name == "." || name == "" {
		return &memDir{fs: m}, nil
	}

	content, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}

	return &memFile{name: name, content: content}, nil
}

type memFile struct {
	name    string
	content string
	offset  int
}

func (f *memFile) Stat() (fs.FileInfo, error) {
	return &memFileInfo{name: f.name, size: int64(len(f.content))}, nil
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.offset >= len(f.content) {
		return 0, io.EOF
	}
	n := copy(p, f.content[f.offset:])
	f.offset += n
	return n, nil
}

func (f *memFile) Close() error {
	return nil
}

type memDir struct {
	fs      *memFS
	entries []fs.DirEntry
	offset  int
}

func (d *memDir) Stat() (fs.FileInfo, error) {
	return &memFileInfo{name: ".", isDir: true}, nil
}

func (d *memDir) Read(_ []byte) (int, error) {
	return 0, fmt.Errorf("is a directory") //nolint:err113 // Standard error for directory read
}

func (d *memDir) Close() error {
	return nil
}

// ReadDir returns the entries sorted by name.
func (d *memDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.entries == nil {
		names := make([]string, 0, len(d.fs.files))
		for name := range d.fs.files {
			names = append(names, name)
		}
		sort.Strings(names)

		d.entries = make([]fs.DirEntry, 0, len(names))
		for _, name := range names {
			d.entries = append(d.entries, fs.FileInfoToDirEntry(&memFileInfo{
				name: name,
				size: int64(len(d.fs.files[name])),
			}))
		}
	}

	if n <= 0 {
		entries := d.entries[d.offset:]
		d.offset = len(d.entries)
		return entries, nil
	}

	if d.offset >= len(d.entries) {
		return nil, io.EOF
	}

	end := min(d.offset+n, len(d.entries))
	entries := d.entries[d.offset:end]
	d.offset = end

	return entries, nil
}

type memFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (i *memFileInfo) Name() string { return i.name }

func (i *memFileInfo) Size() int64 { return i.size }

func (i *memFileInfo) Mode() fs.FileMode {
	if i.isDir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

func (i *memFileInfo) ModTime() time.Time { return time.Time{} }

func (i *memFileInfo) IsDir() bool { return i.isDir }

func (i *memFileInfo) Sys() any { return nil }
