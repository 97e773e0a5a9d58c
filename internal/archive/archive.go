// Package archive exposes a jar held in memory as a read-only set of entries.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("archive entry not found")

// Entry describes one file inside the archive. Content is decompressed on
// demand.
type Entry struct {
	Name             string
	CRC32            uint32
	UncompressedSize uint64

	file *zip.File
}

// Bytes decompresses the entry.
func (e *Entry) Bytes(ctx context.Context) ([]byte, error) {
	if e == nil || e.file == nil {
		return nil, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := e.file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", e.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.Name, err)
	}
	return data, nil
}

// Archive is an opened jar. It is immutable after Open and safe for
// concurrent readers.
type Archive struct {
	entries map[string]*Entry
	classes []string
	size    int
}

// Open parses zip bytes.
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	a := &Archive{
		entries: make(map[string]*Entry, len(zr.File)),
		size:    len(data),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		a.entries[f.Name] = &Entry{
			Name:             f.Name,
			CRC32:            f.CRC32,
			UncompressedSize: f.UncompressedSize64,
			file:             f,
		}
		if strings.HasSuffix(f.Name, ".class") {
			a.classes = append(a.classes, f.Name)
		}
	}
	sort.Strings(a.classes)
	return a, nil
}

// Entries returns the entry map keyed by path. Callers must not modify it.
func (a *Archive) Entries() map[string]*Entry {
	if a == nil {
		return nil
	}
	return a.entries
}

// Entry looks up a single path.
func (a *Archive) Entry(name string) (*Entry, bool) {
	if a == nil {
		return nil, false
	}
	e, ok := a.entries[name]
	return e, ok
}

// Has reports whether path exists.
func (a *Archive) Has(name string) bool {
	_, ok := a.Entry(name)
	return ok
}

// Read returns the decompressed bytes of path.
func (a *Archive) Read(ctx context.Context, name string) ([]byte, error) {
	e, ok := a.Entry(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return e.Bytes(ctx)
}

// ClassFiles returns the sorted ".class" paths.
func (a *Archive) ClassFiles() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.classes...)
}

// ClassNames returns ClassFiles with the ".class" suffix removed.
func (a *Archive) ClassNames() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.classes))
	for i, name := range a.classes {
		out[i] = strings.TrimSuffix(name, ".class")
	}
	return out
}

// HasClass implements the lookup used for definition navigation.
func (a *Archive) HasClass(classFile string) bool {
	if a == nil {
		return false
	}
	i := sort.SearchStrings(a.classes, classFile)
	return i < len(a.classes) && a.classes[i] == classFile
}

// Size returns the compressed size of the jar in bytes.
func (a *Archive) Size() int {
	if a == nil {
		return 0
	}
	return a.size
}

// Jar pairs an archive with the version id it was loaded for.
type Jar struct {
	Version string
	Archive *Archive
}

// Same reports whether two jars refer to the same loaded archive.
func (j Jar) Same(other Jar) bool {
	return j.Version == other.Version && j.Archive == other.Archive
}
