package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
)

// Build writes files into an in-memory jar. It is used by tests and by the
// CLI when packing loose class files.
func Build(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// MustOpen builds and opens files, panicking on failure.
func MustOpen(files map[string][]byte) *Archive {
	data, err := Build(files)
	if err != nil {
		panic(err)
	}
	a, err := Open(data)
	if err != nil {
		panic(err)
	}
	return a
}
