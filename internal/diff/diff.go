// Package diff compares two jars class by class and renders textual diffs of
// decompiled sources.
package diff

import (
	"slices"
	"sort"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"mcsrc/internal/archive"
)

// EntryInfo summarises every class file belonging to one outer class.
type EntryInfo struct {
	CRCs                  []uint32
	TotalUncompressedSize uint64
}

// ChangeState classifies an outer class between two jars.
type ChangeState string

const (
	Added    ChangeState = "added"
	Deleted  ChangeState = "deleted"
	Modified ChangeState = "modified"
)

// OuterKey maps a class-file path to the outer class it belongs to.
// "a/B$C.class" and "a/B.class" both map to "a/B".
func OuterKey(path string) string {
	key := strings.TrimSuffix(path, ".class")
	if i := strings.IndexByte(key, '$'); i >= 0 {
		key = key[:i]
	}
	return key
}

// Entries groups the class files of a by outer class. CRCs are kept sorted so
// the comparison does not depend on entry order.
func Entries(a *archive.Archive) map[string]EntryInfo {
	out := make(map[string]EntryInfo)
	if a == nil {
		return out
	}
	for _, path := range a.ClassFiles() {
		e, ok := a.Entry(path)
		if !ok {
			continue
		}
		key := OuterKey(path)
		info := out[key]
		i, _ := slices.BinarySearch(info.CRCs, e.CRC32)
		info.CRCs = slices.Insert(info.CRCs, i, e.CRC32)
		info.TotalUncompressedSize += e.UncompressedSize
		out[key] = info
	}
	return out
}

// Changes compares left (older) with right (newer). With skipUnchangedSize,
// classes whose CRCs differ but whose total size matches are left out.
func Changes(left, right map[string]EntryInfo, skipUnchangedSize bool) map[string]ChangeState {
	changes := make(map[string]ChangeState)
	for key, l := range left {
		r, ok := right[key]
		switch {
		case !ok:
			changes[key] = Deleted
		case !slices.Equal(l.CRCs, r.CRCs):
			if skipUnchangedSize && l.TotalUncompressedSize == r.TotalUncompressedSize {
				continue
			}
			changes[key] = Modified
		}
	}
	for key := range right {
		if _, ok := left[key]; !ok {
			changes[key] = Added
		}
	}
	return changes
}

// Change is one row of a diff file list.
type Change struct {
	ClassName string      `json:"className"`
	State     ChangeState `json:"state"`
}

// SortedChanges orders changes by class name.
func SortedChanges(changes map[string]ChangeState) []Change {
	out := make([]Change, 0, len(changes))
	for name, state := range changes {
		out = append(out, Change{ClassName: name, State: state})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassName < out[j].ClassName })
	return out
}

// DefaultContext is the number of context lines around each hunk.
const DefaultContext = 3

// UnifiedSource renders a unified diff of two decompiled sources. Identical
// inputs produce an empty string.
func UnifiedSource(leftName, rightName, left, right string) (string, error) {
	if left == right {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(left),
		B:        difflib.SplitLines(right),
		FromFile: leftName,
		ToFile:   rightName,
		Context:  DefaultContext,
	})
}
