// Package state models the permalink: which version, file and line range
// the viewer shows.
package state

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"mcsrc/internal/observable"
)

// DefaultFile is opened when a permalink names no file.
const DefaultFile = "net/minecraft/ChatFormatting.class"

// State is a position in the viewer. Version is the permalink format; 0
// means the state came from defaults and is not linked.
type State struct {
	Version          int    `json:"version"`
	MinecraftVersion string `json:"minecraftVersion"`
	File             string `json:"file"`
	Line             int    `json:"line,omitempty"`
	LineEnd          int    `json:"lineEnd,omitempty"`
}

func Default() State {
	return State{File: DefaultFile}
}

var lineMarker = regexp.MustCompile(`(?:#|%23)L(\d+)(?:-(\d+))?$`)

// legacyVersions maps version ids that older permalinks used.
var legacyVersions = map[string]string{
	"25w45a": "25w45a_unobfuscated",
}

// ParseFragment reads a URL fragment such as "#1/26.1/net/minecraft/Foo#L3-9".
// The second result is false when the fragment holds no permalink and the
// default state is returned.
func ParseFragment(hash string) (State, bool) {
	path := strings.TrimPrefix(hash, "#")
	path = strings.TrimPrefix(path, "/")

	var line, lineEnd int
	if m := lineMarker.FindStringSubmatchIndex(path); m != nil {
		line, _ = strconv.Atoi(path[m[2]:m[3]])
		if m[4] >= 0 {
			lineEnd, _ = strconv.Atoi(path[m[4]:m[5]])
		}
		path = path[:m[0]]
	}

	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 3 {
		return Default(), false
	}

	version, _ := strconv.Atoi(segments[0])
	mc, err := url.PathUnescape(segments[1])
	if err != nil {
		mc = segments[1]
	}
	if renamed, ok := legacyVersions[mc]; ok {
		mc = renamed
	}
	file := strings.Join(segments[2:], "/")
	if !strings.HasSuffix(file, ".class") {
		file += ".class"
	}
	return State{Version: version, MinecraftVersion: mc, File: file, Line: line, LineEnd: lineEnd}, true
}

// Fragment renders s as a permalink fragment. A range is written lowest
// line first.
func (s State) Fragment() string {
	out := fmt.Sprintf("#%d/%s/%s", s.Version, s.MinecraftVersion, strings.TrimSuffix(s.File, ".class"))
	if s.Line > 0 {
		if s.LineEnd > 0 && s.LineEnd != s.Line {
			out += fmt.Sprintf("#L%d-%d", min(s.Line, s.LineEnd), max(s.Line, s.LineEnd))
		} else {
			out += fmt.Sprintf("#L%d", s.Line)
		}
	}
	return out
}

// Title is the file's simple class name.
func (s State) Title() string {
	name := s.File
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".class")
}

// Selection holds the current state.
type Selection struct {
	current *observable.Subject[State]
}

func NewSelection(initial State) *Selection {
	return &Selection{current: observable.NewDistinct(initial, func(a, b State) bool { return a == b })}
}

func (s *Selection) Observable() *observable.Subject[State] { return s.current }

func (s *Selection) Value() State {
	v, _ := s.current.Value()
	return v
}

// SetFile selects file. Re-selecting the open file without a line keeps the
// current line range so permalinks survive the initial load.
func (s *Selection) SetFile(minecraftVersion, file string, line, lineEnd int) {
	s.current.Update(func(cur State) State {
		if file == cur.File && line == 0 && cur.Line != 0 {
			line, lineEnd = cur.Line, cur.LineEnd
		}
		return State{Version: 1, MinecraftVersion: minecraftVersion, File: file, Line: line, LineEnd: lineEnd}
	})
}

// SetMinecraftVersion records a version switch.
func (s *Selection) SetMinecraftVersion(id string) {
	s.current.Update(func(cur State) State {
		cur.MinecraftVersion = id
		return cur
	})
}

// Permalink is the fragment to show, or "" when linking is unsupported or
// the state was never linked.
func (s *Selection) Permalink(supported bool) string {
	cur := s.Value()
	if cur.Version == 0 || !supported {
		return ""
	}
	return cur.Fragment()
}
