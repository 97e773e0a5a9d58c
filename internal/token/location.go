package token

import "strings"

// Location is a 1-based editor position.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Length int `json:"length"`
}

// Locate converts a token's offset into a line/column position.
func Locate(source string, t Token) Location {
	start := t.Start
	if start > len(source) {
		start = len(source)
	}
	if start < 0 {
		start = 0
	}
	upTo := source[:start]
	return Location{
		Line:   strings.Count(upTo, "\n") + 1,
		Column: len(upTo) - strings.LastIndexByte(upTo, '\n'),
		Length: t.Length,
	}
}

// OffsetAt converts a 1-based line/column into a source offset.
func OffsetAt(source string, line, column int) int {
	offset := 0
	rest := source
	for i := 1; i < line; i++ {
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			offset += len(rest) + 1
			rest = ""
			continue
		}
		offset += nl + 1
		rest = rest[nl+1:]
	}
	return offset + column - 1
}
