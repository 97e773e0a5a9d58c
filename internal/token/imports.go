package token

import (
	"regexp"
	"strings"
)

// A static import stops the path group at "static", after which the
// required ";" cannot match, so static imports never produce a token.
var importPattern = regexp.MustCompile(`(?m)^\s*import\s+([^\s;]+)\s*;`)

// ImportTokens synthesizes class reference tokens for the simple names in
// non-static, non-wildcard import statements.
func ImportTokens(source string) []Token {
	var out []Token
	for _, m := range importPattern.FindAllStringSubmatchIndex(source, -1) {
		whole := source[m[0]:m[1]]
		importPath := strings.ReplaceAll(source[m[2]:m[3]], ".", "/")
		if strings.HasSuffix(importPath, "*") {
			continue
		}
		simple := SimpleName(importPath)
		if simple == "" {
			continue
		}
		out = append(out, Token{
			Type:      Class,
			Start:     m[0] + strings.LastIndex(whole, simple),
			Length:    len(importPath) - strings.LastIndex(importPath, simple),
			ClassName: importPath,
		})
	}
	return out
}
