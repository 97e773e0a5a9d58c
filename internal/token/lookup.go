package token

// ClassSet answers whether a class file ("pkg/Name.class") exists in the
// loaded archive.
type ClassSet interface {
	HasClass(classFile string) bool
}

// Definition finds the navigable reference at offset. tokens must be sorted
// by Start. A reference whose outer class is not in classes is treated as a
// library reference and skipped. A nil classes disables that check.
func Definition(tokens []Token, offset int, classes ClassSet) (Token, bool) {
	for _, t := range tokens {
		if t.Start > offset {
			break
		}
		if t.Declaration || !t.Spans(offset) {
			continue
		}
		if classes != nil && !classes.HasClass(t.OuterClass()+".class") {
			continue
		}
		return t, true
	}
	return Token{}, false
}

// At returns the first token, declaration or reference, spanning offset.
func At(tokens []Token, offset int) (Token, bool) {
	for _, t := range tokens {
		if t.Start > offset {
			break
		}
		if t.Spans(offset) {
			return t, true
		}
	}
	return Token{}, false
}

// Declarations returns the declaration tokens in source order.
func Declarations(tokens []Token) []Token {
	var out []Token
	for _, t := range tokens {
		if t.Declaration {
			out = append(out, t)
		}
	}
	return out
}
