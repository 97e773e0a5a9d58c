package token

// Collector receives token callbacks from a decompiler engine. Start is
// called once before any visit with the final source text, End once after.
type Collector interface {
	Start(content string)
	VisitClass(start, length int, declaration bool, name string)
	VisitField(start, length int, declaration bool, className, name, descriptor string)
	VisitMethod(start, length int, declaration bool, className, name, descriptor string)
	VisitParameter(start, length int, declaration bool, className, methodName, methodDescriptor string, index int, name string)
	VisitLocal(start, length int, declaration bool, className, methodName, methodDescriptor string, index int, name string)
	End()
}

// Recorder is a Collector that keeps every visited token.
type Recorder struct {
	content string
	tokens  []Token
	ended   bool
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Start(content string) {
	r.content = content
	r.tokens = r.tokens[:0]
	r.ended = false
}

func (r *Recorder) VisitClass(start, length int, declaration bool, name string) {
	r.tokens = append(r.tokens, Token{Type: Class, Start: start, Length: length, ClassName: name, Declaration: declaration})
}

func (r *Recorder) VisitField(start, length int, declaration bool, className, name, descriptor string) {
	r.tokens = append(r.tokens, Token{Type: Field, Start: start, Length: length, ClassName: className, Declaration: declaration, Name: name, Descriptor: descriptor})
}

func (r *Recorder) VisitMethod(start, length int, declaration bool, className, name, descriptor string) {
	r.tokens = append(r.tokens, Token{Type: Method, Start: start, Length: length, ClassName: className, Declaration: declaration, Name: name, Descriptor: descriptor})
}

// Parameters and locals keep the enclosing method descriptor so that two
// overloads never share a key.
func (r *Recorder) VisitParameter(start, length int, declaration bool, className, methodName, methodDescriptor string, index int, name string) {
	r.tokens = append(r.tokens, Token{Type: Parameter, Start: start, Length: length, ClassName: className, Declaration: declaration, Name: name, Descriptor: methodName + methodDescriptor})
}

func (r *Recorder) VisitLocal(start, length int, declaration bool, className, methodName, methodDescriptor string, index int, name string) {
	r.tokens = append(r.tokens, Token{Type: Local, Start: start, Length: length, ClassName: className, Declaration: declaration, Name: name, Descriptor: methodName + methodDescriptor})
}

func (r *Recorder) End() { r.ended = true }

// Tokens returns the recorded tokens in visit order.
func (r *Recorder) Tokens() []Token {
	return append([]Token(nil), r.tokens...)
}

// Content returns the source passed to Start.
func (r *Recorder) Content() string { return r.content }

// Ended reports whether End was called.
func (r *Recorder) Ended() bool { return r.ended }
