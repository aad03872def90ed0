package detection

import (
	"strings"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/analysis"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/evidence"
)

// Document is an immutable PDF byte buffer with a byte-preserving text view.
// Offsets into Text are always valid offsets into Bytes.
type Document struct {
	bytes []byte
	text  string
}

// NewDocument wraps buf. A Go string conversion copies bytes one to one, so
// the text view has the same length and indexing as the buffer.
func NewDocument(buf []byte) Document {
	return Document{bytes: buf, text: string(buf)}
}

// Bytes returns the original buffer
func (d Document) Bytes() []byte {
	return d.bytes
}

// Text returns the byte-preserving text view
func (d Document) Text() string {
	return d.text
}

// Len returns the document size in bytes
func (d Document) Len() int {
	return len(d.bytes)
}

// Finding is one located indicator with its evidence
type Finding struct {
	Name     string          `json:"name"`
	Token    string          `json:"token,omitempty"`
	Offset   int             `json:"offset"`
	Length   int             `json:"length"`
	Evidence *evidence.Block `json:"-"`
}

// EvidenceText renders the evidence block, or "" when none is attached
func (f Finding) EvidenceText() string {
	if f.Evidence == nil {
		return ""
	}
	return f.Evidence.String()
}

// matcher locates the first occurrence of its token in text
type matcher func(text string) (offset, length int)

// Registry is an ordered set of independent indicator matchers
type Registry struct {
	indicators       []Indicator
	formatter        evidence.Formatter
	obfuscationAware bool
	matchers         []matcher
}

// Option configures a Registry
type Option func(*Registry)

// WithIndicators replaces the indicator table
func WithIndicators(indicators []Indicator) Option {
	return func(r *Registry) {
		r.indicators = append([]Indicator(nil), indicators...)
	}
}

// WithFormatter sets the evidence window
func WithFormatter(f evidence.Formatter) Option {
	return func(r *Registry) {
		r.formatter = f
	}
}

// WithObfuscationAware makes every matcher also accept names written with
// #XX escapes, e.g. /J#61vaScript for /JavaScript.
func WithObfuscationAware() Option {
	return func(r *Registry) {
		r.obfuscationAware = true
	}
}

// New creates a registry over the default indicator table
func New(opts ...Option) *Registry {
	r := &Registry{
		indicators: DefaultIndicators(),
		formatter:  evidence.NewFormatter(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.matchers = make([]matcher, len(r.indicators))
	for i, ind := range r.indicators {
		r.matchers[i] = r.buildMatcher(ind)
	}
	return r
}

// Default returns a registry with the default table and literal matching
func Default() *Registry {
	return New()
}

// Indicators returns a copy of the registered indicator table
func (r *Registry) Indicators() []Indicator {
	return append([]Indicator(nil), r.indicators...)
}

// DetectAll runs every matcher over buf in registration order and returns
// at most one finding per matcher. It never fails; a clean document yields
// an empty list.
func (r *Registry) DetectAll(buf []byte) []Finding {
	return r.Detect(NewDocument(buf))
}

// Detect is DetectAll over an already wrapped document
func (r *Registry) Detect(doc Document) []Finding {
	findings := []Finding{}
	text := doc.Text()

	for i, match := range r.matchers {
		offset, length := match(text)
		if offset < 0 {
			continue
		}
		block := r.formatter.Format(doc.Bytes(), offset, length)
		findings = append(findings, Finding{
			Name:     r.indicators[i].Name,
			Token:    text[offset : offset+length],
			Offset:   offset,
			Length:   length,
			Evidence: &block,
		})
	}

	return findings
}

func (r *Registry) buildMatcher(ind Indicator) matcher {
	match := r.tokenMatcher(ind)
	if !ind.IncludeDelimiter {
		return match
	}
	return func(text string) (int, int) {
		offset, length := match(text)
		if offset >= 0 && offset+length < len(text) && analysis.IsNameDelimiter(text[offset+length]) {
			length++
		}
		return offset, length
	}
}

func (r *Registry) tokenMatcher(ind Indicator) matcher {
	if r.obfuscationAware && ind.Boundary == BoundaryDelimited {
		pattern := analysis.NewNamePattern(ind.Token)
		return func(text string) (int, int) {
			return pattern.Index(text, 0)
		}
	}

	token := ind.Token
	if ind.Boundary == BoundaryNone {
		return func(text string) (int, int) {
			pos := strings.Index(text, token)
			if pos < 0 {
				return -1, 0
			}
			return pos, len(token)
		}
	}
	return func(text string) (int, int) {
		pos := analysis.IndexName(text, token, 0)
		if pos < 0 {
			return -1, 0
		}
		return pos, len(token)
	}
}
