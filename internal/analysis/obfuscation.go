package analysis

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// EncodingKind describes how a name token was encoded
type EncodingKind string

const (
	EncodingHex  EncodingKind = "hex"
	EncodingNone EncodingKind = "none"
)

// ObfuscationLevel grades how much of a document's name vocabulary is escaped
type ObfuscationLevel string

const (
	ObfuscationNone     ObfuscationLevel = "none"
	ObfuscationLight    ObfuscationLevel = "light"
	ObfuscationModerate ObfuscationLevel = "moderate"
	ObfuscationHeavy    ObfuscationLevel = "heavy"
)

const (
	confidenceSensitive = 0.95
	confidenceKeyword   = 0.75
	confidenceGeneric   = 0.4

	// findings above this are listed as suspicious in the report
	suspiciousConfidence = 0.7
)

var (
	nameTokenRegex = regexp.MustCompile(`/[A-Za-z0-9#]+`)
	plainNameRegex = regexp.MustCompile(`/[A-Za-z][A-Za-z0-9]*`)

	suspiciousKeywords = []string{"java", "script", "action", "launch", "form", "embed"}

	errNulEscape = errors.New("name contains #00 escape")
)

// ObfuscationFinding is one hex-escaped name token and its decoded form
type ObfuscationFinding struct {
	OriginalToken string       `json:"original_token"`
	DecodedToken  string       `json:"decoded_token"`
	Encoding      EncodingKind `json:"encoding"`
	Confidence    float64      `json:"confidence"`
	Offset        int          `json:"offset"`
}

// ObfuscationReport summarizes name obfuscation across a document
type ObfuscationReport struct {
	HasObfuscation bool                 `json:"has_obfuscation"`
	Level          ObfuscationLevel     `json:"level"`
	TotalNames     int                  `json:"total_names"`
	Findings       []ObfuscationFinding `json:"findings"`
	Suspicious     []ObfuscationFinding `json:"suspicious,omitempty"`
	Notes          []string             `json:"notes,omitempty"`
	Deobfuscated   string               `json:"-"`
}

// DetectNameObfuscation scans text for name tokens containing #XX escapes
// and returns the ones where at least one escape decoded.
func DetectNameObfuscation(text string) []ObfuscationFinding {
	var findings []ObfuscationFinding

	for _, loc := range nameTokenRegex.FindAllStringIndex(text, -1) {
		token := text[loc[0]:loc[1]]
		if !strings.Contains(token, "#") {
			continue
		}
		decoded, ok := DecodeName(token)
		if !ok {
			continue
		}
		findings = append(findings, ObfuscationFinding{
			OriginalToken: token,
			DecodedToken:  decoded,
			Encoding:      EncodingHex,
			Confidence:    obfuscationConfidence(decoded),
			Offset:        loc[0],
		})
	}

	return findings
}

// DecodeName decodes #XX escapes in a name token such as /J#61vaScript. It
// reports false when nothing was substituted or the token is malformed.
func DecodeName(token string) (string, bool) {
	raw, substituted, err := decodeNameBytes(token)
	if err != nil || substituted == 0 {
		return token, false
	}
	// escaped bytes are Latin-1 code points, matching the document's text view
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return token, false
	}
	return string(decoded), true
}

func decodeNameBytes(token string) ([]byte, int, error) {
	if !strings.HasPrefix(token, "/") {
		return nil, 0, fmt.Errorf("not a name token: %q", token)
	}
	body := token[1:]
	out := make([]byte, 0, len(token))
	out = append(out, '/')
	substituted := 0

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '#' && i+2 < len(body) && isHexDigit(body[i+1]) && isHexDigit(body[i+2]) {
			b := unhex(body[i+1])<<4 | unhex(body[i+2])
			if b == 0 {
				return nil, 0, errNulEscape
			}
			out = append(out, b)
			substituted++
			i += 2
			continue
		}
		out = append(out, c)
	}

	return out, substituted, nil
}

func obfuscationConfidence(decoded string) float64 {
	if isSensitiveName(decoded) {
		return confidenceSensitive
	}
	lower := strings.ToLower(decoded)
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			return confidenceKeyword
		}
	}
	return confidenceGeneric
}

// AnalyzeObfuscation grades obfuscation by the share of escaped names and
// produces a deobfuscated copy of the text.
func AnalyzeObfuscation(text string) ObfuscationReport {
	findings := DetectNameObfuscation(text)
	total := len(plainNameRegex.FindAllStringIndex(text, -1))

	report := ObfuscationReport{
		HasObfuscation: len(findings) > 0,
		Level:          ObfuscationNone,
		TotalNames:     total,
		Findings:       findings,
		Deobfuscated:   deobfuscate(text, findings),
	}

	ratio := 0.0
	if total > 0 {
		ratio = float64(len(findings)) / float64(total)
	}

	switch {
	case ratio == 0:
		report.Level = ObfuscationNone
	case ratio < 0.1:
		report.Level = ObfuscationLight
		report.Notes = append(report.Notes,
			fmt.Sprintf("Light obfuscation detected: %d of %d names encoded", len(findings), total))
	case ratio < 0.3:
		report.Level = ObfuscationModerate
		report.Notes = append(report.Notes,
			fmt.Sprintf("Moderate obfuscation detected: %d of %d names encoded", len(findings), total))
	default:
		report.Level = ObfuscationHeavy
		report.Notes = append(report.Notes,
			fmt.Sprintf("Heavy obfuscation detected: %d of %d names encoded", len(findings), total))
	}

	var pairs []string
	for _, f := range findings {
		if f.Confidence > suspiciousConfidence {
			report.Suspicious = append(report.Suspicious, f)
			pairs = append(pairs, f.OriginalToken+" -> "+f.DecodedToken)
		}
	}
	if len(pairs) > 0 {
		report.Notes = append(report.Notes,
			"Suspicious obfuscated names detected: "+strings.Join(pairs, ", "))
	}

	return report
}

// deobfuscate splices decoded names back in at their original offsets
func deobfuscate(text string, findings []ObfuscationFinding) string {
	if len(findings) == 0 {
		return text
	}
	var sb strings.Builder
	last := 0
	for _, f := range findings {
		sb.WriteString(text[last:f.Offset])
		sb.WriteString(f.DecodedToken)
		last = f.Offset + len(f.OriginalToken)
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// NamePattern matches a PDF name either literally or with any of its
// characters written as a #XX escape, e.g. /JavaScript and /J#61va#53cript.
// Matches must be followed by a name delimiter or the end of text.
type NamePattern struct {
	target string
}

// NewNamePattern builds an obfuscation-aware pattern for a literal name
func NewNamePattern(target string) NamePattern {
	return NamePattern{target: target}
}

// Target returns the literal name the pattern was built from
func (p NamePattern) Target() string {
	return p.target
}

// Index returns the offset and byte length of the first match at or after
// from, or (-1, 0).
func (p NamePattern) Index(text string, from int) (int, int) {
	if p.target == "" || from < 0 {
		return -1, 0
	}
	first := p.target[0]
	for i := from; i < len(text); i++ {
		if text[i] != first {
			continue
		}
		if n, ok := p.MatchAt(text, i); ok {
			return i, n
		}
	}
	return -1, 0
}

// MatchAt reports whether the pattern matches at text[pos:] and the number
// of bytes consumed.
func (p NamePattern) MatchAt(text string, pos int) (int, bool) {
	j := pos
	for k := 0; k < len(p.target); k++ {
		want := p.target[k]
		if j < len(text) && text[j] == want {
			j++
			continue
		}
		// the leading solidus is never escaped
		if want == '/' {
			return 0, false
		}
		if j+2 < len(text) && text[j] == '#' && isHexDigit(text[j+1]) && isHexDigit(text[j+2]) &&
			unhex(text[j+1])<<4|unhex(text[j+2]) == want {
			j += 3
			continue
		}
		return 0, false
	}
	if j < len(text) && !IsNameDelimiter(text[j]) {
		return 0, false
	}
	return j - pos, true
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
