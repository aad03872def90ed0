// Package analysis implements PDFiD-style triage over the raw text view of a
// PDF: name token counting, risk scoring, structure signals, fingerprints,
// and detection of hex-escaped (#XX) name obfuscation.
//
// All functions are pure over their input and safe for concurrent use.
package analysis

import "strings"

// SensitiveNames are the PDF names associated with active content. A
// hex-escaped name decoding to one of these is almost certainly evasion.
var SensitiveNames = []string{
	"/JavaScript", "/JS", "/AA", "/OpenAction", "/Launch", "/URI",
	"/SubmitForm", "/GoTo", "/GoToR", "/Named", "/JBIG2Decode",
	"/RichMedia", "/XFA", "/EmbeddedFile", "/Filespec",
}

// IsNameDelimiter reports whether c may follow a name token for it to count
// as a complete name: whitespace or the '>' of a closing dictionary.
func IsNameDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r', '>':
		return true
	}
	return false
}

// IndexName returns the offset of the first occurrence of token at or after
// from that is followed by a delimiter or the end of text, or -1.
func IndexName(text, token string, from int) int {
	if token == "" || from < 0 {
		return -1
	}
	for i := from; i <= len(text)-len(token); {
		j := strings.Index(text[i:], token)
		if j < 0 {
			return -1
		}
		pos := i + j
		end := pos + len(token)
		if end == len(text) || IsNameDelimiter(text[end]) {
			return pos
		}
		i = pos + 1
	}
	return -1
}

// CountName counts the delimited occurrences of token in text
func CountName(text, token string) int {
	count := 0
	for pos := IndexName(text, token, 0); pos >= 0; pos = IndexName(text, token, pos+len(token)) {
		count++
	}
	return count
}

func isSensitiveName(name string) bool {
	for _, n := range SensitiveNames {
		if n == name {
			return true
		}
	}
	return false
}
