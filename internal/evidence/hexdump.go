// Package evidence renders byte-exact hex/ASCII dumps around a match so that
// every finding can be verified against the original document bytes.
package evidence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// DefaultBefore is the number of bytes shown ahead of a match
	DefaultBefore = 32
	// DefaultAfter is the number of bytes shown from the match onwards
	DefaultAfter = 1024
	// DefaultMaxLines bounds a block to roughly 10 KiB of dumped data
	DefaultMaxLines = 640

	bytesPerLine = 16
	// 16 two-digit bytes plus 15 separators
	hexColumnWidth = bytesPerLine*3 - 1
	// "XXXXXXXX  " offset prefix
	hexColumnStart = 10
	// hex column followed by " |"
	asciiColumnStart = hexColumnStart + hexColumnWidth + 2

	separatorWidth = 120
)

// Span marks a highlighted column range within a rendered line
type Span struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// Line is one rendered 16-byte row. Highlight spans are set only when the
// row overlaps the matched bytes.
type Line struct {
	Offset         int    `json:"-"`
	Text           string `json:"line"`
	HexHighlight   *Span  `json:"hexHighlight,omitempty"`
	ASCIIHighlight *Span  `json:"asciiHighlight,omitempty"`
}

// Block is the evidence artifact attached to a finding
type Block struct {
	MatchOffset int    `json:"match_offset"`
	MatchLength int    `json:"match_length"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Lines       []Line `json:"lines"`
}

// Formatter controls the dump window. The zero value is not useful; use
// NewFormatter or the package level Format.
type Formatter struct {
	Before   int
	After    int
	MaxLines int
}

// NewFormatter returns a formatter with the default window
func NewFormatter() Formatter {
	return Formatter{
		Before:   DefaultBefore,
		After:    DefaultAfter,
		MaxLines: DefaultMaxLines,
	}
}

// Format renders evidence for buf[offset:offset+matchLength] using the
// default window.
func Format(buf []byte, offset, matchLength int) Block {
	return NewFormatter().Format(buf, offset, matchLength)
}

// Format renders evidence for a match. Offsets outside the buffer are clamped
// and the formatter never reads outside [0, len(buf)).
func (f Formatter) Format(buf []byte, offset, matchLength int) Block {
	offset = clamp(offset, 0, len(buf))
	if matchLength < 0 {
		matchLength = 0
	}

	start := clamp(offset-f.Before, 0, len(buf))
	end := clamp(offset+f.After, start, len(buf))

	block := Block{
		MatchOffset: offset,
		MatchLength: matchLength,
		Start:       start,
		End:         end,
	}

	matchEnd := offset + matchLength
	for lineStart := start; lineStart < end; lineStart += bytesPerLine {
		if f.MaxLines > 0 && len(block.Lines) >= f.MaxLines {
			break
		}
		lineEnd := lineStart + bytesPerLine
		if lineEnd > end {
			lineEnd = end
		}
		chunk := buf[lineStart:lineEnd]

		line := Line{
			Offset: lineStart,
			Text:   renderLine(lineStart, chunk),
		}

		if offset < lineEnd && matchEnd > lineStart {
			hs := maxInt(0, offset-lineStart)
			he := minInt(len(chunk), matchEnd-lineStart)
			n := he - hs
			line.HexHighlight = &Span{
				Start:  hexColumnStart + hs*3,
				Length: maxInt(0, n*3-1),
			}
			line.ASCIIHighlight = &Span{
				Start:  asciiColumnStart + hs,
				Length: n,
			}
		}

		block.Lines = append(block.Lines, line)
	}

	return block
}

// BytesShown returns the number of buffer bytes covered by the rendered lines.
// The header's BYTES_SHOWN counts whole lines and may exceed it.
func (b Block) BytesShown() int {
	if len(b.Lines) == 0 {
		return 0
	}
	last := b.Lines[len(b.Lines)-1]
	lastEnd := minInt(last.Offset+bytesPerLine, b.End)
	return lastEnd - b.Start
}

// Header returns the three summary lines that precede the dump
func (b Block) Header() []string {
	chunkSize := b.End - b.Start
	before := b.MatchOffset - b.Start
	after := chunkSize - before

	return []string{
		fmt.Sprintf("MATCH_OFFSET: 0x%08X | CHUNK_SIZE: %d bytes | RANGE: 0x%X-0x%X",
			b.MatchOffset, chunkSize, b.Start, b.End),
		fmt.Sprintf("CONTEXT: %dB before + %dB after | RELATIVE_POS: +%d",
			before, after, before),
		fmt.Sprintf("HEX_LINES: %d | BYTES_SHOWN: %d | ANALYSIS: PDF_OBJECT_STRUCTURE",
			len(b.Lines), len(b.Lines)*bytesPerLine),
	}
}

// String renders the interchange text: header, a separator rule, then one
// JSON object per dump line carrying the line text and its highlight spans.
func (b Block) String() string {
	var sb strings.Builder
	for _, h := range b.Header() {
		sb.WriteString(h)
		sb.WriteByte('\n')
	}
	sb.WriteString(strings.Repeat("=", separatorWidth))

	for _, line := range b.Lines {
		sb.WriteByte('\n')
		sb.WriteString(line.JSON())
	}
	return sb.String()
}

// JSON encodes the line without HTML escaping so '>' and '<' stay literal
func (l Line) JSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(l); err != nil {
		// Line only holds strings and ints
		return l.Text
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderLine(offset int, chunk []byte) string {
	hexParts := make([]string, len(chunk))
	ascii := make([]byte, len(chunk))
	for i, c := range chunk {
		hexParts[i] = fmt.Sprintf("%02X", c)
		if c >= 0x20 && c <= 0x7E {
			ascii[i] = c
		} else {
			ascii[i] = '.'
		}
	}
	return fmt.Sprintf("%08X  %-*s |%s|", offset, hexColumnWidth, strings.Join(hexParts, " "), ascii)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
