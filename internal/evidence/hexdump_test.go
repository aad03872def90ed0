package evidence

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_LiteralOutput(t *testing.T) {
	buf := []byte("%PDF-1.4\n1 0 obj\n<< /S /JavaScript >>\nendobj\n")
	offset := bytes.Index(buf, []byte("/JavaScript"))
	require.Equal(t, 23, offset)

	expected := strings.Join([]string{
		"MATCH_OFFSET: 0x00000017 | CHUNK_SIZE: 45 bytes | RANGE: 0x0-0x2D",
		"CONTEXT: 23B before + 22B after | RELATIVE_POS: +23",
		"HEX_LINES: 3 | BYTES_SHOWN: 48 | ANALYSIS: PDF_OBJECT_STRUCTURE",
		strings.Repeat("=", 120),
		`{"line":"00000000  25 50 44 46 2D 31 2E 34 0A 31 20 30 20 6F 62 6A |%PDF-1.4.1 0 obj|"}`,
		`{"line":"00000010  0A 3C 3C 20 2F 53 20 2F 4A 61 76 61 53 63 72 69 |.<< /S /JavaScri|",` +
			`"hexHighlight":{"start":31,"length":26},"asciiHighlight":{"start":66,"length":9}}`,
		`{"line":"00000020  70 74 20 3E 3E 0A 65 6E 64 6F 62 6A 0A          |pt >>.endobj.|",` +
			`"hexHighlight":{"start":10,"length":5},"asciiHighlight":{"start":59,"length":2}}`,
	}, "\n")

	block := Format(buf, offset, len("/JavaScript"))
	assert.Equal(t, expected, block.String())
}

func TestBlock_HeaderCountsWholeLines(t *testing.T) {
	buf := bytes.Repeat([]byte("x"), 45)
	block := Format(buf, 23, 11)

	assert.Equal(t, 45, block.BytesShown())
	assert.Equal(t, "HEX_LINES: 3 | BYTES_SHOWN: 48 | ANALYSIS: PDF_OBJECT_STRUCTURE", block.Header()[2])
}

func TestFormat_Idempotent(t *testing.T) {
	buf := bytes.Repeat([]byte("0123456789abcdef"), 200)
	first := Format(buf, 1000, 7).String()
	second := Format(buf, 1000, 7).String()
	assert.Equal(t, first, second)
}

func TestFormat_Window(t *testing.T) {
	buf := bytes.Repeat([]byte{0x00, 0x41}, 2000)

	tests := []struct {
		name      string
		offset    int
		wantStart int
		wantEnd   int
	}{
		{name: "start of buffer", offset: 0, wantStart: 0, wantEnd: 1024},
		{name: "middle", offset: 2000, wantStart: 1968, wantEnd: 3024},
		{name: "near end", offset: 3990, wantStart: 3958, wantEnd: 4000},
		{name: "at end", offset: 4000, wantStart: 3968, wantEnd: 4000},
		{name: "beyond end clamps", offset: 9000, wantStart: 3968, wantEnd: 4000},
		{name: "negative clamps", offset: -5, wantStart: 0, wantEnd: 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := Format(buf, tt.offset, 4)
			assert.Equal(t, tt.wantStart, block.Start)
			assert.Equal(t, tt.wantEnd, block.End)
			assert.LessOrEqual(t, len(block.Lines), DefaultMaxLines)
			assert.Equal(t, tt.wantEnd-tt.wantStart, block.BytesShown())
		})
	}
}

func TestFormat_LineCap(t *testing.T) {
	buf := make([]byte, 64*1024)
	f := Formatter{Before: 0, After: len(buf), MaxLines: DefaultMaxLines}

	block := f.Format(buf, 0, 1)
	assert.Len(t, block.Lines, DefaultMaxLines)
	assert.Equal(t, DefaultMaxLines*16, block.BytesShown())
}

func TestFormat_EmptyBuffer(t *testing.T) {
	block := Format(nil, 0, 3)
	assert.Empty(t, block.Lines)
	assert.Equal(t, 0, block.BytesShown())
	assert.Contains(t, block.String(), "MATCH_OFFSET: 0x00000000 | CHUNK_SIZE: 0 bytes")
}

func TestFormat_HighlightSpansLines(t *testing.T) {
	buf := bytes.Repeat([]byte("x"), 64)
	// match covers the last 2 bytes of row 0 and first 3 bytes of row 1
	block := Format(buf, 14, 5)
	require.Len(t, block.Lines, 4)

	require.NotNil(t, block.Lines[0].HexHighlight)
	assert.Equal(t, Span{Start: 10 + 14*3, Length: 5}, *block.Lines[0].HexHighlight)
	assert.Equal(t, Span{Start: 59 + 14, Length: 2}, *block.Lines[0].ASCIIHighlight)

	require.NotNil(t, block.Lines[1].HexHighlight)
	assert.Equal(t, Span{Start: 10, Length: 8}, *block.Lines[1].HexHighlight)
	assert.Equal(t, Span{Start: 59, Length: 3}, *block.Lines[1].ASCIIHighlight)

	assert.Nil(t, block.Lines[2].HexHighlight)
	assert.Nil(t, block.Lines[3].ASCIIHighlight)
}

func TestRenderLine_NonPrintable(t *testing.T) {
	line := renderLine(0x20, []byte{0x00, 0x7F, 0x20, 0x7E, 0xFF})
	assert.Equal(t, "00000020  00 7F 20 7E FF"+strings.Repeat(" ", 34)+"|.. ~.|", line)
}
