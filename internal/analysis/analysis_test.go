package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanPDF = "%PDF-1.4\n" +
	"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
	"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
	"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n" +
	"xref\n0 4\n0000000000 65535 f \n" +
	"trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n178\n%%EOF\n"

func TestIndexName(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		token string
		want  int
	}{
		{name: "followed by space", text: "<< /JS (x) >>", token: "/JS", want: 3},
		{name: "followed by gt", text: "<</JS>>", token: "/JS", want: 2},
		{name: "end of text", text: "abc /JS", token: "/JS", want: 4},
		{name: "longer identifier skipped", text: "/JavaScriptX /JavaScript>", token: "/JavaScript", want: 13},
		{name: "followed by solidus", text: "/JS/Other", token: "/JS", want: -1},
		{name: "followed by paren", text: "/JS(alert)", token: "/JS", want: -1},
		{name: "absent", text: "nothing here", token: "/JS", want: -1},
		{name: "empty token", text: "abc", token: "", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IndexName(tt.text, tt.token, 0))
		})
	}
}

func TestCountName(t *testing.T) {
	assert.Equal(t, 3, CountName("/JS /JS>/JS/JSX /JS", "/JS"))
	assert.Equal(t, 0, CountName("", "/JS"))
	assert.Equal(t, 1, CountName("/Type /Page /Parent", "/Page"))
	assert.Equal(t, 0, CountName("/Type /Pages", "/Page"))
}

func TestDecodeName(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    string
		decoded bool
	}{
		{name: "javascript", token: "/J#61vaScript", want: "/JavaScript", decoded: true},
		{name: "upper and lower hex", token: "/#4aava#53cript", want: "/JavaScript", decoded: true},
		{name: "no escapes", token: "/JavaScript", want: "/JavaScript", decoded: false},
		{name: "invalid hex stays literal", token: "/Plain#zz", want: "/Plain#zz", decoded: false},
		{name: "trailing hash", token: "/Name#", want: "/Name#", decoded: false},
		{name: "nul escape is malformed", token: "/Bad#00Name", want: "/Bad#00Name", decoded: false},
		{name: "not a name", token: "JavaScript", want: "JavaScript", decoded: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeName(tt.token)
			assert.Equal(t, tt.decoded, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectNameObfuscation(t *testing.T) {
	text := "<< /S /J#61vaScript /T /My#46orm /U /Some#20Name /V /Bad#00 /W /Plain#zz >>"

	findings := DetectNameObfuscation(text)
	require.Len(t, findings, 3)

	assert.Equal(t, ObfuscationFinding{
		OriginalToken: "/J#61vaScript",
		DecodedToken:  "/JavaScript",
		Encoding:      EncodingHex,
		Confidence:    0.95,
		Offset:        6,
	}, findings[0])

	assert.Equal(t, "/MyForm", findings[1].DecodedToken)
	assert.Equal(t, 0.75, findings[1].Confidence)

	assert.Equal(t, "/Some Name", findings[2].DecodedToken)
	assert.Equal(t, 0.4, findings[2].Confidence)

	for _, f := range findings {
		assert.Equal(t, f.OriginalToken, text[f.Offset:f.Offset+len(f.OriginalToken)])
	}
}

func TestAnalyzeObfuscation(t *testing.T) {
	t.Run("moderate with suspicious name", func(t *testing.T) {
		text := "<< /S /J#61vaScript /Type /Action >>"
		report := AnalyzeObfuscation(text)

		assert.True(t, report.HasObfuscation)
		assert.Equal(t, 4, report.TotalNames)
		assert.Equal(t, ObfuscationModerate, report.Level)
		require.Len(t, report.Suspicious, 1)
		assert.Equal(t, "<< /S /JavaScript /Type /Action >>", report.Deobfuscated)
		assert.Equal(t, []string{
			"Moderate obfuscation detected: 1 of 4 names encoded",
			"Suspicious obfuscated names detected: /J#61vaScript -> /JavaScript",
		}, report.Notes)
	})

	t.Run("clean document", func(t *testing.T) {
		report := AnalyzeObfuscation(cleanPDF)
		assert.False(t, report.HasObfuscation)
		assert.Equal(t, ObfuscationNone, report.Level)
		assert.Empty(t, report.Findings)
		assert.Empty(t, report.Notes)
		assert.Equal(t, cleanPDF, report.Deobfuscated)
	})

	t.Run("heavy", func(t *testing.T) {
		report := AnalyzeObfuscation("/J#61vaScript /L#61unch")
		assert.Equal(t, ObfuscationHeavy, report.Level)
		assert.Len(t, report.Suspicious, 2)
	})
}

func TestNamePattern(t *testing.T) {
	p := NewNamePattern("/JavaScript")
	assert.Equal(t, "/JavaScript", p.Target())

	tests := []struct {
		name    string
		text    string
		wantPos int
		wantLen int
	}{
		{name: "literal", text: "<< /S /JavaScript >>", wantPos: 6, wantLen: 11},
		{name: "escaped", text: "x /J#61va#53cript>", wantPos: 2, wantLen: 15},
		{name: "escaped at end", text: "/J#61vaScript", wantPos: 0, wantLen: 13},
		{name: "lowercase hex digits", text: "/#4aavaScript ", wantPos: 0, wantLen: 13},
		{name: "longer identifier", text: "/JavaScriptX", wantPos: -1, wantLen: 0},
		{name: "letter case differs", text: "/javascript ", wantPos: -1, wantLen: 0},
		{name: "escaped solidus rejected", text: "#2FJavaScript ", wantPos: -1, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, n := p.Index(tt.text, 0)
			assert.Equal(t, tt.wantPos, pos)
			assert.Equal(t, tt.wantLen, n)
		})
	}
}

func TestScorer_TierBoundaries(t *testing.T) {
	s := NewScorer()
	tests := []struct {
		score int
		want  Tier
	}{
		{0, TierLow},
		{19, TierLow},
		{20, TierMedium},
		{49, TierMedium},
		{50, TierHigh},
		{79, TierHigh},
		{80, TierCritical},
		{500, TierCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Tier(tt.score), "score %d", tt.score)
	}
}

func TestAssess_CleanDocument(t *testing.T) {
	ra := Assess([]byte(cleanPDF))

	assert.Equal(t, 0, ra.Score)
	assert.Equal(t, TierLow, ra.Tier)
	assert.Equal(t, []string{"LOW RISK: Minimal suspicious indicators"}, ra.Rationale)

	assert.Equal(t, 3, ra.Count(TokenObj))
	assert.Equal(t, 3, ra.Count(TokenEndobj))
	assert.Equal(t, 1, ra.Count(TokenXref))
	assert.Equal(t, 1, ra.Count(TokenTrailer))
	assert.Equal(t, 1, ra.Count(TokenStartxref))
	assert.Equal(t, 1, ra.Count(TokenPage))
	for _, name := range suspiciousNames {
		assert.Zero(t, ra.SuspiciousCounts[name], name)
	}
}

func TestAssess_JavaScriptWithOpenAction(t *testing.T) {
	doc := "%PDF-1.7\n" +
		"1 0 obj\n<< /Type /Catalog /OpenAction 2 0 R >>\nendobj\n" +
		"2 0 obj\n<< /S /JavaScript /JS (app.alert(1)) >>\nendobj\n"

	ra := Assess([]byte(doc))

	assert.GreaterOrEqual(t, ra.Score, 120)
	assert.Equal(t, TierCritical, ra.Tier)
	require.NotEmpty(t, ra.Rationale)
	assert.Equal(t, "CRITICAL: Multiple high-risk indicators - likely malicious", ra.Rationale[0])
	assert.Contains(t, ra.Rationale, "JavaScript detected (2 occurrences) - high risk")
	assert.Contains(t, ra.Rationale, "Automatic actions detected (1 occurrences) - automatic execution")
	assert.Contains(t, ra.Rationale, "JavaScript + Automatic actions - extremely suspicious combination")
}

func TestAssess_EmbeddedFileTiers(t *testing.T) {
	doc := "%PDF-1.7\n" +
		"1 0 obj\n<< /Type /Filespec /F (a.txt) /EF << /F 2 0 R >> >>\nendobj\n" +
		"2 0 obj\n<< /Type /EmbeddedFile /Length 4 >>\nstream\nabcd\nendstream\nendobj\n"

	ra := Assess([]byte(doc))

	assert.Equal(t, 15, ra.Score)
	assert.Equal(t, TierLow, ra.Tier)
	assert.Equal(t, 1, ra.SuspiciousCounts[TokenFilespec])
	assert.Equal(t, 1, ra.SuspiciousCounts[TokenEmbeddedFile])

	withURI := doc + "3 0 obj\n<< /S /URI /URI (http://example.com) >>\nendobj\n"
	ra = Assess([]byte(withURI))
	assert.Equal(t, 30, ra.Score)
	assert.Equal(t, TierMedium, ra.Tier)
	assert.Equal(t, "MEDIUM RISK: Some suspicious features detected", ra.Rationale[0])
}

func TestAssess_Monotonic(t *testing.T) {
	weighted := []string{
		TokenJavaScript, TokenJS, TokenAA, TokenOpenAction, TokenLaunch, TokenURI,
		TokenSubmitForm, TokenEmbeddedFile, TokenJBIG2Decode, TokenRichMedia,
		TokenXFA, TokenObjStm, TokenEncrypt,
	}
	rank := map[Tier]int{TierLow: 0, TierMedium: 1, TierHigh: 2, TierCritical: 3}

	docs := []string{cleanPDF, cleanPDF + " /URI ", cleanPDF + " /JavaScript /Launch "}
	for _, base := range docs {
		before := Assess([]byte(base))
		for _, token := range weighted {
			after := Assess([]byte(base + " " + token + " "))
			assert.GreaterOrEqual(t, after.Score, before.Score, token)
			assert.GreaterOrEqual(t, rank[after.Tier], rank[before.Tier], token)
		}
	}
}

func TestAssess_CustomWeights(t *testing.T) {
	w := DefaultWeights()
	w.URI = 90
	s := NewScorerWithConfig(w, DefaultThresholds())

	ra := s.Assess([]byte("<< /URI (x) >>"))
	assert.Equal(t, 90, ra.Score)
	assert.Equal(t, TierCritical, ra.Tier)
}

func TestStructure(t *testing.T) {
	doc := "junk%PDF-1.5\n" +
		"1 0 obj\n<< /Linearized 1 >>\nendobj\n" +
		"2 0 obj\n<< /Length 3 >>\nstream\nabc\nendstream\n" +
		"xref\n0 1\ntrailer\n<< >>\n" +
		"xref\n3 0 obj\n"

	si := Structure([]byte(doc))

	assert.Equal(t, StructureInfo{
		PDFVersion:            "1.5",
		HeaderPosition:        4,
		IsLinearized:          true,
		HasIncrementalUpdates: true,
		ObjectCountMismatch:   true,
		TotalObjectCount:      3,
		StreamObjectCount:     1,
	}, si)
}

func TestStructure_Clean(t *testing.T) {
	si := Structure([]byte(cleanPDF))

	assert.Equal(t, "1.4", si.PDFVersion)
	assert.Equal(t, 0, si.HeaderPosition)
	assert.False(t, si.IsLinearized)
	assert.False(t, si.HasIncrementalUpdates)
	assert.False(t, si.ObjectCountMismatch)
	assert.Equal(t, 3, si.TotalObjectCount)
}

func TestStructure_NotAPDF(t *testing.T) {
	si := Structure([]byte("plain text"))
	assert.Equal(t, "unknown", si.PDFVersion)
	assert.Equal(t, -1, si.HeaderPosition)
}

func TestFingerprint(t *testing.T) {
	ra := RiskAssessment{
		StructuralCounts: map[string]int{TokenPage: 3, TokenObjStm: 1},
		SuspiciousCounts: map[string]int{TokenJavaScript: 1, TokenAA: 2},
	}
	si := StructureInfo{
		PDFVersion:        "1.7",
		TotalObjectCount:  12,
		StreamObjectCount: 4,
		IsLinearized:      true,
	}

	fp := Fingerprint(ra, si)
	assert.Equal(t, "v1.7-obj:12-stream:4-page:3-std-lin-js-aa-objstm", fp)
	assert.Equal(t, fp, Fingerprint(ra, si))

	ra.SuspiciousCounts[TokenLaunch] = 1
	assert.Equal(t, "v1.7-obj:12-stream:4-page:3-std-lin-js-aa-launch-objstm", Fingerprint(ra, si))

	si.HasIncrementalUpdates = true
	assert.True(t, strings.Contains(Fingerprint(ra, si), "-inc-"))
}

func TestFingerprint_JSObjectAloneHasNoJSTag(t *testing.T) {
	ra := RiskAssessment{
		StructuralCounts: map[string]int{TokenPage: 1},
		SuspiciousCounts: map[string]int{TokenJS: 2},
	}
	si := StructureInfo{PDFVersion: "1.4", TotalObjectCount: 3}

	assert.Equal(t, "v1.4-obj:3-stream:0-page:1-std-reg", Fingerprint(ra, si))

	ra.SuspiciousCounts[TokenJavaScript] = 1
	assert.Equal(t, "v1.4-obj:3-stream:0-page:1-std-reg-js", Fingerprint(ra, si))
}

func TestAnalyze(t *testing.T) {
	report := Analyze([]byte(cleanPDF))

	assert.Equal(t, TierLow, report.Risk.Tier)
	assert.Equal(t, "1.4", report.Structure.PDFVersion)
	assert.Equal(t, "v1.4-obj:3-stream:0-page:1-std-reg", report.Fingerprint)
	assert.False(t, report.Obfuscation.HasObfuscation)
}
