package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	versionUnknown = "unknown"
	headerMarker   = "%PDF-"
	tokenLinear    = "/Linearized"
)

var versionRegex = regexp.MustCompile(`%PDF-(\d+\.\d+)`)

// StructureInfo holds coarse structural integrity signals
type StructureInfo struct {
	PDFVersion            string `json:"pdf_version"`
	HeaderPosition        int    `json:"header_position"`
	IsLinearized          bool   `json:"is_linearized"`
	HasIncrementalUpdates bool   `json:"has_incremental_updates"`
	ObjectCountMismatch   bool   `json:"object_count_mismatch"`
	TotalObjectCount      int    `json:"total_object_count"`
	StreamObjectCount     int    `json:"stream_object_count"`
	ObjectStreamCount     int    `json:"object_stream_count"`
	EncryptedObjectCount  int    `json:"encrypted_object_count"`
}

// Structure derives structure signals from buf
func Structure(buf []byte) StructureInfo {
	return StructureText(string(buf))
}

// StructureText derives structure signals from a decoded text view
func StructureText(text string) StructureInfo {
	counts := countStructural(text)
	return structureFromCounts(text, counts)
}

func structureFromCounts(text string, counts map[string]int) StructureInfo {
	info := StructureInfo{
		PDFVersion:            versionUnknown,
		HeaderPosition:        strings.Index(text, headerMarker),
		IsLinearized:          IndexName(text, tokenLinear, 0) >= 0,
		HasIncrementalUpdates: counts[TokenXref] > 1,
		ObjectCountMismatch:   counts[TokenObj] != counts[TokenEndobj],
		TotalObjectCount:      counts[TokenObj],
		StreamObjectCount:     counts[TokenStream],
		ObjectStreamCount:     counts[TokenObjStm],
		EncryptedObjectCount:  counts[TokenEncrypt],
	}
	if m := versionRegex.FindStringSubmatch(text); m != nil {
		info.PDFVersion = m[1]
	}
	return info
}

// Fingerprint composes a coarse document-class identifier such as
// "v1.7-obj:12-stream:4-page:3-std-reg-js-aa". It is not a hash.
func Fingerprint(ra RiskAssessment, si StructureInfo) string {
	parts := []string{
		"v" + si.PDFVersion,
		fmt.Sprintf("obj:%d", si.TotalObjectCount),
		fmt.Sprintf("stream:%d", si.StreamObjectCount),
		fmt.Sprintf("page:%d", ra.StructuralCounts[TokenPage]),
		pick(si.HasIncrementalUpdates, "inc", "std"),
		pick(si.IsLinearized, "lin", "reg"),
		pick(ra.SuspiciousCounts[TokenJavaScript] > 0, "js", ""),
		pick(ra.SuspiciousCounts[TokenAA] > 0, "aa", ""),
		pick(ra.SuspiciousCounts[TokenLaunch] > 0, "launch", ""),
		pick(ra.StructuralCounts[TokenObjStm] > 0, "objstm", ""),
		pick(ra.StructuralCounts[TokenEncrypt] > 0, "enc", ""),
	}

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "-")
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// Report bundles every triage signal for one document
type Report struct {
	Risk        RiskAssessment    `json:"risk"`
	Structure   StructureInfo     `json:"structure"`
	Fingerprint string            `json:"fingerprint"`
	Obfuscation ObfuscationReport `json:"obfuscation"`
}

// Analyze runs scoring, structure, fingerprinting and obfuscation analysis
// over a single text view of buf.
func (s *Scorer) Analyze(buf []byte) Report {
	text := string(buf)
	ra := s.AssessText(text)
	si := structureFromCounts(text, ra.StructuralCounts)
	return Report{
		Risk:        ra,
		Structure:   si,
		Fingerprint: Fingerprint(ra, si),
		Obfuscation: AnalyzeObfuscation(text),
	}
}

// Analyze runs the default scorer's full analysis
func Analyze(buf []byte) Report {
	return NewScorer().Analyze(buf)
}
