package analysis

import (
	"fmt"
	"regexp"
)

// Structural tokens. Keywords are counted as whole words; names use the
// delimiter rule shared with the detection registry.
const (
	TokenObj       = "obj"
	TokenEndobj    = "endobj"
	TokenStream    = "stream"
	TokenEndstream = "endstream"
	TokenXref      = "xref"
	TokenTrailer   = "trailer"
	TokenStartxref = "startxref"
	TokenPage      = "/Page"
	TokenEncrypt   = "/Encrypt"
	TokenObjStm    = "/ObjStm"
)

// Suspicious name tokens
const (
	TokenJavaScript   = "/JavaScript"
	TokenJS           = "/JS"
	TokenAA           = "/AA"
	TokenOpenAction   = "/OpenAction"
	TokenLaunch       = "/Launch"
	TokenURI          = "/URI"
	TokenSubmitForm   = "/SubmitForm"
	TokenGoTo         = "/GoTo"
	TokenGoToR        = "/GoToR"
	TokenNamed        = "/Named"
	TokenJBIG2Decode  = "/JBIG2Decode"
	TokenRichMedia    = "/RichMedia"
	TokenXFA          = "/XFA"
	TokenEmbeddedFile = "/EmbeddedFile"
	TokenFilespec     = "/Filespec"
	TokenAcroForm     = "/AcroForm"
)

var (
	// an indirect object header: "12 0 obj"
	objRegex = regexp.MustCompile(`\b\d+\s+\d+\s+obj\b`)

	keywordRegexes = map[string]*regexp.Regexp{
		TokenEndobj:    regexp.MustCompile(`\bendobj\b`),
		TokenStream:    regexp.MustCompile(`\bstream\b`),
		TokenEndstream: regexp.MustCompile(`\bendstream\b`),
		TokenXref:      regexp.MustCompile(`\bxref\b`),
		TokenTrailer:   regexp.MustCompile(`\btrailer\b`),
		TokenStartxref: regexp.MustCompile(`\bstartxref\b`),
	}

	structuralNames = []string{TokenPage, TokenEncrypt, TokenObjStm}

	suspiciousNames = []string{
		TokenJavaScript, TokenJS, TokenAA, TokenOpenAction, TokenLaunch, TokenURI,
		TokenSubmitForm, TokenGoTo, TokenGoToR, TokenNamed, TokenJBIG2Decode,
		TokenRichMedia, TokenXFA, TokenEmbeddedFile, TokenFilespec, TokenAcroForm,
	}
)

// Tier is the coarse risk classification derived from a score
type Tier string

const (
	TierLow      Tier = "low"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

// Weights are the additive score contributions per indicator. The defaults
// are heuristic and kept for compatibility; they are not a security proof.
type Weights struct {
	JavaScript      int `json:"javascript"`
	AutoAction      int `json:"auto_action"`
	JavaScriptCombo int `json:"javascript_combo"`
	Launch          int `json:"launch"`
	URI             int `json:"uri"`
	SubmitForm      int `json:"submit_form"`
	EmbeddedFile    int `json:"embedded_file"`
	JBIG2Decode     int `json:"jbig2_decode"`
	RichMedia       int `json:"rich_media"`
	XFA             int `json:"xfa"`
	ObjStm          int `json:"objstm"`
	Encrypt         int `json:"encrypt"`
}

// Thresholds are the minimum scores for each tier above low
type Thresholds struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
}

// DefaultWeights returns the standard PDFiD-derived weights
func DefaultWeights() Weights {
	return Weights{
		JavaScript:      50,
		AutoAction:      30,
		JavaScriptCombo: 40,
		Launch:          25,
		URI:             15,
		SubmitForm:      20,
		EmbeddedFile:    15,
		JBIG2Decode:     25,
		RichMedia:       20,
		XFA:             15,
		ObjStm:          10,
		Encrypt:         5,
	}
}

// DefaultThresholds returns the standard tier boundaries
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 80, High: 50, Medium: 20}
}

// RiskAssessment is the scored triage result for one document
type RiskAssessment struct {
	StructuralCounts map[string]int `json:"structural_counts"`
	SuspiciousCounts map[string]int `json:"suspicious_counts"`
	Score            int            `json:"score"`
	Tier             Tier           `json:"tier"`
	Rationale        []string       `json:"rationale"`
}

// Count returns the occurrence count of a structural or suspicious token
func (r RiskAssessment) Count(token string) int {
	if n, ok := r.SuspiciousCounts[token]; ok {
		return n
	}
	return r.StructuralCounts[token]
}

// Scorer turns token counts into a weighted score and tier
type Scorer struct {
	weights    Weights
	thresholds Thresholds
}

// NewScorer creates a scorer with the default weights and thresholds
func NewScorer() *Scorer {
	return NewScorerWithConfig(DefaultWeights(), DefaultThresholds())
}

// NewScorerWithConfig creates a scorer with custom weights and thresholds
func NewScorerWithConfig(weights Weights, thresholds Thresholds) *Scorer {
	return &Scorer{weights: weights, thresholds: thresholds}
}

// Assess scores buf using the default scorer
func Assess(buf []byte) RiskAssessment {
	return NewScorer().Assess(buf)
}

// Assess scores the byte-preserving text view of buf
func (s *Scorer) Assess(buf []byte) RiskAssessment {
	return s.AssessText(string(buf))
}

// AssessText scores an already decoded text view
func (s *Scorer) AssessText(text string) RiskAssessment {
	ra := RiskAssessment{
		StructuralCounts: countStructural(text),
		SuspiciousCounts: countSuspicious(text),
	}
	ra.Score, ra.Rationale = s.score(ra)
	ra.Tier = s.Tier(ra.Score)
	ra.Rationale = append([]string{tierHeadline(ra.Tier)}, ra.Rationale...)
	return ra
}

// Tier maps a score onto a risk tier
func (s *Scorer) Tier(score int) Tier {
	switch {
	case score >= s.thresholds.Critical:
		return TierCritical
	case score >= s.thresholds.High:
		return TierHigh
	case score >= s.thresholds.Medium:
		return TierMedium
	default:
		return TierLow
	}
}

func (s *Scorer) score(ra RiskAssessment) (int, []string) {
	c := ra.SuspiciousCounts
	w := s.weights
	score := 0
	var rationale []string

	add := func(weight int, format string, args ...interface{}) {
		score += weight
		rationale = append(rationale, fmt.Sprintf(format, args...))
	}

	hasJS := c[TokenJavaScript] > 0 || c[TokenJS] > 0
	hasAuto := c[TokenAA] > 0 || c[TokenOpenAction] > 0

	if hasJS {
		add(w.JavaScript, "JavaScript detected (%d occurrences) - high risk",
			c[TokenJavaScript]+c[TokenJS])
	}
	if hasAuto {
		add(w.AutoAction, "Automatic actions detected (%d occurrences) - automatic execution",
			c[TokenAA]+c[TokenOpenAction])
	}
	if hasJS && hasAuto {
		add(w.JavaScriptCombo, "JavaScript + Automatic actions - extremely suspicious combination")
	}
	if n := c[TokenLaunch]; n > 0 {
		add(w.Launch, "Launch actions detected (%d occurrences) - can execute external programs", n)
	}
	if n := c[TokenURI]; n > 0 {
		add(w.URI, "External URIs detected (%d occurrences) - potential data exfiltration", n)
	}
	if n := c[TokenSubmitForm]; n > 0 {
		add(w.SubmitForm, "Form submission detected (%d occurrences) - potential data leakage", n)
	}
	if n := c[TokenEmbeddedFile]; n > 0 {
		add(w.EmbeddedFile, "Embedded files detected (%d occurrences) - hidden payloads", n)
	}
	if n := c[TokenJBIG2Decode]; n > 0 {
		add(w.JBIG2Decode, "JBIG2 compression detected (%d occurrences) - known exploit vector", n)
	}
	if n := c[TokenRichMedia]; n > 0 {
		add(w.RichMedia, "Rich media detected (%d occurrences) - Flash exploit vector", n)
	}
	if n := c[TokenXFA]; n > 0 {
		add(w.XFA, "XFA forms detected (%d occurrences) - complex dynamic forms", n)
	}
	if n := ra.StructuralCounts[TokenObjStm]; n > 0 {
		add(w.ObjStm, "Object streams detected (%d occurrences) - potential obfuscation", n)
	}
	if n := ra.StructuralCounts[TokenEncrypt]; n > 0 {
		add(w.Encrypt, "Encryption detected (%d occurrences) - requires analysis", n)
	}

	return score, rationale
}

func tierHeadline(t Tier) string {
	switch t {
	case TierCritical:
		return "CRITICAL: Multiple high-risk indicators - likely malicious"
	case TierHigh:
		return "HIGH RISK: Suspicious combination of features"
	case TierMedium:
		return "MEDIUM RISK: Some suspicious features detected"
	default:
		return "LOW RISK: Minimal suspicious indicators"
	}
}

func countStructural(text string) map[string]int {
	counts := make(map[string]int, len(keywordRegexes)+len(structuralNames)+1)
	counts[TokenObj] = len(objRegex.FindAllStringIndex(text, -1))
	for token, re := range keywordRegexes {
		counts[token] = len(re.FindAllStringIndex(text, -1))
	}
	for _, name := range structuralNames {
		counts[name] = CountName(text, name)
	}
	return counts
}

func countSuspicious(text string) map[string]int {
	counts := make(map[string]int, len(suspiciousNames))
	for _, name := range suspiciousNames {
		counts[name] = CountName(text, name)
	}
	return counts
}
