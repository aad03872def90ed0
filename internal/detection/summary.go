package detection

// Summary flags the broad classes of objects present in a document
type Summary struct {
	HasJavaScript        bool    `json:"has_javascript"`
	HasEmbeddedFiles     bool    `json:"has_embedded_files"`
	HasDigitalSignatures bool    `json:"has_digital_signatures"`
	HasXFAForms          bool    `json:"has_xfa_forms"`
	HasEmbeddedFonts     bool    `json:"has_embedded_fonts"`
	HasActions           bool    `json:"has_actions"`
	SizeKB               float64 `json:"size_kb"`
}

// Summarize derives object-class flags from findings for a document of size
// bytes.
func Summarize(findings []Finding, size int) Summary {
	s := Summary{SizeKB: float64(size) / 1024}
	for _, f := range findings {
		switch f.Name {
		case NameJavaScript, NameJS:
			s.HasJavaScript = true
		case NameEmbeddedFile, NameFilespec:
			s.HasEmbeddedFiles = true
		case NameSig, NameByteRange:
			s.HasDigitalSignatures = true
		case NameXFA:
			s.HasXFAForms = true
		case NameType1, NameCFF, NameTrueType:
			s.HasEmbeddedFonts = true
		case NameAA, NameAction, NameGoTo, NameLaunch, NameNamed, NameSubmitForm, NameURI:
			s.HasActions = true
		}
	}
	return s
}
