// Package detection locates active-content indicators in raw PDF bytes and
// attaches byte-exact evidence to every finding.
package detection

// Display names are matched literally by consumers and must not change.
const (
	NameJavaScript      = "JavaScript actions (/JavaScript)"
	NameJS              = "JavaScript objects (/JS)"
	NameSubmitForm      = "Form submission actions (/SubmitForm)"
	NameURI             = "External links (/URI)"
	NameEmbeddedFile    = "Embedded files (/EmbeddedFile)"
	NameFilespec        = "File specifications (/Filespec)"
	NameAA              = "Additional actions (/AA)"
	NameAction          = "Action objects (/A)"
	NameSig             = "Digital signatures (/Sig)"
	NameByteRange       = "Signature fields (/ByteRange)"
	NameXFA             = "XFA forms (/XFA)"
	NameType1           = "Type1 fonts (/Type1)"
	NameCFF             = "CFF fonts (/CFF)"
	NameTrueType        = "TrueType fonts (/TrueType)"
	NameGoTo            = "GoTo actions (/GoTo)"
	NameLaunch          = "Launch actions (/Launch)"
	NameNamed           = "Named actions (/Named)"
	NameRichMedia       = "Rich media (/RichMedia)"
	NameSound           = "Sound objects (/Sound)"
	NameMovie           = "Movie objects (/Movie)"
	NameNoDynamicObject = "Document processed as images (dynamic objects removed)"
)

// Boundary selects how the byte after a token is checked
type Boundary int

const (
	// BoundaryDelimited requires whitespace, '>' or end of text after the token
	BoundaryDelimited Boundary = iota
	// BoundaryNone accepts any following byte
	BoundaryNone
)

// Indicator is one row of the detection table
type Indicator struct {
	Name     string
	Token    string
	Boundary Boundary
	// IncludeDelimiter extends a match over the delimiter byte that follows
	// the token, when there is one
	IncludeDelimiter bool
}

// DefaultIndicators returns the standard indicator table in registration order
func DefaultIndicators() []Indicator {
	return []Indicator{
		{Name: NameJavaScript, Token: "/JavaScript"},
		{Name: NameJS, Token: "/JS"},
		{Name: NameSubmitForm, Token: "/SubmitForm"},
		{Name: NameURI, Token: "/URI"},
		{Name: NameEmbeddedFile, Token: "/EmbeddedFile"},
		{Name: NameFilespec, Token: "/Filespec"},
		{Name: NameAA, Token: "/AA"},
		{Name: NameAction, Token: "/A", IncludeDelimiter: true},
		{Name: NameSig, Token: "/Sig"},
		{Name: NameByteRange, Token: "/ByteRange"},
		{Name: NameXFA, Token: "/XFA"},
		{Name: NameType1, Token: "/Type1"},
		{Name: NameCFF, Token: "/CFF"},
		{Name: NameTrueType, Token: "/TrueType"},
		{Name: NameGoTo, Token: "/GoTo"},
		{Name: NameLaunch, Token: "/Launch"},
		{Name: NameNamed, Token: "/Named"},
		{Name: NameRichMedia, Token: "/RichMedia"},
		{Name: NameSound, Token: "/Sound"},
		{Name: NameMovie, Token: "/Movie"},
	}
}
