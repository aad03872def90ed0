package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/analysis"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// headerWindow is how far into the file the %PDF- marker may start
const headerWindow = 1024

// Validator handles PDF file validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateFile performs comprehensive validation on a PDF file
func (v *Validator) ValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	result := &PDFValidateFileResult{
		Path:  req.Path,
		Valid: false,
	}

	data, err := v.ReadDocument(req.Path)
	if err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // Return result with validation error, not a processing error
	}

	pages, err := validateStructure(data)
	if err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // Return result with validation error, not a processing error
	}

	result.Valid = true
	result.Pages = pages
	result.Version = analysis.Structure(data).PDFVersion
	return result, nil
}

// ReadDocument checks the file on disk and returns its bytes. Only the
// header is checked, so malformed documents can still be scanned.
func (v *Validator) ReadDocument(filePath string) ([]byte, error) {
	if filePath == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	if err := v.ValidateFileInfo(filePath, fileInfo); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if !hasHeader(data) {
		return nil, fmt.Errorf("missing %%PDF- header: %s", filePath)
	}
	return data, nil
}

// IsValidPDF performs a quick check to see if a file is a valid PDF
func (v *Validator) IsValidPDF(filePath string) bool {
	data, err := v.ReadDocument(filePath)
	if err != nil {
		return false
	}
	_, err = validateStructure(data)
	return err == nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", filePath)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}

func hasHeader(data []byte) bool {
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	return bytes.Contains(window, []byte("%PDF-"))
}

// validateStructure opens the document with both parsers and returns its
// page count.
func validateStructure(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid PDF file: parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PDF file: %w", err)
	}
	pages = reader.NumPage()
	if pages == 0 {
		return 0, fmt.Errorf("invalid PDF file: document has no pages")
	}

	if err := relaxedValidate(bytes.NewReader(data)); err != nil {
		return 0, fmt.Errorf("invalid PDF structure: %w", err)
	}
	return pages, nil
}

func relaxedValidate(rs io.ReadSeeker) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.Validate(rs, conf)
}
