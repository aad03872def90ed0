package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	PDFValidateFileDescription = `Verify that a file is a structurally valid PDF before scanning or sanitizing it.

**When to use:** Before processing a PDF from an untrusted source, or when a later tool reports a parse failure.

**Why it's useful:** Catches truncated, mislabeled and corrupted files early, and reports the PDF version and page count.

**Examples:**
• Upload triage: "Validate invoice-upload.pdf before running a scan"
• Batch intake: "Check every PDF in /incoming/ parses before sanitizing"

**Common workflows:**
1. Intake: Validate → Scan → Sanitize if anything was found
2. Troubleshooting: Sanitize fails → Validate → Inspect the reported parser error

**Best practices:** A file that fails validation can still be scanned; scanning works on raw bytes.`

	PDFScanFileDescription = `Detect active content in a PDF: JavaScript, automatic and launch actions, forms, embedded files, rich media and more.

**When to use:** Need to know what a document can do when opened, before deciding whether to sanitize or reject it.

**Why it's useful:** Reports each indicator with its byte offset and, on request, a hex dump of the bytes around it as evidence.

**Examples:**
• Mail gateway: "Scan attachment.pdf and list every active-content indicator"
• Incident response: "Scan suspicious.pdf with obfuscation_aware=true and include_evidence=true"

**Common workflows:**
1. Triage: Scan → if clean, pass through → otherwise Sanitize
2. Investigation: Scan with evidence → Assess → Record fingerprint

**Best practices:** Enable obfuscation_aware for hostile samples; names like /J#61vaScript hide from plain matching.`

	PDFAssessFileDescription = `Score a PDF's risk from weighted indicator counts and report its structure, fingerprint and name obfuscation.

**When to use:** Need a single severity tier for a document, or want to compare samples by structural fingerprint.

**Why it's useful:** Combines counts of scripts, automatic actions, launch actions, exploit-prone filters and more into a score with a written rationale.

**Examples:**
• Prioritisation: "Assess every PDF in quarantine/ and sort by score"
• Clustering: "Compare fingerprints of campaign-a.pdf and campaign-b.pdf"

**Common workflows:**
1. Queue ordering: Assess → handle critical and high tiers first
2. Reporting: Assess → attach rationale to the ticket

**Best practices:** JavaScript together with /OpenAction or /AA is the strongest signal and lands in the critical tier on its own.`

	PDFSanitizeFileDescription = `Rebuild a PDF from rendered page images, removing every script, action, form, annotation and attachment.

**When to use:** A document must be opened or shared but its active content cannot be trusted.

**Why it's useful:** The output contains only one image per page, so nothing in the original can execute. The input file is never modified.

**Examples:**
• Safe viewing: "Sanitize contract.pdf so it can be opened on a workstation"
• Archival: "Sanitize report.pdf at quality 3 with compression 3"

**Common workflows:**
1. Scan → Sanitize → Scan the output to confirm it is clean
2. Batch: Sanitize every file in /incoming/ into the output directory

**Best practices:** Quality 2.0 (144 DPI) suits reading; raise it for small print. Text in the output is no longer selectable.`

	PDFServerInfoDescription = `Get server capabilities, configured directories, detectable indicators and the PDF files available for processing.

**When to use:** Starting a session, or when unsure which files and tools are available.

**Why it's useful:** Lists the input and output directories, whether the page renderer is installed, and usage guidance for every tool.

**Examples:**
• Session start: "What PDFs can the sanitizer see?"
• Setup check: "Is the page renderer available on this server?"

**Common workflows:**
1. Discovery: Server info → pick a file → Validate → Scan

**Best practices:** Call this first when the renderer may be missing; sanitizing needs it, scanning does not.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"pdf_validate_file": PDFValidateFileDescription,
	"pdf_scan_file":     PDFScanFileDescription,
	"pdf_assess_file":   PDFAssessFileDescription,
	"pdf_sanitize_file": PDFSanitizeFileDescription,
	"pdf_server_info":   PDFServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns every described tool name in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
