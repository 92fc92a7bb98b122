package descriptions

// Tool descriptions with practical examples and use cases

const (
	FormExtractFileDescription = `Extract structured form fields from a scanned form image or a digital PDF.

**When to use:** You have a single intake form, invoice, or application on disk and need its fields as structured data.

**Why it's useful:** Runs OCR (or reads the PDF text layer), finds labeled values like names, emails, phone numbers, and amounts, and returns them as JSON together with every recognized text block and its position.

**Examples:**
• Process an intake form: "Extract fields from /forms/patient-intake.png"
• Read an invoice: "Get the amount and company from invoice-2024-001.pdf"

**Best practices:** Images should be reasonably flat scans; digital PDFs work best, scanned PDFs should be uploaded as page images instead.`

	FormExtractDirectoryDescription = `Extract form fields from every supported file in a directory.

**When to use:** A folder of scanned forms needs batch processing.

**Why it's useful:** Processes images and PDFs in one pass and reports per-file results, so a single unreadable scan never stops the batch.

**Examples:**
• Batch intake forms: "Extract fields from everything in /scans/2024-08/"
• Nightly processing: "Process the drop folder and report failures"

**Best practices:** Results come back in filename order; check each result's success flag before consuming its fields.`

	FormValidatePDFDescription = `Check that a PDF is structurally valid and report its page count.

**When to use:** Before batch-processing PDFs, or when an extraction failed and you want to know whether the file itself is broken.

**Why it's useful:** Separates corrupt files from scanned PDFs that simply have no text layer.

**Examples:**
• Upload verification: "Validate contract.pdf before extraction"
• Triage: "Check whether failed-form.pdf is corrupt or just scanned"`

	FormServerInfoDescription = `Get server status, OCR engine readiness, available tools, and supported formats.

**When to use:** Starting a session, or troubleshooting why extractions fail.

**Why it's useful:** Confirms the OCR engine is installed and which languages it can recognize before you send work at it.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"form_extract_file":      FormExtractFileDescription,
	"form_extract_directory": FormExtractDirectoryDescription,
	"form_validate_pdf":      FormValidatePDFDescription,
	"form_server_info":       FormServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a list of all available tool names
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	return names
}
