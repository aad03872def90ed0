package descriptions

import (
	"strings"
	"testing"
)

func TestGetToolDescription(t *testing.T) {
	for _, name := range GetAllToolNames() {
		desc := GetToolDescription(name)
		if !strings.Contains(desc, "**When to use:**") {
			t.Errorf("description for %s missing usage section", name)
		}
	}

	if got := GetToolDescription("pdf_unknown"); got != "Tool description not available" {
		t.Errorf("unexpected fallback description: %q", got)
	}
}

func TestGetAllToolNames(t *testing.T) {
	want := []string{"pdf_assess_file", "pdf_sanitize_file", "pdf_scan_file", "pdf_server_info", "pdf_validate_file"}
	got := GetAllToolNames()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("GetAllToolNames() = %v, want %v", got, want)
	}
}
