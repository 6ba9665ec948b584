package classifier

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/filebutler-io/filebutler/internal/config"
	"github.com/filebutler-io/filebutler/internal/extract"
)

// --- Mock LLM client ---

type mockClient struct {
	reply string
	ok    bool
	calls int
}

func (m *mockClient) Generate(_ context.Context, _ string) (string, bool) {
	m.calls++
	return m.reply, m.ok
}
func (m *mockClient) CheckConnection(context.Context) bool { return true }
func (m *mockClient) CheckModel(context.Context) bool      { return true }
func (m *mockClient) ModelName() string                    { return "mock" }

func goodAnalysis() extract.AnalysisResult {
	return extract.AnalysisResult{
		Path: "/inbox/invoice.pdf",
		Metadata: extract.FileMetadata{
			Path:       "/inbox/invoice.pdf",
			Filename:   "invoice.pdf",
			Extension:  ".pdf",
			SizeBytes:  2048,
			CreatedAt:  time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC),
			ModifiedAt: time.Date(2024, 4, 2, 14, 45, 0, 0, time.UTC),
		},
		Content:        "Invoice #42 from ACME Corp",
		ContentPreview: "Invoice #42 from ACME Corp",
		Success:        true,
	}
}

// --- Tests ---

func TestSanitizeDestination(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Docs/Work", "Docs/Work"},
		{"/Docs/Work/", "Docs/Work"},
		{`\Docs\Work\`, "Docs/Work"},
		{`/Docs\\Work/`, "Docs//Work"},
		{"", "Unsorted"},
		{"///", "Unsorted"},
		{"../etc/passwd", "Unsorted"},
		{"Docs/../secret", "Unsorted"},
		{"Docs/..hidden", "Docs/..hidden"},
	}
	for _, tt := range tests {
		if got := SanitizeDestination(tt.in); got != tt.want {
			t.Errorf("SanitizeDestination(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeDestinationIdempotent(t *testing.T) {
	inputs := []string{"Docs/Work", "/a/b/", `\x\y`, "", "../up", "Deep/Nested/Path"}
	for _, in := range inputs {
		once := SanitizeDestination(in)
		if twice := SanitizeDestination(once); twice != once {
			t.Errorf("sanitize not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestClassifyParsesWellFormedReply(t *testing.T) {
	client := &mockClient{
		reply: `{"destination_folder": "Finances/Invoices", "tags": ["invoice", "acme"], "confidence": 0.92, "reasoning": "Looks like an invoice."}`,
		ok:    true,
	}
	c := New(client, "", nil)

	result := c.Classify(context.Background(), goodAnalysis(), "")
	if !result.Success {
		t.Fatalf("Classify() failed: %s", result.ErrorMessage)
	}
	if result.DestinationFolder != "Finances/Invoices" {
		t.Errorf("destination = %q", result.DestinationFolder)
	}
	if len(result.Tags) != 2 || result.Tags[0] != "invoice" {
		t.Errorf("tags = %v", result.Tags)
	}
	if result.Confidence != 0.92 {
		t.Errorf("confidence = %v", result.Confidence)
	}
}

func TestClassifyExtractsJSONFromChatter(t *testing.T) {
	client := &mockClient{
		reply: "Sure! Here is my answer:\n{\"destination_folder\": \"Docs\", \"tags\": [], \"confidence\": 0.5, \"reasoning\": \"ok\"}\nHope that helps!",
		ok:    true,
	}
	result := New(client, "", nil).Classify(context.Background(), goodAnalysis(), "")
	if !result.Success || result.DestinationFolder != "Docs" {
		t.Errorf("result = %+v", result)
	}
}

func TestClassifySanitizesHostileReply(t *testing.T) {
	// The end-to-end sanitization scenario: backslashes, a string tag, and
	// an out-of-range confidence.
	client := &mockClient{
		reply: `{"destination_folder":"/Docs\\Work/","tags":"alpha","confidence":1.7,"reasoning":""}`,
		ok:    true,
	}
	result := New(client, "", nil).Classify(context.Background(), goodAnalysis(), "")

	if !result.Success {
		t.Fatalf("Classify() failed: %s", result.ErrorMessage)
	}
	if result.DestinationFolder != "Docs/Work" {
		t.Errorf("destination = %q, want Docs/Work", result.DestinationFolder)
	}
	if len(result.Tags) != 1 || result.Tags[0] != "alpha" {
		t.Errorf("tags = %v, want [alpha]", result.Tags)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %v, want clamped 1.0", result.Confidence)
	}
	if result.Reasoning != "No reasoning provided" {
		t.Errorf("reasoning = %q", result.Reasoning)
	}
}

func TestClassifyGarbageReplyFails(t *testing.T) {
	for _, reply := range []string{"no json here at all", "{broken json", ""} {
		client := &mockClient{reply: reply, ok: true}
		result := New(client, "", nil).Classify(context.Background(), goodAnalysis(), "")

		if result.Success {
			t.Errorf("reply %q should fail", reply)
		}
		if result.DestinationFolder != UnsortedFolder {
			t.Errorf("destination = %q, want Unsorted", result.DestinationFolder)
		}
		if result.Confidence != 0 {
			t.Errorf("confidence = %v, want 0", result.Confidence)
		}
		if len(result.Tags) != 0 {
			t.Errorf("tags = %v, want empty", result.Tags)
		}
	}
}

func TestClassifyTransportFailure(t *testing.T) {
	client := &mockClient{ok: false}
	result := New(client, "", nil).Classify(context.Background(), goodAnalysis(), "")

	if result.Success {
		t.Error("transport failure must fail the classification")
	}
	if result.DestinationFolder != UnsortedFolder {
		t.Errorf("destination = %q", result.DestinationFolder)
	}
}

func TestClassifyFailedAnalysisShortCircuits(t *testing.T) {
	client := &mockClient{reply: "{}", ok: true}
	analysis := extract.AnalysisResult{
		Path:         "/inbox/broken.pdf",
		Success:      false,
		ErrorMessage: "unreadable",
	}

	result := New(client, "", nil).Classify(context.Background(), analysis, "")
	if result.Success {
		t.Error("failed analysis must fail classification")
	}
	if client.calls != 0 {
		t.Errorf("LLM called %d times for failed analysis, want 0", client.calls)
	}
	if !strings.Contains(result.ErrorMessage, "unreadable") {
		t.Errorf("error = %q", result.ErrorMessage)
	}
}

func TestBuildPromptContents(t *testing.T) {
	prompt := BuildPrompt(goodAnalysis(), "")

	for _, want := range []string{
		"invoice.pdf",
		".pdf",
		"2048 bytes",
		"2024-04-01 09:30",
		"2024-04-02 14:45",
		"Invoice #42 from ACME Corp",
		"destination_folder",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "EXISTING FOLDER STRUCTURE") {
		t.Error("prompt should omit folder section without context")
	}
}

func TestBuildPromptWithFolderContext(t *testing.T) {
	folderCtx := "- Docs/Work\n- Finances/Receipts"
	prompt := BuildPrompt(goodAnalysis(), folderCtx)

	if !strings.Contains(prompt, "EXISTING FOLDER STRUCTURE") {
		t.Error("prompt missing folder section")
	}
	if !strings.Contains(prompt, "- Finances/Receipts") {
		t.Error("prompt missing folder paths")
	}
}

func TestBuildPromptTruncatesPreview(t *testing.T) {
	analysis := goodAnalysis()
	analysis.ContentPreview = strings.Repeat("x", MaxPreviewChars+500)

	prompt := BuildPrompt(analysis, "")
	if strings.Contains(prompt, strings.Repeat("x", MaxPreviewChars+1)) {
		t.Error("preview not truncated")
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	a := BuildPrompt(goodAnalysis(), "- Docs")
	b := BuildPrompt(goodAnalysis(), "- Docs")
	if a != b {
		t.Error("prompt not deterministic")
	}
}

func TestConfidenceLevel(t *testing.T) {
	thresholds := config.ConfidenceThresholds{High: 0.9, Medium: 0.6, Low: 0}

	tests := []struct {
		confidence float64
		want       string
	}{
		{0.95, "high"},
		{0.9, "high"},
		{0.89, "medium"},
		{0.6, "medium"},
		{0.59, "low"},
		{0, "low"},
	}
	for _, tt := range tests {
		r := Result{Confidence: tt.confidence}
		if got := r.ConfidenceLevel(thresholds); got != tt.want {
			t.Errorf("ConfidenceLevel(%v) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}

func TestCoerceTags(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, []string{}},
		{"string", "alpha", []string{"alpha"}},
		{"empty string", "  ", []string{}},
		{"list", []any{"a", "b", ""}, []string{"a", "b"}},
		{"number", 42.0, []string{"42"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coerceTags(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("coerceTags(%v) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("tag %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
