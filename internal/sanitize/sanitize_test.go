package sanitize

import (
	"errors"
	"testing"
)

func TestSanitize_PlainText(t *testing.T) {
	got, err := Sanitize("  Return the sum of two numbers.  ")
	if err != nil {
		t.Fatalf("Sanitize failed: %v", err)
	}
	if got != "Return the sum of two numbers." {
		t.Errorf("Unexpected result: %q", got)
	}
}

func TestSanitize_StructuredJSON(t *testing.T) {
	response := `{"responses": [{"content": "Compute the area.\n\n:param radius: circle radius", "format": "sphinx"}]}`
	got, err := Sanitize(response)
	if err != nil {
		t.Fatalf("Sanitize failed: %v", err)
	}
	if got != "Compute the area.\n\n:param radius: circle radius" {
		t.Errorf("Unexpected result: %q", got)
	}
}

func TestSanitize_FencedWithEchoedDef(t *testing.T) {
	response := "```python\ndef add(a, b):\n    \"\"\"Return the sum.\"\"\"\n```"
	got, err := Sanitize(response)
	if err != nil {
		t.Fatalf("Sanitize failed: %v", err)
	}
	if got != "Return the sum." {
		t.Errorf("Unexpected result: %q", got)
	}
}

func TestSanitize_Empty(t *testing.T) {
	for _, response := range []string{"", "   ", `""""""`} {
		if _, err := Sanitize(response); !errors.Is(err, ErrEmptyDocstring) {
			t.Errorf("Sanitize(%q): expected ErrEmptyDocstring, got %v", response, err)
		}
	}
}

func TestDecodeStructuredResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unwraps content", `{"responses": [{"content": "Doc text"}]}`, "Doc text"},
		{"not json", "plain text", "plain text"},
		{"wrong shape", `{"answer": "Doc"}`, `{"answer": "Doc"}`},
		{"empty responses", `{"responses": []}`, `{"responses": []}`},
		{"invalid json", `{"responses": [`, `{"responses": [`},
		{"extra fields tolerated", `{"responses": [{"content": "Doc", "should_indent": true}], "x": 1}`, "Doc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeStructuredResponse(tt.in); got != tt.want {
				t.Errorf("DecodeStructuredResponse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRemoveMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"python fence", "```python\nDoc text\n```", "Doc text"},
		{"bare fence", "```\nDoc text\n```", "Doc text"},
		{"plaintext fence", "```plaintext\nDoc text\n```", "Doc text"},
		{"no fences", "Doc text", "Doc text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemoveMarkdownFences(tt.in); got != tt.want {
				t.Errorf("RemoveMarkdownFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRemoveFunctionDefinition(t *testing.T) {
	in := "def add(a, b):\n    Return the sum."
	if got := RemoveFunctionDefinition(in); got != "\n    Return the sum." {
		t.Errorf("Unexpected result: %q", got)
	}

	// Only the first definition goes; later ones are content.
	in = "def f():\nUses def g(): internally.\ndef h():"
	got := RemoveFunctionDefinition(in)
	want := "\nUses def g(): internally.\ndef h():"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestExtractDocstringContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"double quotes", `prefix """Doc text""" suffix`, "Doc text"},
		{"single quotes", "prefix '''Doc text''' suffix", "Doc text"},
		{"no quotes passthrough", "Doc text", "Doc text"},
		{"earliest wins", `'''first''' then """second"""`, "first"},
		{"multiline", "\"\"\"Line one.\nLine two.\"\"\"", "Line one.\nLine two."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDocstringContent(tt.in); got != tt.want {
				t.Errorf("ExtractDocstringContent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
