package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monograph.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return path
}

// TestLoad_EmbedsDocument checks that the monograph lands verbatim inside
// the system instruction, below the behavioral rules.
func TestLoad_EmbedsDocument(t *testing.T) {
	const monograph = "Acmezol 50 mg tablets.\nIndication: seasonal allergic rhinitis.\nDosage: one tablet daily."
	doc, err := Load(writeDoc(t, monograph))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if doc.Content() != monograph {
		t.Errorf("content = %q, want the file text", doc.Content())
	}

	inst := doc.SystemInstruction()
	if !strings.HasSuffix(inst, monograph) {
		t.Error("instruction should end with the monograph verbatim")
	}
	if !strings.Contains(inst, "Answer ONLY from the product document") {
		t.Error("instruction should carry the grounding rule")
	}
	if !strings.Contains(inst, "PRODUCT DOCUMENT:") {
		t.Error("instruction should separate rules from the document")
	}
}

// TestLoad_TrimsWhitespace checks that surrounding whitespace in the file
// does not leak into the content.
func TestLoad_TrimsWhitespace(t *testing.T) {
	doc, err := Load(writeDoc(t, "\n\n  Acmezol 50 mg.  \n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Content() != "Acmezol 50 mg." {
		t.Errorf("content = %q, want trimmed text", doc.Content())
	}
}

// TestLoad_MissingFile checks that an unreadable path is an error.
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for a missing document")
	}
}

// TestLoad_EmptyFile checks that a blank document is rejected.
func TestLoad_EmptyFile(t *testing.T) {
	if _, err := Load(writeDoc(t, "   \n  ")); err == nil {
		t.Fatal("expected error for an empty document")
	}
}

// TestSystemInstruction_Stable checks the instruction is built once and does
// not change between calls.
func TestSystemInstruction_Stable(t *testing.T) {
	doc, err := Load(writeDoc(t, "Acmezol 50 mg."))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.SystemInstruction() != doc.SystemInstruction() {
		t.Error("instruction must be identical across calls")
	}
}
