package survey

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewCatalog_Validation(t *testing.T) {
	cases := []struct {
		name      string
		questions []Question
		wantErr   bool
	}{
		{"empty", nil, true},
		{"missing prompt", []Question{{ID: "Q1"}}, true},
		{"missing id", []Question{{Prompt: "hi?"}}, true},
		{"duplicate id", []Question{{ID: "Q1", Prompt: "a?"}, {ID: "Q1", Prompt: "b?"}}, true},
		{"ok", []Question{{ID: "Q1", Prompt: "a?"}, {ID: "Q2", Prompt: "b?"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCatalog(tc.questions)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestCatalog_OrderIsSliceOrderNotIDArithmetic(t *testing.T) {
	// IDs are opaque: a catalog listed out of numeric order keeps its listed order.
	cat, err := NewCatalog([]Question{
		{ID: "Q10", Prompt: "first?"},
		{ID: "Q2", Prompt: "second?"},
		{ID: "intro", Prompt: "third?"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	want := []string{"Q10", "Q2", "intro"}
	for i, id := range want {
		q, ok := cat.At(i)
		if !ok || q.ID != id {
			t.Fatalf("position %d: got %v %v, want %s", i, q, ok, id)
		}
	}
	if _, ok := cat.At(3); ok {
		t.Fatalf("expected out of range at 3")
	}
	if _, ok := cat.At(-1); ok {
		t.Fatalf("expected out of range at -1")
	}
}

func TestLoadCatalog_FileAndDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.json")
	data := `[{"id":"Q1","prompt":"Do you own a vehicle?"},{"id":"Q2","prompt":"What is the make?"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("expected 2 questions, got %d", cat.Len())
	}

	def, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("default load: %v", err)
	}
	if def.Len() == 0 {
		t.Fatalf("default catalog must not be empty")
	}

	if _, err := LoadCatalog(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("not-json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadCatalog(bad); err == nil {
		t.Fatalf("expected error for malformed file")
	}
}
