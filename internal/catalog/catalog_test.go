package catalog_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"himyc/internal/catalog"
	"himyc/internal/corpus"
	"himyc/internal/testsupport"
)

const sample = `characters:
  - id: ted
    name: Ted Mosby
    names:
      FR: Ted
      es: " "
  - id: barney
    name: Barney Stinson
`

func TestParse(t *testing.T) {
	chars, err := catalog.Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(chars) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(chars))
	}
	ted := chars[0]
	if ted.ID != "ted" || ted.Canonical != "Ted Mosby" || ted.Names["fr"] != "Ted" {
		t.Fatalf("unexpected character: %+v", ted)
	}
	if _, ok := ted.Names["es"]; ok {
		t.Fatal("blank localized names must be dropped")
	}
	if ted.NameFor("es") != "Ted Mosby" {
		t.Fatalf("expected canonical fallback, got %q", ted.NameFor("es"))
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown key":  "characters:\n  - id: ted\n    name: Ted\n    age: 27\n",
		"missing id":   "characters:\n  - name: Ted\n",
		"missing name": "characters:\n  - id: ted\n",
		"duplicate":    "characters:\n  - id: ted\n    name: Ted\n  - id: ted\n    name: Teddy\n",
	}
	for name, contents := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := catalog.Parse([]byte(contents)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	chars, err := catalog.Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := catalog.Marshal(chars)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), "characters:\n  - id: barney\n") {
		t.Fatalf("expected sorted output, got:\n%s", data)
	}
	back, err := catalog.Parse(data)
	if err != nil {
		t.Fatalf("Parse marshaled: %v", err)
	}
	if len(back) != 2 || back[1].Names["fr"] != "Ted" {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestImportIntoStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	path := filepath.Join(t.TempDir(), "characters.yaml")
	testsupport.WriteFile(t, path, sample)

	n, err := catalog.Import(context.Background(), st, path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported, got %d", n)
	}
	stored, err := st.ListCharacters(context.Background())
	if err != nil {
		t.Fatalf("ListCharacters: %v", err)
	}
	if len(stored) != 2 || stored[1].ID != "ted" || stored[1].NameFor("FR") != "Ted" {
		t.Fatalf("unexpected stored catalog: %+v", stored)
	}
}

func TestIndexResolve(t *testing.T) {
	idx := catalog.NewIndex([]corpus.Character{
		{ID: "ted", Canonical: "Ted Mosby", Names: map[string]string{"fr": "Ted"}},
		{ID: "marshall", Canonical: "Marshall Eriksen"},
	})
	tests := []struct {
		label string
		want  string
	}{
		{"TED", "ted"},
		{"ted  mosby", "ted"},
		{"Marshall Eriksen", "marshall"},
		{"MARSHALL", "marshall"},
		{"Lily", ""},
		{"", ""},
	}
	for _, tt := range tests {
		ch, ok := idx.Resolve(tt.label)
		if tt.want == "" {
			if ok {
				t.Errorf("Resolve(%q) unexpectedly matched %s", tt.label, ch.ID)
			}
			continue
		}
		if !ok || ch.ID != tt.want {
			t.Errorf("Resolve(%q) = %q,%v want %q", tt.label, ch.ID, ok, tt.want)
		}
	}
	if idx.Len() != 2 {
		t.Fatalf("Len = %d", idx.Len())
	}
}
