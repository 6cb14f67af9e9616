package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"himyc/internal/corpus"
)

// File is the on-disk catalog layout.
type File struct {
	Characters []Entry `yaml:"characters"`
}

// Entry is one catalog character.
type Entry struct {
	ID    string            `yaml:"id"`
	Name  string            `yaml:"name"`
	Names map[string]string `yaml:"names,omitempty"`
}

// Load reads and validates the catalog at path.
func Load(path string) ([]corpus.Character, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(contents)
}

// Parse decodes catalog YAML. Unknown keys are rejected.
func Parse(contents []byte) ([]corpus.Character, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Characters))
	chars := make([]corpus.Character, 0, len(file.Characters))
	for i, entry := range file.Characters {
		id := strings.TrimSpace(entry.ID)
		name := strings.TrimSpace(entry.Name)
		if id == "" {
			return nil, fmt.Errorf("catalog entry %d: id is required", i)
		}
		if name == "" {
			return nil, fmt.Errorf("catalog entry %q: name is required", id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("catalog entry %q: duplicate id", id)
		}
		seen[id] = struct{}{}

		var names map[string]string
		for lang, localized := range entry.Names {
			lang = corpus.NormalizeLang(lang)
			localized = strings.TrimSpace(localized)
			if lang == "" || localized == "" {
				continue
			}
			if names == nil {
				names = make(map[string]string, len(entry.Names))
			}
			names[lang] = localized
		}
		chars = append(chars, corpus.Character{ID: id, Canonical: name, Names: names})
	}
	return chars, nil
}

// Marshal encodes characters in catalog layout, sorted by id.
func Marshal(chars []corpus.Character) ([]byte, error) {
	sorted := append([]corpus.Character(nil), chars...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	file := File{Characters: make([]Entry, len(sorted))}
	for i, ch := range sorted {
		file.Characters[i] = Entry{ID: ch.ID, Name: ch.Canonical, Names: ch.Names}
	}
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&file); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}

// Upserter persists catalog characters.
type Upserter interface {
	UpsertCharacters(ctx context.Context, chars []corpus.Character) error
}

// Import loads the catalog at path and upserts it, returning the number of
// characters written.
func Import(ctx context.Context, dst Upserter, path string) (int, error) {
	if dst == nil {
		return 0, errors.New("catalog import requires a destination")
	}
	chars, err := Load(path)
	if err != nil {
		return 0, err
	}
	if len(chars) == 0 {
		return 0, nil
	}
	if err := dst.UpsertCharacters(ctx, chars); err != nil {
		return 0, err
	}
	return len(chars), nil
}

// Index resolves speaker labels to characters. Labels match a character's
// id, canonical name, or any localized name, ignoring case.
type Index struct {
	byID    map[string]corpus.Character
	byLabel map[string]corpus.Character
	fold    cases.Caser
}

// NewIndex builds an index over chars. When two characters share a label the
// first one wins.
func NewIndex(chars []corpus.Character) *Index {
	idx := &Index{
		byID:    make(map[string]corpus.Character, len(chars)),
		byLabel: make(map[string]corpus.Character, len(chars)*2),
		fold:    cases.Fold(),
	}
	for _, ch := range chars {
		idx.byID[ch.ID] = ch
		idx.add(ch.ID, ch)
		idx.add(ch.Canonical, ch)
		for _, name := range ch.Names {
			idx.add(name, ch)
		}
	}
	return idx
}

func (idx *Index) key(label string) string {
	return idx.fold.String(strings.Join(strings.Fields(label), " "))
}

func (idx *Index) add(label string, ch corpus.Character) {
	key := idx.key(label)
	if key == "" {
		return
	}
	if _, exists := idx.byLabel[key]; !exists {
		idx.byLabel[key] = ch
	}
}

// Resolve maps a free-text speaker label to a character.
func (idx *Index) Resolve(label string) (corpus.Character, bool) {
	key := idx.key(label)
	if key == "" {
		return corpus.Character{}, false
	}
	ch, ok := idx.byLabel[key]
	return ch, ok
}

// Len returns the number of indexed characters.
func (idx *Index) Len() int {
	return len(idx.byID)
}
