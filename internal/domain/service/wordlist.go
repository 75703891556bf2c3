package service

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed wordlists/*.yaml
var embeddedWordLists embed.FS

// WordList is the on-disk shape of a profanity list.
type WordList struct {
	// Standalone words only match as whole words.
	Standalone []string `yaml:"standalone"`
	// Substring words match anywhere, even inside longer words.
	Substring []string `yaml:"substring"`
	// Whitelist tokens are never masked, whatever they contain.
	Whitelist []string `yaml:"whitelist"`
}

// ParseWordList reads a YAML word list.
func ParseWordList(r io.Reader) (WordList, error) {
	var wl WordList
	if err := yaml.NewDecoder(r).Decode(&wl); err != nil && err != io.EOF {
		return WordList{}, fmt.Errorf("decode word list: %w", err)
	}
	return wl, nil
}

// LoadWordListFile is ParseWordList on the file at path.
func LoadWordListFile(path string) (WordList, error) {
	f, err := os.Open(path)
	if err != nil {
		return WordList{}, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()
	return ParseWordList(f)
}

// DefaultWordLists returns every list shipped with the binary.
func DefaultWordLists() ([]WordList, error) {
	paths, err := fs.Glob(embeddedWordLists, "wordlists/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	lists := make([]WordList, 0, len(paths))
	for _, p := range paths {
		f, err := embeddedWordLists.Open(p)
		if err != nil {
			return nil, err
		}
		wl, err := ParseWordList(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		lists = append(lists, wl)
	}
	return lists, nil
}

// MergeWordLists unions the lists, lower-casing and de-duplicating entries.
func MergeWordLists(lists ...WordList) WordList {
	var standalone, substring, whitelist []string
	for _, wl := range lists {
		standalone = append(standalone, wl.Standalone...)
		substring = append(substring, wl.Substring...)
		whitelist = append(whitelist, wl.Whitelist...)
	}
	return WordList{
		Standalone: dedupeFold(standalone),
		Substring:  dedupeFold(substring),
		Whitelist:  dedupeFold(whitelist),
	}
}

func dedupeFold(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
