package service

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const DefaultMaskRune = '*'

// noise may sit between the letters of a listed word ("s.h.i.t"). It never
// spans whitespace, so separate words are not glued together.
const noise = `[^\p{L}\p{N}\s]*`

// ProfanityMasker replaces listed words with a same-length run of MaskRune.
type ProfanityMasker struct {
	standalone *regexp.Regexp
	substring  *regexp.Regexp
	whitelist  map[string]struct{}
	mask       rune
}

// NewProfanityMasker normalizes wl and compiles its standalone and substring
// patterns.
func NewProfanityMasker(wl WordList) (*ProfanityMasker, error) {
	wl = MergeWordLists(wl)

	m := &ProfanityMasker{
		whitelist: make(map[string]struct{}, len(wl.Whitelist)),
		mask:      DefaultMaskRune,
	}
	for _, w := range wl.Whitelist {
		m.whitelist[alnumFold(w)] = struct{}{}
	}

	var err error
	if m.standalone, err = compileWordPattern(wl.Standalone); err != nil {
		return nil, err
	}
	if m.substring, err = compileWordPattern(wl.Substring); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ProfanityMasker) Sanitize(text string) string {
	if text == "" {
		return text
	}

	masked := make([]bool, len(text))
	hit := false

	if m.standalone != nil {
		for _, loc := range m.standalone.FindAllStringIndex(text, -1) {
			if !isWordBoundary(text, loc[0], loc[1]) || m.whitelisted(text, loc[0], loc[1]) {
				continue
			}
			markRange(masked, loc[0], loc[1])
			hit = true
		}
	}
	if m.substring != nil {
		for _, loc := range m.substring.FindAllStringIndex(text, -1) {
			if m.whitelisted(text, loc[0], loc[1]) {
				continue
			}
			markRange(masked, loc[0], loc[1])
			hit = true
		}
	}
	if !hit {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for i, r := range text {
		if masked[i] {
			b.WriteRune(m.mask)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// whitelisted checks the whole alphanumeric token around [start, end).
func (m *ProfanityMasker) whitelisted(text string, start, end int) bool {
	if len(m.whitelist) == 0 {
		return false
	}
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !isWordRune(r) {
			break
		}
		start -= size
	}
	for end < len(text) {
		r, size := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(r) {
			break
		}
		end += size
	}
	_, ok := m.whitelist[alnumFold(text[start:end])]
	return ok
}

func compileWordPattern(words []string) (*regexp.Regexp, error) {
	if len(words) == 0 {
		return nil, nil
	}
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
	})

	alts := make([]string, 0, len(sorted))
	for _, w := range sorted {
		letters := make([]string, 0, len(w))
		for _, r := range w {
			letters = append(letters, regexp.QuoteMeta(string(r)))
		}
		alts = append(alts, strings.Join(letters, noise))
	}
	return regexp.Compile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}

func isWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func markRange(masked []bool, start, end int) {
	for i := start; i < end; i++ {
		masked[i] = true
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func alnumFold(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isWordRune(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
