package service

import "strings"

// Sanitizer turns untrusted message text into storable plain text.
// Implementations are immutable and safe for concurrent use.
type Sanitizer interface {
	Sanitize(text string) string
}

// Pipeline runs its stages in order.
type Pipeline struct {
	stages []Sanitizer
}

// NewPipeline runs stages in order.
func NewPipeline(stages ...Sanitizer) *Pipeline {
	return &Pipeline{stages: append([]Sanitizer(nil), stages...)}
}

func (p *Pipeline) Sanitize(text string) string {
	for _, s := range p.stages {
		text = s.Sanitize(text)
	}
	return strings.TrimSpace(text)
}

// NewMessageSanitizer builds the message pipeline: strip markup, then mask
// profanity using the embedded word lists merged with any extras.
func NewMessageSanitizer(extra ...WordList) (*Pipeline, error) {
	lists, err := DefaultWordLists()
	if err != nil {
		return nil, err
	}
	masker, err := NewProfanityMasker(MergeWordLists(append(lists, extra...)...))
	if err != nil {
		return nil, err
	}
	return NewPipeline(HTMLSanitizer{}, masker), nil
}
