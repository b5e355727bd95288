// Package feature converts raw comment text into numeric count features:
// a pluggable tokenizer produces token sequences, and CountVectorizer turns
// them into a document-term matrix with optional document-frequency trimming.
package feature

import (
	"regexp"
	"strings"
)

// Tokenizer turns raw text into a token sequence. Implementations own all
// normalization decisions (casing, stemming, stopwords); the vectorizer
// treats the output as opaque terms.
type Tokenizer interface {
	Tokenize(text string) []string
}

// TokenizerFunc adapts a plain function to the Tokenizer interface.
type TokenizerFunc func(text string) []string

// Tokenize calls f(text).
func (f TokenizerFunc) Tokenize(text string) []string {
	return f(text)
}

var (
	urlPattern   = regexp.MustCompile(`https?://\S+|www\.\S+`)
	splitPattern = regexp.MustCompile(`[^a-z0-9']+`)
)

// RegexpTokenizer is the default tokenizer: lowercase, strip URLs, split on
// non-alphanumeric runs, then drop short tokens and stopwords. Stemming is
// deliberately not built in; wrap a stemmer around it via TokenizerFunc when
// a stemming dictionary is available.
type RegexpTokenizer struct {
	stopwords   map[string]struct{}
	minTokenLen int
}

// TokenizerOption configures a RegexpTokenizer.
type TokenizerOption func(*RegexpTokenizer)

// WithStopwords sets the tokens to drop after normalization.
func WithStopwords(words []string) TokenizerOption {
	return func(t *RegexpTokenizer) {
		t.stopwords = make(map[string]struct{}, len(words))
		for _, w := range words {
			t.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithMinTokenLen sets the minimum surviving token length.
func WithMinTokenLen(n int) TokenizerOption {
	return func(t *RegexpTokenizer) {
		t.minTokenLen = n
	}
}

// NewRegexpTokenizer creates a RegexpTokenizer. Defaults: no stopwords,
// minimum token length 2.
func NewRegexpTokenizer(opts ...TokenizerOption) *RegexpTokenizer {
	t := &RegexpTokenizer{
		minTokenLen: 2,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tokenize normalizes text to a token sequence. The same input always yields
// the same output.
func (t *RegexpTokenizer) Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	lowered = urlPattern.ReplaceAllString(lowered, " ")

	parts := splitPattern.Split(lowered, -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "'")
		if len(p) < t.minTokenLen {
			continue
		}
		if _, stop := t.stopwords[p]; stop {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}
