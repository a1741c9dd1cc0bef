package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/richinex/askbase/internal/dsa"
)

// Scoring weights for LexicalIndex.
const (
	keywordWeight = 5.0 // query term equal to an entry keyword
	phraseBonus   = 2.0 // per query term, when the whole query occurs verbatim
	minTermLength = 2
)

var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "an": {}, "and": {}, "are": {}, "can": {}, "could": {},
	"do": {}, "does": {}, "explain": {}, "for": {}, "how": {}, "i": {}, "in": {},
	"is": {}, "it": {}, "me": {}, "of": {}, "on": {}, "or": {}, "please": {},
	"tell": {}, "that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "who": {}, "why": {}, "with": {},
	"you": {},
}

// LexicalIndex ranks documents by term occurrences. It needs no network
// or credentials.
//
// The vocabulary lives in radix tries (term -> posting list) so a query term
// also reaches longer forms ("annotation" finds "annotations"); per-document
// suffix arrays count occurrences and detect whole-query phrases.
type LexicalIndex struct {
	mu       sync.RWMutex
	built    bool
	docs     []string
	terms    *dsa.Trie[[]int]
	keywords *dsa.Trie[[]int]
	texts    []*dsa.SuffixArray
}

// NewLexicalIndex creates an empty index.
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{}
}

// Build indexes docs, replacing any previous contents.
func (x *LexicalIndex) Build(ctx context.Context, docs []Document) error {
	terms := dsa.NewTrie[[]int]()
	keywords := dsa.NewTrie[[]int]()
	texts := make([]*dsa.SuffixArray, len(docs))
	plain := make([]string, len(docs))

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		lower := strings.ToLower(doc.Text)
		plain[i] = doc.Text
		texts[i] = dsa.BuildSuffixArray(lower)

		for _, term := range uniqueTokens(lower) {
			addPosting(terms, term, i)
		}
		for _, kw := range doc.Keywords {
			for _, term := range uniqueTokens(strings.ToLower(kw)) {
				addPosting(keywords, term, i)
			}
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs = plain
	x.terms = terms
	x.keywords = keywords
	x.texts = texts
	x.built = true
	return nil
}

// Search scores every document sharing a term with query. Documents with a
// zero score are not returned; ties keep definition order.
func (x *LexicalIndex) Search(ctx context.Context, query string) ([]Candidate, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if !x.built {
		return nil, ErrNotBuilt
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lower := strings.ToLower(strings.TrimSpace(query))
	queryTerms := contentTerms(lower)
	scores := make([]float64, len(x.docs))

	for _, term := range queryTerms {
		if posting, ok := x.keywords.Search(term); ok {
			for _, doc := range posting {
				scores[doc] += keywordWeight
			}
		}

		seen := make(map[int]struct{})
		x.terms.WalkPrefix(term, func(_ string, posting []int) bool {
			for _, doc := range posting {
				seen[doc] = struct{}{}
			}
			return false
		})
		for doc := range seen {
			scores[doc] += float64(x.texts[doc].Count(term))
		}
	}

	if len(queryTerms) > 1 {
		for doc, sa := range x.texts {
			if scores[doc] > 0 && sa.Contains(lower) {
				scores[doc] += phraseBonus * float64(len(queryTerms))
			}
		}
	}

	var result []Candidate
	for doc, score := range scores {
		if score > 0 {
			result = append(result, Candidate{Text: x.docs[doc], Score: score})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result, nil
}

func addPosting(trie *dsa.Trie[[]int], term string, doc int) {
	posting, _ := trie.Search(term)
	if n := len(posting); n > 0 && posting[n-1] == doc {
		return
	}
	trie.Insert(term, append(posting, doc))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniqueTokens(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// contentTerms returns the distinct query terms worth scoring.
func contentTerms(text string) []string {
	var out []string
	for _, tok := range uniqueTokens(text) {
		if len(tok) < minTermLength {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Verify LexicalIndex implements Index
var _ Index = (*LexicalIndex)(nil)
