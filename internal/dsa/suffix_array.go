package dsa

import (
	"sort"
	"strings"
)

// SuffixArray answers "how often does pattern occur in text" in
// O(m log n) after an O(n log^2 n) build (prefix doubling).
type SuffixArray struct {
	text string
	sa   []int // sa[i] = start of the i-th smallest suffix
}

// BuildSuffixArray constructs a suffix array for text.
func BuildSuffixArray(text string) *SuffixArray {
	n := len(text)
	s := &SuffixArray{text: text, sa: make([]int, n)}
	if n == 0 {
		return s
	}

	rank := make([]int, n)
	next := make([]int, n)
	for i := 0; i < n; i++ {
		s.sa[i] = i
		rank[i] = int(text[i])
	}

	// rankAt treats positions past the end as smaller than any character.
	rankAt := func(i int) int {
		if i < n {
			return rank[i]
		}
		return -1
	}

	for k := 1; ; k *= 2 {
		less := func(a, b int) bool {
			if rank[a] != rank[b] {
				return rank[a] < rank[b]
			}
			return rankAt(a+k) < rankAt(b+k)
		}
		sort.Slice(s.sa, func(i, j int) bool { return less(s.sa[i], s.sa[j]) })

		next[s.sa[0]] = 0
		for i := 1; i < n; i++ {
			next[s.sa[i]] = next[s.sa[i-1]]
			if less(s.sa[i-1], s.sa[i]) {
				next[s.sa[i]]++
			}
		}
		copy(rank, next)

		if rank[s.sa[n-1]] == n-1 || k >= n {
			break
		}
	}

	return s
}

// Count returns the number of (possibly overlapping) occurrences of pattern.
func (s *SuffixArray) Count(pattern string) int {
	lo, hi := s.bounds(pattern)
	return hi - lo
}

// Contains reports whether pattern occurs in the text.
func (s *SuffixArray) Contains(pattern string) bool {
	return s.Count(pattern) > 0
}

// bounds returns the half-open range of sa whose suffixes start with pattern.
func (s *SuffixArray) bounds(pattern string) (int, int) {
	if pattern == "" || len(s.sa) == 0 {
		return 0, 0
	}
	m := len(pattern)
	prefix := func(i int) string {
		suffix := s.text[s.sa[i]:]
		if len(suffix) > m {
			return suffix[:m]
		}
		return suffix
	}
	lo := sort.Search(len(s.sa), func(i int) bool {
		return strings.Compare(prefix(i), pattern) >= 0
	})
	hi := sort.Search(len(s.sa), func(i int) bool {
		return strings.Compare(prefix(i), pattern) > 0
	})
	return lo, hi
}
