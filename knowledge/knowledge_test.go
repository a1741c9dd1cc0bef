package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher(t *testing.T) {
	base := Default()
	m := NewMatcher(base)
	entries := base.Entries()

	t.Run("ShouldMatchJavaEntry", func(t *testing.T) {
		e, ok := m.Match("what is java")
		require.True(t, ok)
		assert.Equal(t, entries[0].Answer, e.Answer)
	})

	t.Run("ShouldIgnoreCase", func(t *testing.T) {
		e, ok := m.Match("Tell me about SPRING BOOT")
		require.True(t, ok)
		assert.Equal(t, entries[1].Answer, e.Answer)
	})

	t.Run("ShouldPreferDefinitionOrderOverBestMatch", func(t *testing.T) {
		// "java" (entry 0) and "spring boot" (entry 1) both occur; entry 0 wins.
		e, ok := m.Match("spring boot for java developers")
		require.True(t, ok)
		assert.Equal(t, entries[0].Answer, e.Answer)
	})

	t.Run("ShouldMatchSubstringsInsideWords", func(t *testing.T) {
		e, ok := m.Match("restaurant")
		require.True(t, ok)
		assert.Equal(t, entries[4].Answer, e.Answer)
	})

	t.Run("ShouldReturnFallbackWhenNothingMatches", func(t *testing.T) {
		_, ok := m.Match("xyzzy nonsense")
		assert.False(t, ok)
		assert.Equal(t, FallbackAnswer, m.Answer("xyzzy nonsense"))
	})

	t.Run("ShouldBeDeterministic", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			assert.Equal(t, m.Answer("explain the jvm"), m.Answer("explain the jvm"))
		}
	})
}

func TestNewBase(t *testing.T) {
	t.Run("ShouldRejectEmptyBase", func(t *testing.T) {
		_, err := NewBase(nil)
		require.Error(t, err)
	})

	t.Run("ShouldRejectEntryWithoutKeywords", func(t *testing.T) {
		_, err := NewBase([]Entry{{Keywords: []string{" "}, Answer: "a"}})
		require.Error(t, err)
	})

	t.Run("ShouldRejectEntryWithoutAnswer", func(t *testing.T) {
		_, err := NewBase([]Entry{{Keywords: []string{"go"}, Answer: ""}})
		require.Error(t, err)
	})

	t.Run("ShouldNotObserveCallerMutation", func(t *testing.T) {
		entries := []Entry{{Keywords: []string{"Go"}, Answer: "Go is a language."}}
		base, err := NewBase(entries)
		require.NoError(t, err)
		entries[0].Answer = "changed"

		got := base.Entries()
		assert.Equal(t, "Go is a language.", got[0].Answer)
		assert.Equal(t, []string{"go"}, got[0].Keywords)

		got[0].Keywords[0] = "mutated"
		assert.Equal(t, "go", base.Entries()[0].Keywords[0])
	})
}

func TestLoadBase(t *testing.T) {
	dir := t.TempDir()

	t.Run("ShouldLoadEntriesFromTOML", func(t *testing.T) {
		path := filepath.Join(dir, "kb.toml")
		content := `
[[entry]]
keywords = ["goroutine"]
answer = "A goroutine is a lightweight thread."

[[entry]]
keywords = ["channel", "chan"]
answer = "Channels connect goroutines."
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		base, err := LoadBase(path)
		require.NoError(t, err)
		require.Equal(t, 2, base.Len())

		e, ok := NewMatcher(base).Match("how does a chan work")
		require.True(t, ok)
		assert.Equal(t, "Channels connect goroutines.", e.Answer)
	})

	t.Run("ShouldFailOnEmptyFile", func(t *testing.T) {
		path := filepath.Join(dir, "empty.toml")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		_, err := LoadBase(path)
		require.Error(t, err)
	})

	t.Run("ShouldFailOnMissingFile", func(t *testing.T) {
		_, err := LoadBase(filepath.Join(dir, "missing.toml"))
		require.Error(t, err)
	})
}
