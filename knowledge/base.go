// Package knowledge provides the static knowledge base and keyword matcher.
//
// Information Hiding:
// - Entry storage is private; callers only see copies
// - The base is fixed at construction and never mutated afterwards
// - File format for alternative bases (TOML) is hidden behind LoadBase

package knowledge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// FallbackAnswer is returned when no entry matches a query.
const FallbackAnswer = "I'm sorry, I only have access to data about Java and Spring Boot. Please ask me something related to those topics."

// Entry is a keyword set paired with the answer it selects.
type Entry struct {
	Keywords []string `toml:"keywords"`
	Answer   string   `toml:"answer"`
}

// Base is an immutable, ordered list of entries.
type Base struct {
	entries []Entry
}

// NewBase creates a base from entries. Keywords are lower-cased and the
// slice is copied, so later changes by the caller are not observed.
func NewBase(entries []Entry) (*Base, error) {
	if len(entries) == 0 {
		return nil, errors.New("knowledge base has no entries")
	}

	copied := make([]Entry, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Answer) == "" {
			return nil, fmt.Errorf("entry %d: empty answer", i)
		}
		keywords := make([]string, 0, len(e.Keywords))
		for _, k := range e.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("entry %d: no keywords", i)
		}
		copied[i] = Entry{Keywords: keywords, Answer: e.Answer}
	}

	return &Base{entries: copied}, nil
}

// Default returns the built-in Java / Spring Boot knowledge base.
func Default() *Base {
	base, err := NewBase(defaultEntries)
	if err != nil {
		panic(fmt.Sprintf("knowledge: invalid default base: %v", err))
	}
	return base
}

// LoadBase reads a knowledge base from a TOML file of [[entry]] tables.
func LoadBase(path string) (*Base, error) {
	var file struct {
		Entry []Entry `toml:"entry"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge base %s: %w", path, err)
	}

	base, err := NewBase(file.Entry)
	if err != nil {
		return nil, fmt.Errorf("invalid knowledge base %s: %w", path, err)
	}
	return base, nil
}

// Entries returns a copy of the entries in definition order.
func (b *Base) Entries() []Entry {
	result := make([]Entry, len(b.entries))
	for i, e := range b.entries {
		result[i] = Entry{
			Keywords: append([]string(nil), e.Keywords...),
			Answer:   e.Answer,
		}
	}
	return result
}

// Len returns the number of entries.
func (b *Base) Len() int {
	return len(b.entries)
}

var defaultEntries = []Entry{
	{
		Keywords: []string{"java", "what is java"},
		Answer:   "Java is a high-level, class-based, object-oriented programming language that is designed to have as few implementation dependencies as possible. It is widely used for building enterprise-scale applications.",
	},
	{
		Keywords: []string{"spring", "spring boot", "what is spring"},
		Answer:   "Spring Boot is an open source Java-based framework used to create a micro Service. It provides a good platform for Java developers to develop a stand-alone and production-grade spring application that you can just run.",
	},
	{
		Keywords: []string{"dependency injection", "di"},
		Answer:   "Dependency Injection (DI) is a design pattern used to implement IoC. It allows the creation of dependent objects outside of a class and provides those objects to a class through different ways (constructor, setter, or field).",
	},
	{
		Keywords: []string{"jvm", "machine"},
		Answer:   "JVM (Java Virtual Machine) is an abstract machine that enables your computer to run a Java program. When you run the Java program, Java compiler first compiles your Java code to bytecode. Then, the JVM translates bytecode into native machine code.",
	},
	{
		Keywords: []string{"rest", "api", "restful"},
		Answer:   "REST (Representational State Transfer) is an architectural style that defines a set of constraints to be used for creating web services. Spring Boot makes it very easy to build RESTful services using annotations like @RestController.",
	},
	{
		Keywords: []string{"hello", "hi", "hey"},
		Answer:   "Hello! I am your Java & Spring Boot assistant. Ask me anything about those topics.",
	},
}
