// Prompt layout shared by all providers.
package llm

import (
	"fmt"
	"strings"
)

const (
	systemGeneral = "You are a helpful assistant. Answer the user's question clearly and concisely."

	systemGrounded = "You are a helpful assistant. Answer the user's question clearly and concisely. " +
		"Prefer the background material below over your own general knowledge; " +
		"use general knowledge only where the material is silent."
)

// Prompt is the provider-neutral form of one request.
type Prompt struct {
	System string
	User   string
}

// BuildMessages lays out query and retrieved background material.
// With no background the provider answers from general knowledge alone.
func BuildMessages(query string, background []string) Prompt {
	if len(background) == 0 {
		return Prompt{System: systemGeneral, User: query}
	}

	var b strings.Builder
	b.WriteString(systemGrounded)
	b.WriteString("\n\nBackground:\n")
	for i, doc := range background {
		fmt.Fprintf(&b, "%d. %s\n", i+1, doc)
	}
	return Prompt{System: strings.TrimRight(b.String(), "\n"), User: query}
}
