package ai

import (
	"regexp"
	"strings"
)

// FallbackGreeting is used when a trigger strips down to an empty prompt.
const FallbackGreeting = "Hello! How can I help you?"

var (
	mentionAI        = regexp.MustCompile(`(?i)@ai`)
	mentionCollab    = regexp.MustCompile(`(?i)@collab`)
	mentionAssistant = regexp.MustCompile(`(?i)@assistant`)
	leadingAI        = regexp.MustCompile(`(?i)^ai[,:]`)
	leadingHeyAI     = regexp.MustCompile(`(?i)^hey ai[,:]`)
)

// ShouldTrigger reports whether a message requests an assistant reply.
// Matching is case-insensitive substring/prefix matching, deliberately not
// tokenized: "said:@ai" mid-sentence triggers too.
func ShouldTrigger(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "@ai") ||
		strings.Contains(lower, "@collab") ||
		strings.Contains(lower, "@assistant") ||
		strings.HasPrefix(lower, "ai,") ||
		strings.HasPrefix(lower, "hey ai") ||
		strings.HasPrefix(lower, "ai:")
}

// ExtractPrompt strips the trigger tokens from a message to obtain the
// actual prompt. Mention tokens are removed globally first, then a single
// leading "ai,"/"ai:" or "hey ai,"/"hey ai:" prefix. An empty result yields
// the fallback greeting.
func ExtractPrompt(content string) string {
	prompt := mentionAI.ReplaceAllString(content, "")
	prompt = mentionCollab.ReplaceAllString(prompt, "")
	prompt = mentionAssistant.ReplaceAllString(prompt, "")
	prompt = leadingAI.ReplaceAllString(prompt, "")
	prompt = leadingHeyAI.ReplaceAllString(prompt, "")
	prompt = strings.TrimSpace(prompt)

	if prompt == "" {
		return FallbackGreeting
	}
	return prompt
}
