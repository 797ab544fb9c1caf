package ollama

import (
	"fmt"
	"strings"
)

// BuildPrompt assembles the generation instruction: raw JSON only, the exact
// key set one line per key, and the user context verbatim.
func BuildPrompt(variableNames []string, userContext string) string {
	var sb strings.Builder

	sb.WriteString("You generate placeholder content for a visual design document.\n")
	sb.WriteString("Respond with a single raw JSON object and nothing else - no commentary, no markdown, no code fences.\n")
	sb.WriteString("The JSON object must contain exactly the following keys:\n")
	for _, name := range variableNames {
		fmt.Fprintf(&sb, "- %q: content suitable for a layer named %q\n", name, name)
	}
	sb.WriteString("\nContext for the content:\n")
	sb.WriteString(userContext)

	return sb.String()
}

// StripCodeFence removes a leading/trailing fenced-code wrapper, with or
// without a language tag. Some backends wrap JSON in fences despite being
// told not to.
func StripCodeFence(s string) string {
	out := strings.TrimSpace(s)
	if !strings.HasPrefix(out, "```") {
		return out
	}

	out = out[3:]
	// Drop a language tag on the opening fence line ("json", "JSON", ...).
	if nl := strings.IndexByte(out, '\n'); nl >= 0 && isLanguageTag(strings.TrimSpace(out[:nl])) {
		out = out[nl+1:]
	}
	out = strings.TrimSpace(out)
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
