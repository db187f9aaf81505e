package discovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/competitor-research/internal/llm"
)

const analystSystem = "You are a business intelligence analyst. Answer with facts about real, existing companies only."

func contextRequest(seed string) llm.Request {
	return llm.Request{
		Phase:  "context",
		System: analystSystem,
		Prompt: fmt.Sprintf(`Give a brief factual analysis of "%s" covering:
- primary industry
- main products or services
- target market
- business model

Stay under 200 words.`, seed),
		MaxTokens:   300,
		Temperature: 0.2,
		Timeout:     30 * time.Second,
	}
}

// fallbackContext is used when the context call fails.
func fallbackContext(seed string) string {
	return fmt.Sprintf("Technology company in the %s industry", seed)
}

func generationRequest(seed, description string, count int, exclude []string) llm.Request {
	var b strings.Builder
	fmt.Fprintf(&b, "List %d REAL, currently operating direct competitors of %q.\n\n", count, seed)
	fmt.Fprintf(&b, "Company context: %s\n\n", description)
	b.WriteString(`Requirements:
1. Only companies that actually exist.
2. Same industry and market segment as the company above.
3. Mix established leaders with emerging or niche players.
4. Never use placeholders such as "Company Name 1" or "Competitor A".
`)
	if len(exclude) > 0 {
		fmt.Fprintf(&b, "5. Do not repeat any of: %s.\n", strings.Join(exclude, ", "))
	}
	b.WriteString(`
Respond with a JSON array only:
[
  {"name": "Exact Company Name", "reason": "Why they compete", "industry": "Industry segment", "confidence": 0.9}
]`)
	return llm.Request{
		Phase:       "generate",
		System:      analystSystem,
		Prompt:      b.String(),
		MaxTokens:   2000,
		Temperature: 0.3,
		Timeout:     45 * time.Second,
	}
}

func verifyRequest(seed, candidate string) llm.Request {
	return llm.Request{
		Phase: "verify",
		Prompt: fmt.Sprintf(`Are %q and %q direct competitors?
Consider whether they share an industry, target similar customers and sell competing products or services.

Answer with only YES or NO.`, candidate, seed),
		MaxTokens:   10,
		Temperature: 0.1,
		Timeout:     20 * time.Second,
	}
}
