package ai

import (
	"fmt"
	"strings"

	"github.com/songzhibin97/memeflux/internal/models"
)

const systemPrompt = `You are a meme coin narrative analyst. You analyze lists of Solana meme tokens and identify STRONG narrative themes. You always respond with valid JSON only.`

const userPromptTemplate = `Analyze the following list of Solana meme tokens and identify STRONG narrative themes — groups of 3 or more tokens that share a common theme or trend.

TOKEN LIST:
%s

INSTRUCTIONS:
1. Identify distinct narrative themes (e.g., "Dog Coins", "AI Tokens", "Political Memes", "Frog/Pepe Variants", etc.)
2. Each narrative must have AT LEAST 3 matching tokens from the list
3. A token can only belong to ONE narrative (choose the best fit)
4. For each narrative, suggest a creative token name and 3-5 letter symbol for a reactive token that could be minted in response
5. Rate each narrative with a "confidence" score from 1-10 based on:
   - How many tokens match (more = higher)
   - How clearly the theme is defined (clearer = higher)
   - How trendy/viral the narrative feels (hotter = higher)
6. Only return narratives you are confident about — quality over quantity

Respond with ONLY valid JSON using this exact schema:
{
  "narratives": [
    {
      "name": "Narrative Theme Name",
      "description": "Brief exciting description of why this narrative is trending (include an emoji)",
      "tokenName": "SuggestedTokenName",
      "symbol": "SYM",
      "confidence": 8,
      "matchingTokens": ["TOKEN1", "TOKEN2", "TOKEN3"]
    }
  ]
}

If no strong narratives are found (fewer than 3 tokens matching any theme), return: { "narratives": [] }`

// BuildPrompt returns the system and user prompts for a token list.
func BuildPrompt(tokens []models.TokenData) (string, string) {
	labels := make([]string, len(tokens))
	for i, t := range tokens {
		labels[i] = t.Label()
	}
	return systemPrompt, fmt.Sprintf(userPromptTemplate, strings.Join(labels, ", "))
}
