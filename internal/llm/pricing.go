package llm

// ModelCost holds USD pricing per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost calculates the total USD cost for the given token counts.
func (c ModelCost) Cost(inputTokens, outputTokens int64) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model ID. Friendly names resolve
// through the provider model tables first.
func LookupCost(modelID string) (ModelCost, bool) {
	for _, table := range []map[string]string{anthropicModels, openaiModels, geminiModels} {
		if id, ok := table[modelID]; ok {
			modelID = id
			break
		}
	}
	c, ok := modelCosts[modelID]
	return c, ok
}

// EstimateCost prices a usage total, reporting false for unknown models.
func EstimateCost(modelID string, inputTokens, outputTokens int64) (float64, bool) {
	c, ok := LookupCost(modelID)
	if !ok {
		return 0, false
	}
	return c.Cost(inputTokens, outputTokens), true
}

// modelCosts covers the models the phrasing layer is configured with by
// default and their close siblings.
var modelCosts = map[string]ModelCost{
	"claude-haiku-4-5":        {1, 5},
	"claude-sonnet-4-5":       {3, 15},
	"claude-3-5-haiku-latest": {0.8, 4},

	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-4o":       {2.5, 10},
	"gpt-4.1-mini": {0.4, 1.6},
	"gpt-4.1-nano": {0.1, 0.4},

	"gemini-2.0-flash":      {0.1, 0.4},
	"gemini-2.5-flash":      {0.3, 2.5},
	"gemini-2.5-flash-lite": {0.1, 0.4},

	"google/gemini-2.0-flash-001": {0.1, 0.4},
}
