package translate

import (
	"fmt"
	"strings"
)

// Sampling constants are fixed, not configurable per call.
type samplingParams struct {
	Temperature   float64
	TopP          float64
	TopK          int
	RepeatPenalty float64
	MaxTokens     int
	Stop          []string
}

var primarySampling = samplingParams{
	Temperature:   0.3,
	TopP:          0.9,
	TopK:          40,
	RepeatPenalty: 1.1,
	MaxTokens:     512,
	Stop:          []string{"<|im_end|>", "<|im_start|>", "\n\n"},
}

var fallbackSampling = samplingParams{
	Temperature: 0.2,
	MaxTokens:   512,
	Stop:        []string{"\n", "<|im_end|>"},
}

// buildPrompt formats the main chat-style translation instruction.
func buildPrompt(text, sourceLang, targetLang string) string {
	source := ""
	if sourceLang != "" && !strings.EqualFold(sourceLang, "auto") {
		source = sourceLang + " "
	}
	return fmt.Sprintf(`<|im_start|>system
You are a professional translator. Translate the following %stext into %s.
Rules:
- Output ONLY the translation, nothing else
- Preserve the original meaning and tone
- Keep proper nouns as-is unless they have a standard translation
- If unsure, make your best effort<|im_end|>
<|im_start|>user
%s<|im_end|>
<|im_start|>assistant
`, source, targetLang, text)
}

// fallbackPrompt is the bare retry used when the chat prompt is refused.
func fallbackPrompt(text, targetLang string) string {
	return fmt.Sprintf("Translate to %s: %s\n\nTranslation:", targetLang, text)
}

// refusalPhrases mark outputs where the model declined instead of
// translating.
var refusalPhrases = []string{
	"i don't understand",
	"i cannot",
	"i'm sorry",
	"sorry,",
}

func isRefusal(output string) bool {
	lower := strings.ToLower(output)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
