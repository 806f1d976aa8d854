package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRefusal(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		refusal bool
	}{
		{name: "plain translation", output: "Hola mundo", refusal: false},
		{name: "cannot", output: "I cannot translate this content.", refusal: true},
		{name: "apology", output: "I'm sorry, but...", refusal: true},
		{name: "sorry comma", output: "Sorry, no.", refusal: true},
		{name: "case insensitive", output: "I DON'T UNDERSTAND", refusal: true},
		{name: "sorry inside word is fine", output: "El sol brillaba", refusal: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.refusal, isRefusal(tt.output))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("hello", "english", "spanish")
	assert.Contains(t, prompt, "Translate the following english text into spanish.")
	assert.Contains(t, prompt, "<|im_start|>user\nhello<|im_end|>")

	// Auto source omits the language qualifier.
	prompt = buildPrompt("hello", "auto", "spanish")
	assert.Contains(t, prompt, "Translate the following text into spanish.")
}

func TestFallbackPrompt(t *testing.T) {
	assert.Equal(t, "Translate to spanish: hello\n\nTranslation:", fallbackPrompt("hello", "spanish"))
}
