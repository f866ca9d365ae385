package translateapi

import (
	"context"
	"strings"
	"testing"
)

func TestTranslate_EmptyTextShortCircuits(t *testing.T) {
	c := &Client{} // no chat model configured; must not be reached
	got, err := c.Translate(context.Background(), "   ", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "   " {
		t.Errorf("got %q, want input echoed back unchanged", got)
	}
}

func TestSystemPrompt_NamesTargetLanguage(t *testing.T) {
	prompt := systemPrompt("French")
	if !strings.Contains(prompt, "French") {
		t.Errorf("expected prompt to mention target language, got: %s", prompt)
	}
	if !strings.Contains(strings.ToLower(prompt), "preserve") {
		t.Error("expected prompt to instruct preserving structural markers")
	}
}
