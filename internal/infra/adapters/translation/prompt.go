package translation

import (
	"fmt"
	"strings"

	"translation-queue/internal/domain/ports/adapter"
)

func systemPrompt(req adapter.TranslationRequest) string {
	src := "the detected source language"
	if s := strings.TrimSpace(req.SourceLanguage); s != "" && baseCode(s) != "auto" {
		src = LanguageName(s)
	}
	return fmt.Sprintf(
		"You are a translation engine. Translate the user's text from %s to %s. "+
			"Reply with the translation only, keep line breaks, and do not add notes.",
		src, LanguageName(req.TargetLanguage))
}
