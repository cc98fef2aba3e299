package translation

import (
	"context"
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/lingochat/lingochat/internal/types"
)

// phraseTable covers a handful of common greetings so local development
// works without an API key. Everything else degrades to a tagged
// placeholder.
var phraseTable = map[string]map[types.Language]string{
	"안녕하세요":           {types.LangKorean: "안녕하세요", types.LangEnglish: "Hello", types.LangSpanish: "Hola"},
	"안녕":              {types.LangKorean: "안녕", types.LangEnglish: "Hi", types.LangSpanish: "Hola"},
	"감사합니다":           {types.LangKorean: "감사합니다", types.LangEnglish: "Thank you", types.LangSpanish: "Gracias"},
	"좋은 아침입니다":        {types.LangKorean: "좋은 아침입니다", types.LangEnglish: "Good morning", types.LangSpanish: "Buenos días"},
	"Hello":           {types.LangKorean: "안녕하세요", types.LangEnglish: "Hello", types.LangSpanish: "Hola"},
	"Thank you":       {types.LangKorean: "감사합니다", types.LangEnglish: "Thank you", types.LangSpanish: "Gracias"},
	"Good morning":    {types.LangKorean: "좋은 아침입니다", types.LangEnglish: "Good morning", types.LangSpanish: "Buenos días"},
	"Nice to meet you": {types.LangKorean: "만나서 반갑습니다", types.LangEnglish: "Nice to meet you", types.LangSpanish: "Encantado de conocerte"},
	"Hola":            {types.LangKorean: "안녕하세요", types.LangEnglish: "Hello", types.LangSpanish: "Hola"},
	"Gracias":         {types.LangKorean: "감사합니다", types.LangEnglish: "Thank you", types.LangSpanish: "Gracias"},
	"Buenos días":     {types.LangKorean: "좋은 아침입니다", types.LangEnglish: "Good morning", types.LangSpanish: "Buenos días"},
}

// StubTranslator is the fallback gateway used when no OpenAI key is
// configured.
type StubTranslator struct{}

func NewStubTranslator() *StubTranslator {
	return &StubTranslator{}
}

func (t *StubTranslator) Translate(ctx context.Context, text string, source types.Language) (map[types.Language]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !source.Valid() {
		source = DetectLanguage(text)
	}

	results := make(map[types.Language]string)
	for _, target := range types.TargetLanguagesFor(source) {
		if entry, ok := phraseTable[strings.TrimSpace(text)]; ok {
			if translated, ok := entry[target]; ok {
				results[target] = translated
				continue
			}
		}

		snippet := []rune(text)
		suffix := ""
		if len(snippet) > 30 {
			snippet = snippet[:30]
			suffix = "..."
		}
		results[target] = fmt.Sprintf("[%s: %s%s]", languageNames[target], string(snippet), suffix)
	}

	return results, nil
}

// DetectLanguage guesses which supported language text is written in,
// defaulting to English when detection lands outside the supported set.
func DetectLanguage(text string) types.Language {
	info := whatlanggo.Detect(text)
	if lang := types.Language(info.Lang.Iso6391()); lang.Valid() {
		return lang
	}
	return types.LangEnglish
}
