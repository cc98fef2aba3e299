package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/lingochat/lingochat/internal/types"
)

const defaultBaseURL = "https://api.openai.com/v1"

var languageNames = map[types.Language]string{
	types.LangKorean:  "Korean",
	types.LangEnglish: "English",
	types.LangSpanish: "Spanish",
}

// OpenAITranslator translates through the OpenAI chat completions API,
// fanning out one request per target language.
type OpenAITranslator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	log     *log.Logger
}

func NewOpenAITranslator(apiKey, model string, logger *log.Logger) *OpenAITranslator {
	return &OpenAITranslator{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
		log:     logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Translate requests every target language concurrently. Languages whose
// request fails or times out are simply omitted from the result; the
// error is non-nil only when nothing succeeded.
func (t *OpenAITranslator) Translate(ctx context.Context, text string, source types.Language) (map[types.Language]string, error) {
	targets := types.TargetLanguagesFor(source)

	var (
		mu      sync.Mutex
		results = make(map[types.Language]string, len(targets))
		wg      sync.WaitGroup
	)

	for _, target := range targets {
		wg.Add(1)
		go func(target types.Language) {
			defer wg.Done()

			translated, err := t.translateOne(ctx, text, source, target)
			if err != nil {
				t.log.Printf("translate %s->%s: %v", source, target, err)
				return
			}

			mu.Lock()
			results[target] = translated
			mu.Unlock()
		}(target)
	}
	wg.Wait()

	if len(results) == 0 {
		return nil, ErrNoTranslations
	}

	return results, nil
}

func (t *OpenAITranslator) translateOne(ctx context.Context, text string, source, target types.Language) (string, error) {
	normalized := strings.Join(strings.Fields(text), " ")

	prompt := fmt.Sprintf("You are a native %s speaker. Translate the given %s text into natural, colloquial %s that real locals would actually say.\n"+
		"Rules:\n"+
		"- Preserve the original meaning and tone\n"+
		"- Prefer common, everyday phrasing over textbook-style wording\n"+
		"- Output ONLY the translated text, no explanations or additional text",
		languageNames[target], languageNames[source], languageNames[target])

	body, err := json.Marshal(chatRequest{
		Model: t.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: normalized},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, payload)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}

	translated := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if translated == "" {
		return "", fmt.Errorf("empty translation")
	}

	return translated, nil
}
