package lexicon

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/EternisAI/persona-blend/pkg/logging"
)

// LLM classifies text with a chat-completions model. It is an out-of-process call, so
// callers should bound it with a context deadline.
type LLM struct {
	client *openai.Client
	model  string
	logger *log.Logger
}

var _ Classifier = (*LLM)(nil)

func NewLLM(logger *log.Logger, apiKey, baseURL, model string, opts ...option.RequestOption) *LLM {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	}, opts...)
	client := openai.NewClient(opts...)
	return &LLM{
		client: &client,
		model:  model,
		logger: logging.OrDiscard(logger),
	}
}

type llmAnswer struct {
	Categories []Category `json:"categories"`
}

func classificationPrompt() string {
	names := lo.Map(Categories(), func(c Category, _ int) string { return string(c) })
	return fmt.Sprintf(`You label messages with the moral foundations they touch.
Allowed labels: %s.
Reply with a JSON object only, shaped like {"categories": ["care_harm"]}. Use an empty list when none apply.`,
		strings.Join(names, ", "))
}

func (l *LLM) Classify(ctx context.Context, text string) ([]Category, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	completion, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: l.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classificationPrompt()),
			openai.UserMessage(text),
		},
		Temperature: param.NewOpt(0.0),
	})
	if err != nil {
		return nil, errors.Wrap(err, "lexicon completion")
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("lexicon completion returned no choices")
	}

	cats, err := parseAnswer(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Classified text", "model", l.model, "categories", cats)
	return cats, nil
}

// parseAnswer accepts the JSON object optionally wrapped in prose or a code fence.
func parseAnswer(content string) ([]Category, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, errors.Errorf("lexicon completion is not JSON: %q", content)
	}

	var answer llmAnswer
	if err := json.Unmarshal([]byte(content[start:end+1]), &answer); err != nil {
		return nil, errors.Wrap(err, "decode lexicon completion")
	}
	for i, c := range answer.Categories {
		answer.Categories[i] = Category(strings.ToLower(strings.TrimSpace(string(c))))
	}
	return Normalize(answer.Categories), nil
}
