package workflow

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"taxbuddy/config"
)

// Message is one entry of the context package handed to the collaborator.
type Message struct {
	Role string
	Text string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Collaborator is the reasoning collaborator boundary: a blocking, synchronous
// call that turns the assembled context package into free text. The engine
// tolerates refusal, malformed, or empty replies without corrupting session
// state.
type Collaborator interface {
	Complete(ctx context.Context, msgs []Message, temperature float64, maxTokens int) (string, error)
}

// OpenAICollaborator implements Collaborator on the chat-completions API.
type OpenAICollaborator struct {
	client *openai.Client
	model  string
}

func NewOpenAICollaborator(cfg config.Config) *OpenAICollaborator {
	cc := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		cc.BaseURL = cfg.OpenAIBaseURL
	}
	return &OpenAICollaborator{client: openai.NewClientWithConfig(cc), model: cfg.Model}
}

func (o *OpenAICollaborator) Complete(ctx context.Context, msgs []Message, temperature float64, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Text,
		})
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty collaborator response")
	}
	return resp.Choices[0].Message.Content, nil
}
