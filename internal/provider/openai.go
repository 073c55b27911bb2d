package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAI implements ChatCompleter against the OpenAI chat completions API.
type OpenAI struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAI builds a client from the OPENAI_API_KEY environment variable,
// loading a .env file first when envFile is non-empty. A missing key is a
// configuration error, not a transient one.
func NewOpenAI(envFile string) (*OpenAI, error) {
	if envFile != "" {
		godotenv.Load(envFile)
	}
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, &ConfigError{Provider: "openai", Reason: "OPENAI_API_KEY is not set"}
	}
	return &OpenAI{
		client: openai.NewClient(option.WithAPIKey(key)),
		model:  openai.ChatModelGPT5Nano,
	}, nil
}

// Complete sends one system+user exchange and returns the raw content.
func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model: o.model,
	})
	if err != nil {
		if IsRateLimit(err) {
			return "", rateLimitError(err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return content, nil
}

// Transcribe sends captured audio through the transcription endpoint and
// returns the recognized text.
func (o *OpenAI) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "utterance.wav", "audio/wav"),
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		if IsRateLimit(err) {
			return "", rateLimitError(err)
		}
		return "", fmt.Errorf("transcription: %w", err)
	}
	if resp.Text == "" {
		return "", fmt.Errorf("transcription returned empty text")
	}
	return resp.Text, nil
}

// rateLimitError wraps a throttling rejection, carrying the Retry-After
// wait when the API error exposes the HTTP response.
func rateLimitError(err error) *RateLimitError {
	rl := &RateLimitError{Provider: "openai", Cause: err}
	var apierr *openai.Error
	if errors.As(err, &apierr) && apierr.Response != nil {
		rl.RetryAfter = retryAfterFromHeader(apierr.Response.Header)
	}
	return rl
}
