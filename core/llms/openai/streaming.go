package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/koscakluka/ema-voice/core/llms"
	"go.opentelemetry.io/otel/attribute"
)

func PromptWithStream(
	_ context.Context,
	client *Client,
	prompt *string,
	opts ...llms.StreamingPromptOption,
) *Stream {
	options := llms.StreamingPromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	messages := toOpenAIMessages(options.Instructions, options.History)
	if prompt != nil {
		messages = append(messages, openAIMessage{
			Type:    messageTypeMessage,
			Role:    messageRoleUser,
			Content: *prompt,
		})
	}

	return &Stream{
		client:          client,
		messages:        messages,
		maxOutputTokens: options.MaxOutputTokens,
		temperature:     options.Temperature,
	}
}

type Stream struct {
	client *Client

	messages        []openAIMessage
	maxOutputTokens *int
	temperature     *float64
}

type requestBody struct {
	Model           string          `json:"model"`
	Input           []openAIMessage `json:"input"`
	Stream          bool            `json:"stream"`
	MaxOutputTokens *int            `json:"max_output_tokens,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
}

func (s *Stream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		ctx, span := tracer.Start(ctx, "prompt llm stream")
		defer span.End()
		span.SetAttributes(attribute.String("request.model", s.client.model))

		reqBody := requestBody{
			Model:           s.client.model,
			Input:           s.messages,
			Stream:          true,
			MaxOutputTokens: s.maxOutputTokens,
			Temperature:     s.temperature,
		}

		requestBodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			err = fmt.Errorf("error marshalling JSON: %w", err)
			span.RecordError(err)
			yield(nil, err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, "POST", s.client.url, bytes.NewBuffer(requestBodyBytes))
		if err != nil {
			err = fmt.Errorf("error creating HTTP request: %w", err)
			span.RecordError(err)
			yield(nil, err)
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.client.apiKey)

		resp, err := s.client.httpClient.Do(req)
		if err != nil {
			err = fmt.Errorf("error sending request: %w", err)
			span.RecordError(err)
			yield(nil, err)
			return
		}
		defer resp.Body.Close()

		span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
		if resp.StatusCode != http.StatusOK {
			if errorBody, err := io.ReadAll(resp.Body); err == nil {
				span.SetAttributes(attribute.String("response.error", string(errorBody)))
			}
			err := fmt.Errorf("non-OK HTTP status: %s", resp.Status)
			span.RecordError(err)
			yield(nil, err)
			return
		}

		usage := llms.Usage{}
		lapTime := time.Now()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, eventPrefix) {
				continue
			}
			event := strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))

			if !scanner.Scan() {
				break
			}
			chunk := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(scanner.Text()), chunkPrefix))

			switch streamingEventType(event) {
			case streamingEventResponseCreated, streamingEventResponseQueued:
				lapTime = time.Now()

			case streamingEventResponseInProgress:
				usage.QueueTime = time.Since(lapTime).Seconds()
				lapTime = time.Now()

			case streamingEventResponseOutputItemAdded:
				usage.InputProcessingTime = time.Since(lapTime).Seconds()
				lapTime = time.Now()

			case streamingEventResponseOutputTextDelta:
				var responseBody streamingBodyResponseTextDelta
				if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
					if !yield(nil, fmt.Errorf("error unmarshalling JSON: %w", err)) {
						return
					}
					continue
				}
				if !yield(StreamContentChunk{content: responseBody.Delta}, nil) {
					return
				}

			case streamingEventResponseFailed, streamingEventError:
				err := fmt.Errorf("response stream failed: %s", chunk)
				span.RecordError(err)
				yield(nil, err)
				return

			case streamingEventResponseCompleted:
				usage.OutputProcessingTime = time.Since(lapTime).Seconds()
				usage.TotalTime = usage.QueueTime + usage.InputProcessingTime + usage.OutputProcessingTime

				var responseBody streamingBodyResponseCompleted
				if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
					logger.Debug("failed to parse completed response", "error", err)
				} else if responseBody.Response.Usage != nil {
					usage.InputTokens = responseBody.Response.Usage.InputTokens
					usage.OutputTokens = responseBody.Response.Usage.OutputTokens
					usage.TotalTokens = responseBody.Response.Usage.TotalTokens
				}

				span.SetAttributes(attribute.Int("usage.total", usage.TotalTokens))
				finishReason := "stop"
				if !yield(StreamUsageChunk{finishReason: &finishReason, usage: usage}, nil) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			err = fmt.Errorf("error reading streamed response: %w", err)
			span.RecordError(err)
			yield(nil, err)
			return
		}
	}
}

type streamingEventType string

const (
	streamingEventResponseOutputTextDelta streamingEventType = "response.output_text.delta"
	streamingEventResponseOutputItemAdded streamingEventType = "response.output_item.added"
	streamingEventResponseCreated         streamingEventType = "response.created"
	streamingEventResponseQueued          streamingEventType = "response.queued"
	streamingEventResponseInProgress      streamingEventType = "response.in_progress"
	streamingEventResponseCompleted       streamingEventType = "response.completed"
	streamingEventResponseFailed          streamingEventType = "response.failed"
	streamingEventError                   streamingEventType = "error"
)

type streamingBodyResponseTextDelta struct {
	Delta string `json:"delta"`
}

// streamingBodyResponseCompleted is emitted when the model response is complete
type streamingBodyResponseCompleted struct {
	Response struct {
		Usage *struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
			TotalTokens  int `json:"total_tokens"`
		} `json:"usage"`
	} `json:"response"`
}

type StreamContentChunk struct {
	finishReason *string
	content      string
}

func (s StreamContentChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamContentChunk) Content() string {
	return s.content
}

type StreamUsageChunk struct {
	finishReason *string
	usage        llms.Usage
}

func (s StreamUsageChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamUsageChunk) Usage() llms.Usage {
	return s.usage
}
