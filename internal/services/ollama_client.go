package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "chatseek_go_backend/internal/errors"

	"github.com/rs/zerolog"
)

const (
	fragmentBufferSize  = 16
	healthCheckTimeout  = 5 * time.Second
	listModelsTimeout   = 10 * time.Second
	maxRecordLineLength = 1 << 20
)

type OllamaClient struct {
	baseURL      string
	defaultModel string
	timeout      time.Duration
	httpClient   *http.Client
}

// NewOllamaClient creates a client for the Ollama HTTP API. timeout bounds a
// whole generation request, including reading the streamed body.
func NewOllamaClient(baseURL, defaultModel string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultModel: defaultModel,
		timeout:      timeout,
		httpClient:   &http.Client{},
	}
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaChatRecord struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Stream posts the conversation to /api/chat and forwards every content
// fragment as soon as its record is decoded.
func (c *OllamaClient) Stream(ctx context.Context, req GenerationRequest) <-chan Fragment {
	out := make(chan Fragment, fragmentBufferSize)

	go func() {
		defer close(out)
		log := zerolog.Ctx(ctx)

		if err := c.streamChat(ctx, req, out); err != nil {
			if ctx.Err() != nil {
				log.Debug().Err(err).Msg("Generation abandoned by caller")
				return
			}
			log.Warn().Err(err).Str("model", c.model(req.Model)).Msg("Generation request failed")
			send(ctx, out, Fragment{Err: fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)})
		}
	}()

	return out
}

func (c *OllamaClient) model(requested string) string {
	if requested == "" {
		return c.defaultModel
	}
	return requested
}

func (c *OllamaClient) streamChat(ctx context.Context, req GenerationRequest, out chan<- Fragment) error {
	payload, err := json.Marshal(ollamaChatRequest{
		Model:    c.model(req.Model),
		Messages: req.Messages(),
		Stream:   true,
	})
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to connect to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return c.readRecords(ctx, resp.Body, out)
}

// readRecords decodes newline-delimited records. Records that fail to parse
// are skipped; a done record or EOF ends the sequence.
func (c *OllamaClient) readRecords(ctx context.Context, body io.Reader, out chan<- Fragment) error {
	log := zerolog.Ctx(ctx)
	reader := bufio.NewReaderSize(body, 64*1024)

	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > maxRecordLineLength {
			log.Debug().Int("length", len(line)).Msg("Skipping oversized record")
			line = nil
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var record ollamaChatRecord
			if err := json.Unmarshal(trimmed, &record); err != nil {
				log.Debug().Err(err).Msg("Skipping malformed record")
			} else {
				if record.Message != nil && record.Message.Content != "" {
					if !send(ctx, out, Fragment{Text: record.Message.Content}) {
						return ctx.Err()
					}
				}
				if record.Done {
					send(ctx, out, Fragment{Done: true})
					return nil
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading generation stream: %w", readErr)
		}
	}
}

// send delivers f unless the caller has gone away.
func send(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

type ollamaTagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ListModels returns the models installed on the engine, or an empty list
// when it cannot be reached.
func (c *OllamaClient) ListModels(ctx context.Context) []ModelInfo {
	ctx, cancel := context.WithTimeout(ctx, listModelsTimeout)
	defer cancel()

	resp, err := c.get(ctx, "/api/tags")
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to list models")
		return []ModelInfo{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zerolog.Ctx(ctx).Warn().Int("status", resp.StatusCode).Msg("Failed to list models")
		return []ModelInfo{}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to decode model list")
		return []ModelInfo{}
	}
	if tags.Models == nil {
		return []ModelInfo{}
	}
	return tags.Models
}

func (c *OllamaClient) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	resp, err := c.get(ctx, "/api/tags")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *OllamaClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}
