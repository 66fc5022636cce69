package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"AvatarElite/lib/sl"
)

const (
	nanoBananaModel = "nano-banana-pro-preview"
	nanoBananaURL   = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
)

// NanoBanana generates images through the Gemini generateContent API.
// Reference images ride along as inline base64 parts.
type NanoBanana struct {
	apiKey string
	client *http.Client
	log    *slog.Logger
}

func NewNanoBanana(apiKey string, log *slog.Logger) *NanoBanana {
	return &NanoBanana{
		apiKey: apiKey,
		client: &http.Client{Timeout: 180 * time.Second},
		log:    log.With(sl.Module("nano-banana")),
	}
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponsePart struct {
	Text string `json:"text"`
	// The API answers in camelCase, some deployments in snake_case
	InlineData      *geminiInlineData `json:"inlineData"`
	InlineDataSnake *geminiInlineData `json:"inline_data"`
}

type geminiResponse struct {
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Candidates []struct {
		FinishReason string `json:"finishReason"`
		Content      struct {
			Parts []geminiResponsePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (n *NanoBanana) GenerateFromText(ctx context.Context, prompt, aspectRatio string) (*Result, error) {
	return n.call(ctx, prompt, nil, aspectRatio)
}

func (n *NanoBanana) GenerateFromImages(ctx context.Context, images [][]byte, prompt, aspectRatio string) (*Result, error) {
	if len(images) == 0 {
		return n.GenerateFromText(ctx, prompt, aspectRatio)
	}
	return n.call(ctx, prompt, images, aspectRatio)
}

func (n *NanoBanana) call(ctx context.Context, prompt string, images [][]byte, aspectRatio string) (*Result, error) {
	// Resolution parameters are unreliable on this model, the ratio goes
	// into the prompt instead
	if aspectRatio != "" && aspectRatio != "1:1" {
		hint := fmt.Sprintf("aspect ratio %s", aspectRatio)
		if !strings.Contains(prompt, hint) {
			prompt = prompt + ", " + hint
		}
	}

	parts := []geminiPart{{Text: prompt}}
	for _, img := range images {
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{
				MimeType: "image/png",
				Data:     base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	request := geminiRequest{Contents: []geminiContent{{Parts: parts}}}
	jsonBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %v", err)
	}

	url := fmt.Sprintf(nanoBananaURL, nanoBananaModel) + "?key=" + n.apiKey
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("making request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	n.log.With(
		slog.Int("images", len(images)),
		slog.String("ratio", aspectRatio),
	).Info("calling image model")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getting response: %v", err)
	}
	defer func(Body io.ReadCloser) {
		err = Body.Close()
		if err != nil {
			n.log.Error("closing response body", sl.Err(err))
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %v", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %v", err)
	}

	if parsed.Error != nil {
		return nil, fmt.Errorf("%s", parsed.Error.Message)
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		n.log.Warn("blocked by safety filters", slog.String("reason", parsed.PromptFeedback.BlockReason))
		return nil, fmt.Errorf("image generation blocked: %s", parsed.PromptFeedback.BlockReason)
	}

	for _, candidate := range parsed.Candidates {
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			n.log.Warn("generation stopped", slog.String("reason", candidate.FinishReason))
		}
		for _, part := range candidate.Content.Parts {
			data := part.InlineData
			if data == nil {
				data = part.InlineDataSnake
			}
			if data != nil && data.Data != "" {
				decoded, err := base64.StdEncoding.DecodeString(data.Data)
				if err != nil {
					return nil, fmt.Errorf("decoding image data: %v", err)
				}
				return &Result{ImageBytes: decoded}, nil
			}
		}
		if len(candidate.Content.Parts) > 0 && candidate.Content.Parts[0].Text != "" {
			text := candidate.Content.Parts[0].Text
			n.log.Warn("model returned text instead of image", slog.String("text", truncate(text, 120)))
			return nil, fmt.Errorf("model returned text: %s", text)
		}
	}

	debug := truncate(string(body), 200)
	n.log.Error("unexpected response format", slog.String("body", debug))
	return nil, fmt.Errorf("unexpected API response: %s...", debug)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
