package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"AvatarElite/lib/sl"
)

const (
	seedreamBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	seedreamModel   = "seedream-4-5-251128"
)

// Seedream generates images through the Ark image API: JSON for
// text-to-image, multipart edits for image-to-image (first reference
// only, the endpoint accepts a single input image).
type Seedream struct {
	apiKey string
	client *http.Client
	log    *slog.Logger
}

func NewSeedream(apiKey string, log *slog.Logger) *Seedream {
	return &Seedream{
		apiKey: apiKey,
		client: &http.Client{Timeout: 180 * time.Second},
		log:    log.With(sl.Module("seedream")),
	}
}

type seedreamTextRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
	N              int    `json:"n"`
}

type seedreamResponse struct {
	Data []struct {
		B64JSON  string `json:"b64_json"`
		URL      string `json:"url"`
		ImageURL string `json:"image_url"`
	} `json:"data"`
	Images []string `json:"images"`
	Output *struct {
		URL string `json:"url"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Seedream) GenerateFromText(ctx context.Context, prompt, aspectRatio string) (*Result, error) {
	size := mapAspectRatioToSize(aspectRatio)

	request := seedreamTextRequest{
		Model:          seedreamModel,
		Prompt:         prompt,
		Size:           size,
		ResponseFormat: "b64_json",
		N:              1,
	}
	jsonBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", seedreamBaseURL+"/images/generations", bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("making request: %v", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("Content-Type", "application/json")

	s.log.With(slog.String("size", size)).Info("generating from text")
	return s.send(req)
}

func (s *Seedream) GenerateFromImages(ctx context.Context, images [][]byte, prompt, aspectRatio string) (*Result, error) {
	if len(images) == 0 {
		return s.GenerateFromText(ctx, prompt, aspectRatio)
	}

	size := mapAspectRatioToSize(aspectRatio)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("model", seedreamModel); err != nil {
		return nil, fmt.Errorf("writing form: %v", err)
	}
	if err := form.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("writing form: %v", err)
	}
	part, err := form.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, fmt.Errorf("writing form: %v", err)
	}
	if _, err := part.Write(images[0]); err != nil {
		return nil, fmt.Errorf("writing image: %v", err)
	}
	if err := form.WriteField("size", size); err != nil {
		return nil, fmt.Errorf("writing form: %v", err)
	}
	if err := form.WriteField("response_format", "b64_json"); err != nil {
		return nil, fmt.Errorf("writing form: %v", err)
	}
	if err := form.WriteField("n", "1"); err != nil {
		return nil, fmt.Errorf("writing form: %v", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", seedreamBaseURL+"/images/edits", &buf)
	if err != nil {
		return nil, fmt.Errorf("making request: %v", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("Content-Type", form.FormDataContentType())

	s.log.With(
		slog.String("size", size),
		slog.Int("images", len(images)),
	).Info("generating from image")
	return s.send(req)
}

func (s *Seedream) send(req *http.Request) (*Result, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getting response: %v", err)
	}
	defer func(Body io.ReadCloser) {
		err = Body.Close()
		if err != nil {
			s.log.Error("closing response body", sl.Err(err))
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %v", err)
	}

	var parsed seedreamResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %v", err)
	}

	if parsed.Error != nil {
		return nil, fmt.Errorf("%s", parsed.Error.Message)
	}

	if len(parsed.Data) > 0 {
		item := parsed.Data[0]
		switch {
		case item.B64JSON != "":
			decoded, err := base64.StdEncoding.DecodeString(item.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("decoding image data: %v", err)
			}
			return &Result{ImageBytes: decoded}, nil
		case item.URL != "":
			return &Result{ImageURL: item.URL}, nil
		case item.ImageURL != "":
			return &Result{ImageURL: item.ImageURL}, nil
		}
	}
	if len(parsed.Images) > 0 {
		return &Result{ImageURL: parsed.Images[0]}, nil
	}
	if parsed.Output != nil && parsed.Output.URL != "" {
		return &Result{ImageURL: parsed.Output.URL}, nil
	}

	debug := truncate(string(body), 200)
	s.log.Error("no image data in response", slog.String("body", debug))
	return nil, fmt.Errorf("no image data in response: %s", debug)
}

func mapAspectRatioToSize(ratio string) string {
	switch ratio {
	case "16:9":
		return "1280x720"
	case "9:16":
		return "720x1280"
	default:
		return "1024x1024"
	}
}
