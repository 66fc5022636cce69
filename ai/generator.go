package ai

import "context"

// Result carries exactly one of ImageBytes or ImageURL on success.
type Result struct {
	ImageBytes []byte
	ImageURL   string
}

// ImageGenerator is the contract both backends implement. A failed call
// returns an error whose message is surfaced to the user verbatim.
type ImageGenerator interface {
	GenerateFromText(ctx context.Context, prompt, aspectRatio string) (*Result, error)
	GenerateFromImages(ctx context.Context, images [][]byte, prompt, aspectRatio string) (*Result, error)
}
