package gen

import "AvatarElite/holder"

// CostForQuality is the credit price of one generation.
func CostForQuality(quality string) int {
	switch quality {
	case holder.Quality4K:
		return 10
	case holder.Quality2K:
		return 7
	default:
		return 5
	}
}

// EnhancePrompt appends the quality tier's resolution instructions.
func EnhancePrompt(prompt, quality string) string {
	switch quality {
	case holder.Quality2K:
		return prompt + ", 2k resolution, highly detailed"
	case holder.Quality4K:
		return prompt + ", 4k resolution, ultra detailed, photorealistic"
	}
	return prompt
}

// fidelitySuffix rides along on every image-conditioned generation so the
// backend keeps the subject recognizable.
const fidelitySuffix = ", maintain high fidelity to the reference image, facial features, and details"
