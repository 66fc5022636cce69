package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"AvatarElite/holder"
)

func TestCostForQuality(t *testing.T) {
	tests := []struct {
		quality string
		want    int
	}{
		{holder.Quality1K, 5},
		{holder.Quality2K, 7},
		{holder.Quality4K, 10},
		{"something else", 5},
		{"", 5},
	}

	for _, tt := range tests {
		t.Run(tt.quality, func(t *testing.T) {
			assert.Equal(t, tt.want, CostForQuality(tt.quality))
		})
	}
}

func TestEnhancePrompt(t *testing.T) {
	assert.Equal(t, "a cat", EnhancePrompt("a cat", holder.Quality1K))
	assert.Equal(t, "a cat, 2k resolution, highly detailed", EnhancePrompt("a cat", holder.Quality2K))
	assert.Equal(t, "a cat, 4k resolution, ultra detailed, photorealistic", EnhancePrompt("a cat", holder.Quality4K))
}

func TestResolveAspectRatio(t *testing.T) {
	landscape := []holder.ReferenceImage{{Width: 1920, Height: 1080}}

	tests := []struct {
		name    string
		setting string
		images  []holder.ReferenceImage
		want    string
	}{
		{"explicit setting wins", "16:9", landscape, "16:9"},
		{"auto with image follows first image", holder.RatioAuto, landscape, "1920:1080"},
		{"auto without images is square", holder.RatioAuto, nil, "1:1"},
		{"explicit without images", "9:16", nil, "9:16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAspectRatio(tt.setting, tt.images))
		})
	}
}
