package bot

import "strings"

var editPrompts = map[string]string{
	"remove_bg": "Isolate subject, white background, product photography style",
	"upscale":   "Upscale to 4k resolution, highly detailed, sharp focus, photorealistic",
	"beautify":  "Professional retouching, beauty filter, perfect lighting, enhance features",
	"skin":      "Hyperrealistic skin texture, visible pores, detailed complexion, 8k photography",
	"outfit":    "Change clothing to high fashion elegant outfit, maintaining character identity",
}

var trendPrompts = map[string]string{
	"gifts":  "Surrounded by colorful christmas gifts, piles of presents, festive holiday atmosphere",
	"santa":  "Wearing a high quality Santa Claus costume, red and white fur, santa hat, festive",
	"home":   "In a cozy christmas living room, decorated christmas tree, fireplace, warm lighting, stockings",
	"dinner": "Sitting at a lavish christmas dinner table, roast turkey, candles, elegant decorations, festive meal",
	"family": "Surrounded by happy family members wearing christmas sweaters, group photo, celebrating holiday",
	"snow":   "Outdoor winter wonderland, falling snow, snowy trees, cold festive weather, soft lighting",
}

// actionPrompt maps an edit/theme callback to its fixed prompt and the
// short name shown to the user.
func actionPrompt(data string) (prompt, name string) {
	if action, ok := strings.CutPrefix(data, "edit_action_"); ok {
		if p, found := editPrompts[action]; found {
			return p, action
		}
		return "Enhance image", action
	}
	action := strings.TrimPrefix(data, "trend_action_")
	if p, found := trendPrompts[action]; found {
		return p, action
	}
	return "Christmas theme", action
}
