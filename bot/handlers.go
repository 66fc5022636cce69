package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"AvatarElite/gen"
	"AvatarElite/holder"
	"AvatarElite/lib/sl"
	"AvatarElite/storage"
)

func (t *TgBot) handleMessage(msg *tgbotapi.Message) {
	userId := msg.Chat.ID

	if msg.IsCommand() {
		t.handleCommand(userId, msg)
		return
	}
	if msg.Photo != nil && len(*msg.Photo) > 0 {
		t.handlePhoto(userId, msg)
		return
	}
	if msg.Text != "" {
		t.handleTextPrompt(userId, msg.Text)
	}
}

func (t *TgBot) handleCommand(userId int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		t.handleStart(userId, msg.CommandArguments())
	case "help":
		t.markdownResponse(userId, helpMessage)
	case "credits":
		acc, err := t.ledger.Account(userId)
		if err != nil {
			t.log.Error("loading account", sl.User(userId), sl.Err(err))
			t.plainResponse(userId, errorResponse)
			return
		}
		t.markdownResponse(userId, fmt.Sprintf("💎 You have *%d* credits remaining.\n\nType /buy to get more.", acc.Credits))
	case "buy":
		t.sendBuyMenu(userId)
	case "menu":
		t.sendMenu(userId)
	}
}

func (t *TgBot) handleStart(userId int64, args string) {
	acc, err := t.ledger.Account(userId)
	if err != nil {
		t.log.Error("loading account", sl.User(userId), sl.Err(err))
		t.plainResponse(userId, errorResponse)
		return
	}

	// Deep-link parameters from the payment redirect
	switch args {
	case "payment_success":
		t.markdownResponse(userId, "✅ *Payment Successful!*\nThank you for your purchase. Your credits have been updated.")
		return
	case "payment_cancel":
		t.markdownResponse(userId, "❌ Payment was cancelled.")
		return
	}

	welcome := fmt.Sprintf(`🍌 *Welcome to AVATAR ELITE BOT* 🍌

I can generate amazing images for you using the most advanced AI image model.

*💎 Credits: %d*

*Features:*
1. *Text-to-Image*: Just type a description.
2. *Image-to-Image*: Upload photos to edit or mix styles.
3. *Advanced Settings*: Use /menu to set Aspect Ratio & Quality.

Type /help for more info or /buy to get more credits.`, acc.Credits)
	t.markdownResponse(userId, welcome)
}

const helpMessage = `*Help & Instructions*

- *Generate Image*: Type your prompt (e.g., "A futuristic city").
- *Edit Image*: Upload a photo with a caption.
- *Settings*: Use /menu to change Ratio (1:1, 16:9, Auto) or Quality.
- *Multi-Image*: Use /menu -> "Upload References" to send up to 5 images, then type your prompt.
- *Credits*: /credits to check balance, /buy to purchase more.`

func (t *TgBot) handlePhoto(userId int64, msg *tgbotapi.Message) {
	photos := *msg.Photo
	photo := photos[len(photos)-1] // highest resolution variant

	sess := t.sessions.Get(userId)

	// Avatar uploads store the file id only, the bytes stay with Telegram
	if sess.Mode == holder.ModeAvatarUpload {
		count, err := t.ledger.AppendAvatarImage(userId, photo.FileID)
		switch {
		case errors.Is(err, storage.ErrCapacityExceeded):
			t.plainResponse(userId, fmt.Sprintf("⚠️ Max %d avatar images reached. Use /menu -> My Avatar -> Clear to reset.", storage.MaxAvatarImages))
		case err != nil:
			t.log.Error("saving avatar image", sl.User(userId), sl.Err(err))
			t.plainResponse(userId, "❌ Error saving image.")
		default:
			t.plainResponse(userId, fmt.Sprintf("✅ Avatar Image Saved! (%d/%d)", count, storage.MaxAvatarImages))
		}
		return
	}

	// Everything below needs the actual bytes. A failed download aborts
	// before any credit is touched.
	data, err := t.Fetch(context.Background(), photo.FileID)
	if err != nil {
		t.log.Error("downloading photo", sl.User(userId), sl.Err(err))
		t.plainResponse(userId, "❌ Failed to download image.")
		return
	}
	img := holder.ReferenceImage{Bytes: data, Width: photo.Width, Height: photo.Height}

	switch sess.Mode {
	case holder.ModeEdit:
		t.sessions.SetEditingSubject(userId, img)
		reply := tgbotapi.NewMessage(userId, "✅ *Image Received!*\nSelect an action to apply:")
		reply.ParseMode = "Markdown"
		reply.ReplyMarkup = editActionsKeyboard()
		t.send(reply)

	case holder.ModeTrendingTheme:
		t.sessions.SetEditingSubject(userId, img)
		reply := tgbotapi.NewMessage(userId, "🎄 *Ho Ho Ho!* Image Received!\nSelect a Christmas Magic effect:")
		reply.ParseMode = "Markdown"
		reply.ReplyMarkup = trendActionsKeyboard()
		t.send(reply)

	case holder.ModeAwaitingReferences:
		count, err := t.sessions.AddReference(userId, img)
		if err != nil {
			t.plainResponse(userId, fmt.Sprintf("⚠️ Max %d images allowed. Use /menu to clear.", holder.MaxReferences))
			return
		}
		t.plainResponse(userId, fmt.Sprintf("✅ Image added! (%d/%d) [%dx%d]\nSend more or type your prompt to generate.",
			count, holder.MaxReferences, photo.Width, photo.Height))

	default:
		if msg.Caption != "" {
			// Caption present: this photo is a billable edit request
			acc, err := t.ledger.Account(userId)
			if err != nil {
				t.log.Error("loading account", sl.User(userId), sl.Err(err))
				t.plainResponse(userId, errorResponse)
				return
			}
			t.runGeneration(userId, &gen.Request{
				UserId:       userId,
				Prompt:       msg.Caption,
				Quality:      sess.Quality,
				AspectRatio:  sess.AspectRatio,
				SessionRefs:  []holder.ReferenceImage{img},
				Account:      acc,
				ProgressText: "🎨 Processing your image... please wait.",
			}, false)
			return
		}

		// No caption: free accumulate
		_, err := t.sessions.AddReference(userId, img)
		if err != nil {
			t.plainResponse(userId, fmt.Sprintf("⚠️ Max %d images allowed. Use /menu to clear.", holder.MaxReferences))
			return
		}
		t.plainResponse(userId, fmt.Sprintf("✅ Image received [%dx%d]. Type a caption to edit it, or add more images.",
			photo.Width, photo.Height))
	}
}

func (t *TgBot) handleTextPrompt(userId int64, prompt string) {
	sess := t.sessions.Get(userId)

	acc, err := t.ledger.Account(userId)
	if err != nil {
		t.log.Error("loading account", sl.User(userId), sl.Err(err))
		t.plainResponse(userId, errorResponse)
		return
	}

	t.runGeneration(userId, &gen.Request{
		UserId:      userId,
		Prompt:      prompt,
		Quality:     sess.Quality,
		AspectRatio: sess.AspectRatio,
		SessionRefs: sess.References,
		Account:     acc,
	}, true)
}
