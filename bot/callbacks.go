package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"AvatarElite/gen"
	"AvatarElite/holder"
	"AvatarElite/lib/sl"
	"AvatarElite/payment"
	"AvatarElite/storage"
)

func (t *TgBot) handleCallback(query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	userId := query.Message.Chat.ID
	data := query.Data

	switch {
	case strings.HasPrefix(data, "buy_"):
		t.handleBuyPack(userId, query, strings.TrimPrefix(data, "buy_"))
		return
	case data == "cmd_buy":
		t.sendBuyMenu(userId)
		t.answerCallback(query.ID, "")
		return
	case data == "upload_refs":
		t.sessions.EnterReferenceUpload(userId)
		t.answerCallback(query.ID, "Send your images now!")
		t.markdownResponse(userId, "📤 *Upload Mode Active*\nPlease send up to 5 reference images. When done, type your prompt.")
		return
	case data == "menu_avatar":
		t.sendAvatarMenu(userId)
		t.answerCallback(query.ID, "")
		return
	case data == "avatar_toggle_on", data == "avatar_toggle_off":
		enabled := data == "avatar_toggle_on"
		if err := t.ledger.SetAvatarEnabled(userId, enabled); err != nil {
			t.log.Error("toggling avatar", sl.User(userId), sl.Err(err))
			t.plainResponse(userId, errorResponse)
			return
		}
		t.sendAvatarMenu(userId)
		if enabled {
			t.answerCallback(query.ID, "Avatar Enabled")
		} else {
			t.answerCallback(query.ID, "Avatar Disabled")
		}
		return
	case data == "avatar_upload":
		t.sessions.EnterAvatarUpload(userId)
		t.markdownResponse(userId, fmt.Sprintf("👤 *Upload Avatar Images*\nSend up to %d photos of yourself (or your character).\nWhen done, type /menu to return.", storage.MaxAvatarImages))
		t.answerCallback(query.ID, "")
		return
	case data == "avatar_clear":
		if err := t.ledger.ClearAvatarImages(userId); err != nil {
			t.log.Error("clearing avatar images", sl.User(userId), sl.Err(err))
			t.plainResponse(userId, errorResponse)
			return
		}
		t.answerCallback(query.ID, "Avatar Images Cleared")
		t.sendAvatarMenu(userId)
		return
	case data == "menu_back":
		t.sessions.BackToNormal(userId)
		t.sendMenu(userId)
		t.answerCallback(query.ID, "")
		return
	case data == "menu_edit":
		t.sessions.EnterEditMode(userId)
		t.markdownResponse(userId, "🎨 *Edit Mode*\nPlease upload an image you want to edit.")
		t.answerCallback(query.ID, "")
		return
	case data == "menu_trending":
		t.sessions.EnterTrendingTheme(userId)
		t.markdownResponse(userId, "🎄 *Trending Christmas* 🎅\nUpload a photo to give it a holiday makeover!")
		t.answerCallback(query.ID, "")
		return
	case data == "refresh_menu":
		t.answerCallback(query.ID, "Refreshing...")
		t.sendMenu(userId)
		return
	case strings.HasPrefix(data, "edit_action_"), strings.HasPrefix(data, "trend_action_"):
		t.handleSubjectAction(userId, query, data)
		return
	}

	// Setting changes fall through to an in-place menu refresh
	switch {
	case strings.HasPrefix(data, "ratio_"):
		ratio := strings.TrimPrefix(data, "ratio_")
		t.sessions.SetAspectRatio(userId, ratio)
		t.answerCallback(query.ID, fmt.Sprintf("Ratio set to %s", ratio))
	case strings.HasPrefix(data, "quality_"):
		quality := strings.TrimPrefix(data, "quality_")
		t.sessions.SetQuality(userId, quality)
		t.answerCallback(query.ID, fmt.Sprintf("Quality set to %s", quality))
	case data == "clear_refs":
		t.sessions.ClearReferences(userId)
		t.answerCallback(query.ID, "References cleared")
	default:
		return
	}

	t.refreshMenu(userId, query.Message)
}

// refreshMenu edits the menu message in place after a setting change.
// Incoming messages carry no keyboard, so it is rebuilt from the session.
func (t *TgBot) refreshMenu(userId int64, msg *tgbotapi.Message) {
	edit := tgbotapi.NewEditMessageText(userId, msg.MessageID, t.menuText(userId))
	edit.ParseMode = "Markdown"
	markup := t.menuKeyboard(userId)
	edit.ReplyMarkup = &markup
	if _, err := t.api.Send(edit); err != nil {
		// Telegram rejects no-op edits, nothing to do about it
		t.log.Debug("refreshing menu", sl.Err(err))
	}
}

func (t *TgBot) handleBuyPack(userId int64, query *tgbotapi.CallbackQuery, packId string) {
	if _, ok := payment.PackById(packId); !ok {
		return
	}

	t.answerCallback(query.ID, "Generating payment link...")
	url, err := t.payments.CreateCheckoutSession(userId, packId)
	if err != nil {
		t.log.Error("creating checkout session", sl.User(userId), sl.Err(err))
		t.plainResponse(userId, fmt.Sprintf("❌ Error creating payment: %s", err))
		return
	}
	t.markdownResponse(userId, fmt.Sprintf("Please pay using this link:\n[Click here to Pay](%s)", url))
}

// handleSubjectAction runs a fixed-prompt effect against the held
// editing subject. This is where the edit/theme flows get billed.
func (t *TgBot) handleSubjectAction(userId int64, query *tgbotapi.CallbackQuery, data string) {
	sess := t.sessions.Get(userId)
	if sess.EditingSubject == nil {
		t.plainResponse(userId, "⚠️ No image found to edit. Please upload one first.")
		return
	}

	prompt, name := actionPrompt(data)
	t.answerCallback(query.ID, "")

	// The subject alone conditions the output, avatar images stay out of
	// edit flows
	t.runGeneration(userId, &gen.Request{
		UserId:       userId,
		Prompt:       prompt,
		Quality:      sess.Quality,
		AspectRatio:  sess.AspectRatio,
		SessionRefs:  []holder.ReferenceImage{*sess.EditingSubject},
		ProgressText: fmt.Sprintf("🎨 Applying effect: *%s*... please wait.", strings.ReplaceAll(name, "_", " ")),
	}, false)
}
