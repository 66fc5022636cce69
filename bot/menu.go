package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"AvatarElite/holder"
	"AvatarElite/lib/sl"
	"AvatarElite/payment"
	"AvatarElite/storage"
)

func (t *TgBot) menuText(userId int64) string {
	sess := t.sessions.Get(userId)
	credits := 0
	if acc, err := t.ledger.Account(userId); err == nil {
		credits = acc.Credits
	} else {
		t.log.Error("loading account", sl.User(userId), sl.Err(err))
	}

	return fmt.Sprintf(`*⚙️ Settings Menu*

*Aspect Ratio:* %s
*Quality:* %s
*Reference Images:* %d/%d
*💎 Credits:* %d

Select an option to change:`,
		sess.AspectRatio, sess.Quality, len(sess.References), holder.MaxReferences, credits)
}

func (t *TgBot) sendMenu(userId int64) {
	msg := tgbotapi.NewMessage(userId, t.menuText(userId))
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = t.menuKeyboard(userId)
	t.send(msg)
}

func (t *TgBot) menuKeyboard(userId int64) tgbotapi.InlineKeyboardMarkup {
	refsLabel := "🖼️ Upload References"
	if count := t.sessions.ReferenceCount(userId); count > 0 {
		refsLabel = fmt.Sprintf("🖼️ Add Refs (%d)", count)
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📐 Auto", "ratio_auto"),
			tgbotapi.NewInlineKeyboardButtonData("📐 1:1", "ratio_1:1"),
			tgbotapi.NewInlineKeyboardButtonData("📐 16:9", "ratio_16:9"),
			tgbotapi.NewInlineKeyboardButtonData("📐 9:16", "ratio_9:16"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💎 Quality 1k", "quality_1k"),
			tgbotapi.NewInlineKeyboardButtonData("💎 Quality 2k", "quality_2k"),
			tgbotapi.NewInlineKeyboardButtonData("💎 Quality 4k", "quality_4k"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(refsLabel, "upload_refs"),
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Clear Refs", "clear_refs"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎄 Trending", "menu_trending"),
			tgbotapi.NewInlineKeyboardButtonData("🎨 Edit Image", "menu_edit"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 My Avatar", "menu_avatar"),
			tgbotapi.NewInlineKeyboardButtonData("🛍️ Buy Credits", "cmd_buy"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh Menu", "refresh_menu"),
		),
	)
}

func (t *TgBot) sendAvatarMenu(userId int64) {
	acc, err := t.ledger.Account(userId)
	if err != nil {
		t.log.Error("loading account", sl.User(userId), sl.Err(err))
		t.plainResponse(userId, errorResponse)
		return
	}

	status := "❌ DISABLED"
	toggleLabel := "🟢 Enable Avatar"
	toggleData := "avatar_toggle_on"
	if acc.AvatarEnabled {
		status = "✅ ENABLED"
		toggleLabel = "🔴 Disable Avatar"
		toggleData = "avatar_toggle_off"
	}

	text := fmt.Sprintf(`*👤 My Avatar Settings*

*Status:* %s
*Images Saved:* %d/%d

When *Enabled*, your saved avatar images will be used _in addition_ to any temporary references for every generation. This helps the AI keep your character consistent!

Select an action:`,
		status, len(acc.AvatarImages), storage.MaxAvatarImages)

	msg := tgbotapi.NewMessage(userId, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel, toggleData),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📤 Upload New Images", "avatar_upload"),
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Clear All Images", "avatar_clear"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back to Menu", "menu_back"),
		),
	)
	t.send(msg)
}

func (t *TgBot) sendBuyMenu(userId int64) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 2)
	for i := 0; i < len(payment.Packs); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{packButton(payment.Packs[i])}
		if i+1 < len(payment.Packs) {
			row = append(row, packButton(payment.Packs[i+1]))
		}
		rows = append(rows, row)
	}

	msg := tgbotapi.NewMessage(userId, "🛍️ *Buy Credits*\nSelect a pack to purchase:")
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	t.send(msg)
}

func packButton(pack payment.Pack) tgbotapi.InlineKeyboardButton {
	label := fmt.Sprintf("💎 %d Credits ($%d)", pack.Credits, pack.AmountCents/100)
	return tgbotapi.NewInlineKeyboardButtonData(label, "buy_"+pack.Id)
}

// topUpKeyboard is attached to insufficient-credit and low-balance
// messages: the two cheapest packs plus the full shop.
func topUpKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			packButton(payment.Packs[0]),
			packButton(payment.Packs[1]),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛍️ View All Packs", "cmd_buy"),
		),
	)
}

func editActionsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✂️ Remove BG", "edit_action_remove_bg"),
			tgbotapi.NewInlineKeyboardButtonData("💎 Upscale 4k", "edit_action_upscale"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✨ Beautify", "edit_action_beautify"),
			tgbotapi.NewInlineKeyboardButtonData("🧖 Realistic Skin", "edit_action_skin"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👗 Change Outfit", "edit_action_outfit"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back to Menu", "menu_back"),
		),
	)
}

func trendActionsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 Add Gifts", "trend_action_gifts"),
			tgbotapi.NewInlineKeyboardButtonData("🎅 Santa Outfit", "trend_action_santa"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Xmas Home", "trend_action_home"),
			tgbotapi.NewInlineKeyboardButtonData("🍽️ Xmas Dinner", "trend_action_dinner"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👨‍👩‍👧 Family Xmas", "trend_action_family"),
			tgbotapi.NewInlineKeyboardButtonData("❄️ Snowy Outside", "trend_action_snow"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back to Menu", "menu_back"),
		),
	)
}
