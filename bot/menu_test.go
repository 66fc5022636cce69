package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AvatarElite/holder"
)

func TestMenuKeyboard_AttachesToEditConfig(t *testing.T) {
	bot := &TgBot{sessions: holder.NewManager()}

	// The refresh path rebuilds the keyboard from the session and hangs it
	// on the edit config; this must keep fitting BaseEdit.ReplyMarkup.
	markup := bot.menuKeyboard(1)
	edit := tgbotapi.NewEditMessageText(1, 1, "menu")
	edit.ReplyMarkup = &markup

	require.NotNil(t, edit.ReplyMarkup)
	assert.Len(t, edit.ReplyMarkup.InlineKeyboard, 6)
}

func TestMenuKeyboard_ReflectsReferenceCount(t *testing.T) {
	bot := &TgBot{sessions: holder.NewManager()}

	markup := bot.menuKeyboard(1)
	refsRow := markup.InlineKeyboard[2]
	require.Len(t, refsRow, 2)
	assert.Equal(t, "🖼️ Upload References", refsRow[0].Text)

	_, err := bot.sessions.AddReference(1, holder.ReferenceImage{Bytes: []byte("img")})
	require.NoError(t, err)

	markup = bot.menuKeyboard(1)
	assert.Equal(t, "🖼️ Add Refs (1)", markup.InlineKeyboard[2][0].Text)
}
