package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"AvatarElite/core"
	"AvatarElite/gen"
	"AvatarElite/holder"
	"AvatarElite/ledger"
	"AvatarElite/lib/sl"
	"AvatarElite/payment"
)

const errorResponse = "Sorry, something went wrong. Please try again later."

type TgBot struct {
	conf     *core.Config
	api      *tgbotapi.BotAPI
	log      *slog.Logger
	sessions *holder.Manager
	ledger   *ledger.Ledger
	payments *payment.Service
	orch     *gen.Orchestrator
	client   *http.Client
	stop     chan struct{}
}

func NewTgBot(conf *core.Config, log *slog.Logger, sessions *holder.Manager, led *ledger.Ledger, payments *payment.Service) (*TgBot, error) {
	api, err := tgbotapi.NewBotAPI(conf.TelegramApiKey)
	if err != nil {
		return nil, err
	}

	return &TgBot{
		conf:     conf,
		api:      api,
		log:      log.With(sl.Module("bot")),
		sessions: sessions,
		ledger:   led,
		payments: payments,
		client:   &http.Client{Timeout: 60 * time.Second},
		stop:     make(chan struct{}),
	}, nil
}

// SetOrchestrator wires the generation orchestrator. Set after
// construction because the orchestrator notifies through the bot.
func (t *TgBot) SetOrchestrator(orch *gen.Orchestrator) {
	t.orch = orch
}

func (t *TgBot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := t.api.GetUpdatesChan(u)
	if err != nil {
		return err
	}

	for {
		select {
		case <-t.stop:
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.CallbackQuery != nil {
				go t.handleCallback(update.CallbackQuery)
				continue
			}
			if update.Message == nil {
				continue
			}
			go t.handleMessage(update.Message)
		}
	}
}

func (t *TgBot) Stop() {
	close(t.stop)
}

// Notify implements gen.Notifier.
func (t *TgBot) Notify(userId int64, text string) {
	t.markdownResponse(userId, text)
}

// LowBalance implements gen.Notifier: warn with a top-up keyboard right
// after a successful consume, before the generated image lands.
func (t *TgBot) LowBalance(userId int64, remaining int) {
	text := fmt.Sprintf("⚠️ *Running Low on Credits!*\nYou only have %d credits left.\nTop up now to avoid interruption:", remaining)
	msg := tgbotapi.NewMessage(userId, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = topUpKeyboard()
	t.send(msg)
}

// Fetch implements gen.FileFetcher over the Telegram file API.
func (t *TgBot) Fetch(ctx context.Context, fileId string) ([]byte, error) {
	link, err := t.api.GetFileDirectURL(fileId)
	if err != nil {
		return nil, fmt.Errorf("resolving file link: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading file: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			t.log.Error("closing response body", sl.Err(err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// runGeneration drives one billable request through the orchestrator and
// delivers the outcome. resetOnSuccess returns the session to normal
// after a successful reference-fed generation.
func (t *TgBot) runGeneration(userId int64, req *gen.Request, resetOnSuccess bool) {
	stopTicker := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		t.sendChatAction(userId)
		for {
			select {
			case <-ticker.C:
				t.sendChatAction(userId)
			case <-stopTicker:
				return
			}
		}
	}()
	defer close(stopTicker)

	delivery, err := t.orch.Generate(context.Background(), req)

	var insufficient *ledger.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		text := fmt.Sprintf("🚫 *Insufficient Credits*\nYou need %d credits to generate a %s image.\nYou have %d credits.",
			insufficient.Need, req.Quality, insufficient.Have)
		msg := tgbotapi.NewMessage(userId, text)
		msg.ParseMode = "Markdown"
		msg.ReplyMarkup = topUpKeyboard()
		t.send(msg)
		return
	}
	if err != nil {
		t.log.Error("generation request failed", sl.User(userId), sl.Err(err))
		t.plainResponse(userId, errorResponse)
		return
	}

	t.deliver(userId, delivery)

	if resetOnSuccess && delivery.Kind != gen.DeliverText && len(req.SessionRefs) > 0 {
		t.sessions.BackToNormal(userId)
	}
}

func (t *TgBot) deliver(userId int64, d *gen.Delivery) {
	switch d.Kind {
	case gen.DeliverText:
		t.plainResponse(userId, d.Text)
	case gen.DeliverDocument:
		// Sent as a file to preserve the 2k/4k output byte for byte
		if d.ImageBytes != nil {
			file := tgbotapi.FileBytes{
				Name:  fmt.Sprintf("generated_image_%s.png", d.Quality),
				Bytes: d.ImageBytes,
			}
			t.send(tgbotapi.NewDocumentUpload(userId, file))
		} else {
			t.send(tgbotapi.NewDocumentShare(userId, d.ImageURL))
		}
	case gen.DeliverPhoto:
		if d.ImageBytes != nil {
			file := tgbotapi.FileBytes{
				Name:  "generated_image.png",
				Bytes: d.ImageBytes,
			}
			t.send(tgbotapi.NewPhotoUpload(userId, file))
		} else {
			t.send(tgbotapi.NewPhotoShare(userId, d.ImageURL))
		}
	}
}

func (t *TgBot) sendChatAction(userId int64) {
	action := tgbotapi.NewChatAction(userId, tgbotapi.ChatUploadPhoto)
	if _, err := t.api.Send(action); err != nil {
		t.log.Error("sending chat action", sl.Err(err))
	}
}

func (t *TgBot) plainResponse(userId int64, text string) {
	t.send(tgbotapi.NewMessage(userId, text))
}

func (t *TgBot) markdownResponse(userId int64, text string) {
	msg := tgbotapi.NewMessage(userId, text)
	msg.ParseMode = "Markdown"
	t.send(msg)
}

func (t *TgBot) send(c tgbotapi.Chattable) {
	if _, err := t.api.Send(c); err != nil {
		t.log.Error("sending message", sl.Err(err))
	}
}

func (t *TgBot) answerCallback(id, text string) {
	if _, err := t.api.AnswerCallbackQuery(tgbotapi.NewCallback(id, text)); err != nil {
		t.log.Error("answering callback", sl.Err(err))
	}
}
