package delivery

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/brieflyhq/briefly/internal/errdefs"
	"github.com/brieflyhq/briefly/internal/settings"
)

// botHTTPTimeout bounds each Bot API request. bot.Send takes no context, so
// the HTTP client's own timeout is what stops a stalled POST.
const botHTTPTimeout = 30 * time.Second

// telegramBot is the minimal surface the channel needs from the Telegram API.
// *tgbotapi.BotAPI satisfies it; tests inject a fake.
type telegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotFactory constructs a Telegram bot client from a token. Injected so tests
// never dial api.telegram.org.
type BotFactory func(token string) (telegramBot, error)

// defaultBotFactory dials the real Telegram Bot API.
func defaultBotFactory(token string) (telegramBot, error) {
	client := &http.Client{Timeout: botHTTPTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return bot, nil
}

// TelegramChannel delivers the bundle as a message sequence to a Telegram
// chat: a header, each chart as a captioned photo, each report as a captioned
// document, then a footer.
type TelegramChannel struct {
	// token is the bot API token.
	token string

	// store supplies the user's Telegram preferences, read fresh per delivery.
	store *settings.Store

	// newBot constructs the bot client. Replaceable in tests.
	newBot BotFactory
}

// TelegramOption customises a TelegramChannel.
type TelegramOption func(*TelegramChannel)

// WithBotFactory replaces the bot constructor. Test hook.
func WithBotFactory(f BotFactory) TelegramOption {
	return func(c *TelegramChannel) { c.newBot = f }
}

// NewTelegramChannel constructs the Telegram channel.
func NewTelegramChannel(token string, store *settings.Store, opts ...TelegramOption) *TelegramChannel {
	c := &TelegramChannel{
		token:  token,
		store:  store,
		newBot: defaultBotFactory,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Channel.
func (c *TelegramChannel) Name() string { return "telegram" }

// Precheck implements Channel.
func (c *TelegramChannel) Precheck(_ context.Context) error {
	prefs := c.store.Telegram()
	if !prefs.NotificationsEnabled {
		return ErrDisabled
	}
	if c.token == "" {
		return errdefs.InvalidArgumentf("telegram: bot token not configured, set TELEGRAM_BOT_TOKEN")
	}
	if _, err := parseChatID(prefs.ChatID); err != nil {
		return err
	}
	return nil
}

// Send implements Channel.
func (c *TelegramChannel) Send(ctx context.Context, bundle Bundle) error {
	prefs := c.store.Telegram()
	chatID, err := parseChatID(prefs.ChatID)
	if err != nil {
		return err
	}

	charts := existingFiles(bundle.Charts)
	reports := existingFiles(bundle.Reports)
	if len(charts) == 0 && len(reports) == 0 {
		return errdefs.Deliveryf("telegram: nothing to send")
	}

	bot, err := c.newBot(c.token)
	if err != nil {
		return errdefs.Deliveryf("telegram: %v", err)
	}

	header := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"*Sales & Marketing Report*\n\nGenerated: %s",
		bundle.GeneratedAt.Format("January 2, 2006 at 3:04 PM MST"),
	))
	header.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(header); err != nil {
		return errdefs.Deliveryf("telegram: send header: %v", err)
	}

	for _, chart := range charts {
		if ctx.Err() != nil {
			return errdefs.Deliveryf("telegram: %v", ctx.Err())
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(chart))
		photo.Caption = displayName(chart)
		if _, err := bot.Send(photo); err != nil {
			return errdefs.Deliveryf("telegram: send chart %s: %v", chart, err)
		}
	}

	for _, rep := range reports {
		if ctx.Err() != nil {
			return errdefs.Deliveryf("telegram: %v", ctx.Err())
		}
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(rep))
		doc.Caption = displayName(rep)
		if _, err := bot.Send(doc); err != nil {
			return errdefs.Deliveryf("telegram: send report %s: %v", rep, err)
		}
	}

	footer := tgbotapi.NewMessage(chatID, "All charts and reports delivered.")
	if _, err := bot.Send(footer); err != nil {
		return errdefs.Deliveryf("telegram: send footer: %v", err)
	}

	return nil
}

// parseChatID converts the stored chat id into the numeric form the Bot API
// requires.
func parseChatID(raw string) (int64, error) {
	if raw == "" {
		return 0, errdefs.InvalidArgumentf("telegram: no chat_id configured")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errdefs.InvalidArgumentf("telegram: chat_id %q is not numeric", raw)
	}
	return id, nil
}
