package bot

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"aidmap/lib/sl"
)

const maxTelegramMessageLen = 4096

// TgBot delivers service notifications to a single admin chat: error-level
// log records (via logger.TelegramHandler) and urgent listing notices.
type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	chatId      int64
	minLogLevel slog.Level
}

func NewTgBot(apiKey string, chatId int64, log *slog.Logger) (*TgBot, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TgBot{
		log:         log.With(sl.Module("tgbot")),
		api:         api,
		chatId:      chatId,
		minLogLevel: slog.LevelWarn,
	}, nil
}

// SendMessageWithLevel forwards a MarkdownV2 message to the admin chat when
// the level clears the bot's threshold.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if level < t.minLogLevel {
		return
	}
	t.send(msg)
}

// NotifyUrgentNeed announces a fresh urgent listing to the admin chat.
func (t *TgBot) NotifyUrgentNeed(title, id string) {
	t.send(fmt.Sprintf("*URGENT* new need listing: %s \\(`%s`\\)", Sanitize(title), id))
}

func (t *TgBot) send(text string) {
	if text == "" {
		return
	}
	if len(text) > maxTelegramMessageLen {
		text = text[:maxTelegramMessageLen]
	}
	_, err := t.api.SendMessage(t.chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", t.chatId)).Warn("sending message", sl.Err(err))
		// retry without markup, the text may contain unescaped characters
		_, err = t.api.SendMessage(t.chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", t.chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*"
	sanitized := ""
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sanitized += "\\" + string(char)
		} else {
			sanitized += string(char)
		}
	}
	return sanitized
}
