package services

import (
	"context"
	"fmt"
	"html"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BookingNotice is what staff are told about a new paid booking.
type BookingNotice struct {
	BookingTour   string
	CustomerEmail string
	Price         float64
	Currency      string
}

type Notifier interface {
	NotifyBooking(ctx context.Context, n BookingNotice) error
}

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramNotifier struct {
	bot    telegramSender
	chatID int64
}

type noopNotifier struct{}

func (noopNotifier) NotifyBooking(context.Context, BookingNotice) error { return nil }

// NewTelegramNotifier returns a notifier posting to the staff chat, or a no-op
// one when the bot is not configured or cannot be reached.
func NewTelegramNotifier(botToken string, chatID int64) Notifier {
	if botToken == "" || chatID == 0 {
		log.Printf("[tg][skip] bot token or chat id not configured, booking notices disabled")
		return noopNotifier{}
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		log.Printf("[tg][init][err] %v, booking notices disabled", err)
		return noopNotifier{}
	}
	log.Printf("[tg][init] authorized as @%s", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

func (t *TelegramNotifier) NotifyBooking(_ context.Context, n BookingNotice) error {
	text := fmt.Sprintf("<b>New booking</b>\nTour: %s\nCustomer: %s\nAmount: %.2f %s",
		html.EscapeString(n.BookingTour), html.EscapeString(n.CustomerEmail), n.Price, n.Currency)
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("[tg][send][err] chatID=%d: %v", t.chatID, err)
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
