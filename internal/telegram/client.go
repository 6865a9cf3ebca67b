// Package telegram posts the cross-game prediction summary to a Telegram chat.
//
// Messages are formatted as MarkdownV2 and delivered with linear backoff
// retries.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/vietoracle/internal/models"
)

// sender is the part of tgbotapi.BotAPI the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	topNumbers     int
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		topNumbers:     6,
	}, nil
}

// Send posts the summary of report.
func (c *Client) Send(ctx context.Context, report *models.CrossGameReport) error {
	msg := tgbotapi.NewMessage(c.chatID, formatMessage(report, c.topNumbers))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("send cancelled after %d attempts: %w", i+1, ctx.Err())
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatMessage renders report as a MarkdownV2 message.
func formatMessage(report *models.CrossGameReport, topNumbers int) string {
	var b strings.Builder
	b.WriteString("🎯 *Vietlott Prediction Report*\n")
	fmt.Fprintf(&b, "📅 %s\n\n", escapeMarkdownV2(report.GeneratedAt.Format("2006-01-02 15:04")))

	for _, game := range models.Games {
		src, ok := report.Sources[game]
		if !ok || src == nil {
			continue
		}
		fmt.Fprintf(&b, "*%s* \\(%s draws\\)\n", escapeMarkdownV2(gameTitle(game)), escapeMarkdownV2(humanize.Comma(int64(src.TotalDraws))))
		if !src.LatestDrawDate.IsZero() {
			fmt.Fprintf(&b, "   Last draw %s", escapeMarkdownV2(src.LatestDrawDate.Format("02/01/2006")))
			if src.LatestPrize > 0 {
				fmt.Fprintf(&b, ", jackpot %s ₫", escapeMarkdownV2(humanize.Comma(src.LatestPrize)))
			}
			b.WriteString("\n")
		}

		if preds := src.NumberAnalysis.TopPredictions; len(preds) > 0 {
			if len(preds) > topNumbers {
				preds = preds[:topNumbers]
			}
			nums := make([]string, len(preds))
			for i, p := range preds {
				nums[i] = fmt.Sprintf("%02d", p.Number)
			}
			fmt.Fprintf(&b, "   🔢 Numbers: %s\n", escapeMarkdownV2(strings.Join(nums, " ")))
		}

		if tops := src.TemplateAnalysis.TopPredictions; len(tops) > 0 {
			top := tops[0]
			fmt.Fprintf(&b, "   🧩 Template %s %s: *%s*, confidence %d\n",
				escapeMarkdownV2(top.TemplateID),
				escapeMarkdownV2(strings.Join(top.Pattern, " ")),
				escapeMarkdownV2(fmt.Sprintf("%.1f%%", top.OverallProbability)),
				top.ConfidenceLevel)
		}
		b.WriteString("\n")
	}

	for _, rec := range report.Recommendations {
		if rec.Type != "template_focus" {
			continue
		}
		fmt.Fprintf(&b, "💡 %s\n", escapeMarkdownV2(rec.Recommendation))
	}
	return b.String()
}

func gameTitle(game models.Game) string {
	switch game {
	case models.Vietlot45:
		return "Mega 6/45"
	case models.Vietlot55:
		return "Power 6/55"
	default:
		return string(game)
	}
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
