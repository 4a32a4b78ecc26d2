package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/expense-approval/internal/approval"
	"gitlab.com/yelinaung/expense-approval/internal/logger"
	"gitlab.com/yelinaung/expense-approval/internal/models"
	"gitlab.com/yelinaung/expense-approval/internal/notify/mocks"
)

// MessageSender is the part of the Telegram API the notifier uses.
type MessageSender = mocks.MessageSender

var _ MessageSender = (*bot.Bot)(nil)

// TelegramNotifier sends notifications to users that have linked a Telegram chat.
type TelegramNotifier struct {
	sender MessageSender
}

var _ approval.Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier creates a notifier backed by a Telegram bot.
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return NewTelegramNotifierWithSender(b), nil
}

// NewTelegramNotifierWithSender creates a notifier on top of an existing sender.
func NewTelegramNotifierWithSender(sender MessageSender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender}
}

// ApprovalRequested tells the approver an expense is waiting on them.
func (n *TelegramNotifier) ApprovalRequested(ctx context.Context, exp *models.Expense, approver *models.User) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 <b>Approval needed</b>\n\nExpense #%d: %s %s", exp.ID, exp.Amount.StringFixed(2), escapeHTML(exp.Currency))
	if exp.Category != "" {
		fmt.Fprintf(&sb, "\nCategory: %s", escapeHTML(exp.Category))
	}
	if exp.Description != "" {
		fmt.Fprintf(&sb, "\n%s", escapeHTML(exp.Description))
	}
	fmt.Fprintf(&sb, "\nStep %d", exp.CurrentApprovalStep)
	return n.send(ctx, approver, sb.String())
}

// ExpenseFinalized tells the submitter how their expense was decided.
func (n *TelegramNotifier) ExpenseFinalized(ctx context.Context, exp *models.Expense, submitter *models.User) error {
	icon, verb := "✅", "approved"
	if exp.Status == models.ExpenseStatusRejected {
		icon, verb = "❌", "rejected"
	}
	text := fmt.Sprintf("%s Expense #%d (%s %s) was <b>%s</b>.",
		icon, exp.ID, exp.Amount.StringFixed(2), escapeHTML(exp.Currency), verb)
	return n.send(ctx, submitter, text)
}

func (n *TelegramNotifier) send(ctx context.Context, u *models.User, text string) error {
	if u == nil || u.TelegramChatID == nil {
		logger.Log.Debug().
			Str("user", hashedUser(u)).
			Msg("User has no telegram chat, skipping notification")
		return nil
	}

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    *u.TelegramChatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	logger.Log.Debug().
		Str("chat_id", logger.HashChatID(*u.TelegramChatID)).
		Msg("Notification sent")
	return nil
}

func hashedUser(u *models.User) string {
	if u == nil {
		return ""
	}
	return logger.HashUserID(u.ID)
}

// escapeHTML escapes the characters Telegram's HTML parse mode reserves.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
