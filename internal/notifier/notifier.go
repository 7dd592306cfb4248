package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/nft-staking/internal/minter"
	"github.com/suspectuso/nft-staking/internal/staking"
	"github.com/suspectuso/nft-staking/internal/tonapi"
)

// Sender delivers a formatted message to a chat
type Sender interface {
	SendNotification(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) error
}

// Notifier posts ledger and issuance events to the operator chat
type Notifier struct {
	sender Sender
	chatID int64
	log    *slog.Logger
}

// New creates a new Notifier
func New(sender Sender, chatID int64, log *slog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: chatID,
		log:    log,
	}
}

// HandleResponse reports claims that minted something and config updates.
// Stakes and unstakes are too frequent to be worth a message.
func (n *Notifier) HandleResponse(ctx context.Context, caller staking.Caller, resp *staking.Response) {
	var text string
	switch resp.Action {
	case string(staking.ActionClaimReward):
		if len(resp.Mints) == 0 {
			return
		}
		text = formatClaimMessage(caller.Principal, resp.Mints)
	case "update":
		text = formatUpdateMessage(caller.Principal, resp.Attributes)
	default:
		return
	}

	n.send(ctx, text)
}

// MintOutcome reports minted tokens and mints that left the queue unminted.
// Retryable failures stay silent until the last attempt.
func (n *Notifier) MintOutcome(ctx context.Context, o minter.Outcome) {
	if o.Err != nil && !o.Final {
		return
	}
	n.send(ctx, formatOutcomeMessage(o))
}

func (n *Notifier) send(ctx context.Context, text string) {
	if err := n.sender.SendNotification(ctx, n.chatID, text, nil); err != nil {
		n.log.Error("send notification", "error", err, "chat_id", n.chatID)
	}
}

func formatClaimMessage(staker string, mints []staking.MintInstruction) string {
	ids := make([]string, 0, len(mints))
	for _, m := range mints {
		ids = append(ids, fmt.Sprintf("<code>%s</code>", html.EscapeString(m.TokenID)))
	}

	return fmt.Sprintf(
		"🎁 <b>Награда получена</b>\n\n"+
			"%s забрал %d токен(ов)\n\n"+
			"%s",
		walletLink(staker), len(mints),
		strings.Join(ids, ", "),
	)
}

func formatUpdateMessage(sender string, attrs []staking.Attribute) string {
	lines := []string{
		"⚙️ <b>Конфиг обновлён</b>",
		"",
		fmt.Sprintf("Кем: %s", walletLink(sender)),
	}
	for _, a := range attrs {
		if a.Key == "action" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s → <code>%s</code>", a.Key, html.EscapeString(a.Value)))
	}
	return strings.Join(lines, "\n")
}

func formatOutcomeMessage(o minter.Outcome) string {
	if o.Err == nil {
		return fmt.Sprintf(
			"✅ <b>Сминчен</b> <code>%s</code> → %s",
			html.EscapeString(o.Mint.TokenID), walletLink(o.Mint.Owner),
		)
	}
	return fmt.Sprintf(
		"🔻 <b>Минт не удался</b> <code>%s</code> → %s\n"+
			"Попыток: %d\n\n"+
			"<i>%s</i>",
		html.EscapeString(o.Mint.TokenID), walletLink(o.Mint.Owner),
		o.Attempts,
		html.EscapeString(o.Err.Error()),
	)
}

func walletLink(addr string) string {
	friendly := tonapi.RawToFriendly(addr)
	return fmt.Sprintf("<a href='https://tonviewer.com/%s'>%s</a>",
		html.EscapeString(friendly), html.EscapeString(tonapi.ShortAddr(friendly, 4)))
}
