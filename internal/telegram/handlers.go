package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/nft-staking/internal/staking"
	"github.com/suspectuso/nft-staking/internal/tonapi"
)

var addrRegex = regexp.MustCompile(`(0:[0-9A-Fa-f]{64}|[UEk0][Qf][0-9A-Za-z_-]{46})`)

// Ledger is the read side of the staking ledger used by the bot
type Ledger interface {
	QueryConfig(ctx context.Context) (*staking.ConfigResponse, error)
	QueryReward(ctx context.Context, staker string) (*staking.RewardResponse, error)
}

// Bot wraps the telegram bot with handlers
type Bot struct {
	bot    *bot.Bot
	ledger Ledger
	states *StateManager
	log    *slog.Logger
}

// New creates a new telegram bot
func New(token string, ledger Ledger, log *slog.Logger) (*Bot, error) {
	b := &Bot{
		ledger: ledger,
		states: NewStateManager(),
		log:    log,
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithCallbackQueryDataHandler("", bot.MatchTypePrefix, b.callbackHandler),
	}

	tgBot, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.bot = tgBot

	// Register command handlers
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/reward", bot.MatchTypePrefix, b.rewardHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/config", bot.MatchTypeExact, b.configHandler)

	return b, nil
}

// Start starts the bot polling
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

// --- Handlers ---

func (b *Bot) startHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	b.states.Clear(update.Message.From.ID)
	b.sendMessage(ctx, update.Message.Chat.ID, welcomeText(update.Message.From), MainKeyboard())
}

func (b *Bot) rewardHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	addr := extractAddress(update.Message.Text)
	if addr == "" {
		b.states.Set(update.Message.From.ID, StateWaitRewardAddress, nil)
		b.sendMessage(ctx, update.Message.Chat.ID, askAddressText, BackKeyboard())
		return
	}
	b.replyReward(ctx, update.Message.Chat.ID, addr)
}

func (b *Bot) configHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	b.sendMessage(ctx, update.Message.Chat.ID, b.configText(ctx), BackKeyboard())
}

func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	userID := update.Message.From.ID
	text := strings.TrimSpace(update.Message.Text)

	state := b.states.Get(userID)
	if state == nil {
		return
	}

	switch state.State {
	case StateWaitRewardAddress:
		addr := extractAddress(text)
		if addr == "" {
			b.sendMessage(ctx, update.Message.Chat.ID, "❌ Адрес не похож на TON. Попробуй ещё раз.", nil)
			return
		}
		b.states.Clear(userID)
		b.replyReward(ctx, update.Message.Chat.ID, addr)
	}
}

func (b *Bot) callbackHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	cb := update.CallbackQuery
	userID := cb.From.ID
	data := cb.Data

	// Answer callback to remove loading state
	tgBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})

	switch {
	case data == "back":
		b.states.Clear(userID)
		b.editMessage(ctx, cb.Message, welcomeText(&cb.From), MainKeyboard())
	case data == "reward":
		b.states.Set(userID, StateWaitRewardAddress, nil)
		b.editMessage(ctx, cb.Message, askAddressText, BackKeyboard())
	case data == "config":
		b.editMessage(ctx, cb.Message, b.configText(ctx), BackKeyboard())
	case strings.HasPrefix(data, "refresh:"):
		staker := strings.TrimPrefix(data, "refresh:")
		text, keyboard := b.rewardText(ctx, staker)
		b.editMessage(ctx, cb.Message, text, keyboard)
	default:
		b.log.Warn("unknown callback", "data", data, "user_id", userID)
	}
}

// --- Texts ---

const askAddressText = "🔹 Отправь адрес кошелька, с которого застейканы NFT\n(можно ссылкой с tonviewer/tonscan):"

func welcomeText(user *models.User) string {
	name := user.FirstName
	if name == "" {
		name = user.Username
	}
	if name == "" {
		name = "друг"
	}
	return fmt.Sprintf(
		"<a href='tg://user?id=%d'>%s</a>, добро пожаловать в <b>NFT Staking</b>! 🦍\n\n"+
			"Стейкай NFT из двух коллекций и получай наградные токены.\n"+
			"Чем больше NFT в стейке, тем быстрее капает награда.\n\n"+
			"Выбери действие 👇",
		user.ID, name,
	)
}

func (b *Bot) replyReward(ctx context.Context, chatID int64, staker string) {
	text, keyboard := b.rewardText(ctx, staker)
	b.sendMessage(ctx, chatID, text, keyboard)
}

func (b *Bot) rewardText(ctx context.Context, staker string) (string, *models.InlineKeyboardMarkup) {
	reward, err := b.ledger.QueryReward(ctx, staker)
	if errors.Is(err, staking.ErrInvalidAddress) {
		return "❌ Адрес не похож на TON. Попробуй ещё раз.", BackKeyboard()
	}
	if err != nil {
		b.log.Error("query reward", "error", err, "staker", staker)
		return "❌ Не удалось получить награду. Попробуй позже.", BackKeyboard()
	}
	display := tonapi.RawToFriendly(tonapi.NormalizeAddress(staker))
	return FormatReward(display, reward), RewardKeyboard(display)
}

func (b *Bot) configText(ctx context.Context) string {
	cfg, err := b.ledger.QueryConfig(ctx)
	if err != nil {
		b.log.Error("query config", "error", err)
		return "❌ Стейкинг ещё не настроен."
	}
	return FormatConfig(cfg)
}

// FormatReward renders a reward report
func FormatReward(staker string, r *staking.RewardResponse) string {
	var kindA, kindB int
	for _, t := range r.Staked {
		if t.Kind == staking.KindA {
			kindA++
		} else {
			kindB++
		}
	}

	var sb strings.Builder
	sb.WriteString("💰 <b>Награда</b>\n\n")
	sb.WriteString(fmt.Sprintf("Кошелёк: <code>%s</code>\n", tonapi.ShortAddr(staker, 6)))
	sb.WriteString(fmt.Sprintf("В стейке: <b>%d</b> NFT (A: %d, B: %d)\n", len(r.Staked), kindA, kindB))
	sb.WriteString(fmt.Sprintf("Накоплено: <b>%s</b>\n", trimDecimal(r.RewardAmount.String())))
	sb.WriteString(fmt.Sprintf("Можно забрать: <b>%d</b> токен(ов)", r.Claimable))
	if len(r.Staked) == 0 {
		sb.WriteString("\n\nℹ️ Сейчас ничего не застейкано, награда не начисляется.")
	}
	return sb.String()
}

// FormatConfig renders the ledger configuration
func FormatConfig(cfg *staking.ConfigResponse) string {
	return fmt.Sprintf(
		"⚙️ <b>Коллекции</b>\n\n"+
			"Коллекция A: <code>%s</code>\n"+
			"Коллекция B: <code>%s</code>\n"+
			"Награда: <code>%s</code>\n"+
			"Владелец: <code>%s</code>",
		cfg.CollectionA, cfg.CollectionB, cfg.RewardCollection, cfg.Owner,
	)
}

// trimDecimal cuts a decimal string to 6 fractional digits without rounding
func trimDecimal(s string) string {
	dot := strings.IndexByte(s, '.')
	if dot < 0 || len(s)-dot-1 <= 6 {
		return s
	}
	return s[:dot+7]
}

// --- Helpers ---

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.SendMessage(ctx, params)
	if err != nil {
		b.log.Error("send message", "error", err)
	}
}

func (b *Bot) editMessage(ctx context.Context, msg models.MaybeInaccessibleMessage, text string, keyboard *models.InlineKeyboardMarkup) {
	if msg.Message == nil {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.EditMessageText(ctx, params)
	if err != nil {
		b.log.Error("edit message", "error", err)
	}
}

// SendNotification sends a notification message to a chat
func (b *Bot) SendNotification(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) error {
	disablePreview := true
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disablePreview,
		},
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.SendMessage(ctx, params)
	return err
}

func extractAddress(text string) string {
	matches := addrRegex.FindStringSubmatch(text)
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
