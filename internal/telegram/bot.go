package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/config"
	"github.com/mediarise/neuromarket/internal/models"
	"github.com/mediarise/neuromarket/internal/poller"
	"github.com/mediarise/neuromarket/internal/pricing"
	"github.com/mediarise/neuromarket/internal/service"
	"github.com/mediarise/neuromarket/internal/session"
)

var errReferenceNotImage = errors.New("reference not image")

type ImageStorage interface {
	Upload(ctx context.Context, userID int64, data []byte, contentType string) (string, error)
}

// CreditsFetcher reports the remaining provider credit balance.
type CreditsFetcher interface {
	Credits(ctx context.Context) (decimal.Decimal, error)
}

type Bot struct {
	cfg        config.Config
	api        *tgbotapi.BotAPI
	log        *slog.Logger
	ledger     *service.LedgerService
	generation *service.GenerationService
	topup      *service.TopUpService
	credits    CreditsFetcher
	storage    ImageStorage
	sessions   *session.Store
	pollers    *poller.Registry
	httpClient *http.Client
}

func NewBot(cfg config.Config, api *tgbotapi.BotAPI, log *slog.Logger, ledger *service.LedgerService, generation *service.GenerationService, topup *service.TopUpService, credits CreditsFetcher, storage ImageStorage, pollers *poller.Registry) *Bot {
	return &Bot{
		cfg:        cfg,
		api:        api,
		log:        log,
		ledger:     ledger,
		generation: generation,
		topup:      topup,
		credits:    credits,
		storage:    storage,
		sessions:   session.NewStore(),
		pollers:    pollers,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started")

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.pollers.Shutdown()
			return ctx.Err()
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	sess := b.sessions.Snapshot(userID)

	if len(msg.Photo) > 0 || msg.Document != nil {
		switch {
		case sess.State == session.StateInputtingParams && sess.CollectingImages:
			b.handleReferenceImage(ctx, msg)
		case sess.State == session.StateWaitingPaymentScreenshot:
			b.handlePaymentScreenshot(ctx, msg, sess.TopUpAmount)
		case sess.State == session.StateAdminTestOCR:
			b.handleTestOCRImage(ctx, msg)
		default:
			b.sendText(chatID, "Сейчас я не жду изображений. Откройте меню: /start")
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case sess.State == session.StateInputtingParams && sess.WaitingFor != "":
		b.handleParamText(ctx, chatID, userID, text)
	case sess.State == session.StateSelectingAmount && sess.AwaitAmountText:
		b.handleCustomAmount(ctx, chatID, userID, text)
	default:
		b.sendText(chatID, "Не понимаю. Откройте меню: /start")
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "menu":
		b.sessions.Clear(userID)
		b.showMainMenu(ctx, chatID, userID, msg.From.FirstName)
	case "balance":
		b.showBalance(ctx, chatID, userID)
	case "cancel":
		b.sessions.Clear(userID)
		b.sendText(chatID, "Действие отменено.")
		b.showMainMenu(ctx, chatID, userID, msg.From.FirstName)
	case "help":
		b.sendHTML(chatID, helpText())
	case "admin":
		b.showAdminPanel(ctx, chatID, userID)
	case "stats":
		b.showAdminStats(ctx, chatID, userID)
	case "credits":
		b.showProviderCredits(ctx, chatID, userID)
	default:
		b.sendText(chatID, "Неизвестная команда. Используйте /start.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID
	cmd := ParseCommand(cb.Data)

	b.ackCallback(cb.ID)

	switch cmd.Kind {
	case CmdMainMenu:
		b.sessions.Clear(userID)
		b.showMainMenu(ctx, chatID, userID, cb.From.FirstName)
	case CmdAllModels:
		b.showCategories(chatID)
	case CmdCategory:
		b.showModels(ctx, chatID, userID, cmd.Category)
	case CmdSelectModel:
		b.startForm(ctx, chatID, userID, cmd.ModelID)
	case CmdSetParam:
		b.handleParamSelection(ctx, chatID, userID, cmd.Param, cmd.Value)
	case CmdImagesDone:
		b.handleImagesDone(ctx, chatID, userID)
	case CmdSkipImages:
		b.handleSkipImages(ctx, chatID, userID)
	case CmdConfirm:
		b.handleConfirm(ctx, chatID, userID)
	case CmdCancel:
		b.sessions.Clear(userID)
		b.sendText(chatID, "Отменено.")
		b.showMainMenu(ctx, chatID, userID, cb.From.FirstName)
	case CmdBalance:
		b.showBalance(ctx, chatID, userID)
	case CmdTopUp:
		b.showTopUpMenu(ctx, chatID, userID)
	case CmdTopUpAmount:
		b.handleTopUpPreset(ctx, chatID, userID, cmd.Amount)
	case CmdTopUpCustom:
		b.handleTopUpCustom(chatID, userID)
	case CmdGenerateAgain:
		b.handleGenerateAgain(ctx, chatID, userID)
	case CmdHelp:
		b.sendHTML(chatID, helpText())
	case CmdSupport:
		b.sendHTML(chatID, b.topup.SupportContact())
	case CmdAdminPanel:
		b.showAdminPanel(ctx, chatID, userID)
	case CmdAdminStats:
		b.showAdminStats(ctx, chatID, userID)
	case CmdAdminTestOCR:
		b.startTestOCR(ctx, chatID, userID)
	case CmdAdminUserMode:
		b.toggleAdminUserMode(ctx, chatID, userID)
	default:
		b.log.Debug("unknown callback ignored", "data", cb.Data)
	}
}

func (b *Bot) showMainMenu(ctx context.Context, chatID, userID int64, firstName string) {
	role, err := b.ledger.RoleFor(ctx, userID)
	if err != nil {
		b.log.Error("resolve role", "user", userID, "err", err)
		role = models.RoleUser
	}
	name := firstName
	if name == "" {
		name = "друг"
	}
	text := fmt.Sprintf("👋 Привет, %s!\n\nЯ генерирую изображения и видео нейросетями. Выберите модель, заполните параметры и получите результат прямо в чате.", name)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenuKeyboard(role.IsAdmin())
	b.send(msg)
}

func (b *Bot) showBalance(ctx context.Context, chatID, userID int64) {
	role, err := b.ledger.RoleFor(ctx, userID)
	if err != nil {
		b.log.Error("resolve role", "user", userID, "err", err)
		b.sendText(chatID, "Не удалось получить баланс, попробуйте позже.")
		return
	}

	var text string
	switch role {
	case models.RoleRoot:
		text = "👑 <b>Root-администратор</b>\n\nЛимиты не применяются, генерации не списываются."
	case models.RoleAdmin:
		limit, _, err := b.ledger.LimitFor(ctx, userID)
		if err != nil {
			b.log.Error("admin limit", "user", userID, "err", err)
			b.sendText(chatID, "Не удалось получить лимит, попробуйте позже.")
			return
		}
		spent, err := b.ledger.SpentFor(ctx, userID)
		if err != nil {
			b.log.Error("admin spent", "user", userID, "err", err)
			b.sendText(chatID, "Не удалось получить лимит, попробуйте позже.")
			return
		}
		remaining, _, err := b.ledger.RemainingFor(ctx, userID)
		if err != nil {
			b.log.Error("admin remaining", "user", userID, "err", err)
			b.sendText(chatID, "Не удалось получить лимит, попробуйте позже.")
			return
		}
		text = fmt.Sprintf("🛠 <b>Администратор</b>\n\nЛимит: %s\nПотрачено: %s\nОсталось: %s",
			pricing.FormatRUB(limit), pricing.FormatRUB(spent), pricing.FormatRUB(remaining))
	default:
		balance, err := b.ledger.Balance(ctx, userID)
		if err != nil {
			b.log.Error("balance", "user", userID, "err", err)
			b.sendText(chatID, "Не удалось получить баланс, попробуйте позже.")
			return
		}
		text = fmt.Sprintf("💰 <b>Ваш баланс:</b> %s", pricing.FormatRUB(balance))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = topUpHintKeyboard()
	b.send(msg)
}

func topUpHintKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Пополнить", cbTopUp),
		),
		backRow(),
	)
}

// refuseIfBlocked stops blocked users before they enter a paid flow.
func (b *Bot) refuseIfBlocked(ctx context.Context, chatID, userID int64) bool {
	blocked, err := b.ledger.IsBlocked(ctx, userID)
	if err != nil {
		b.log.Error("blocked check", "user", userID, "err", err)
		return false
	}
	if blocked {
		b.sendHTML(chatID, "🚫 Доступ ограничен. Обратитесь в поддержку: "+b.topup.SupportContact())
	}
	return blocked
}

// displayRole downgrades admins browsing in user mode so menus show
// user prices; the real role is resolved again at submission.
func (b *Bot) displayRole(ctx context.Context, userID int64) models.Role {
	role, err := b.ledger.RoleFor(ctx, userID)
	if err != nil {
		b.log.Error("resolve role", "user", userID, "err", err)
		return models.RoleUser
	}
	if role.IsAdmin() && b.sessions.Snapshot(userID).AdminUserMode {
		return models.RoleUser
	}
	return role
}

func (b *Bot) handleReferenceImage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	data, contentType, err := b.extractImage(ctx, msg)
	if err != nil {
		if errors.Is(err, errReferenceNotImage) {
			b.sendText(chatID, "Это не изображение. Пришлите фото или картинку.")
		} else {
			b.log.Error("reference download failed", "user", userID, "err", err)
			b.sendText(chatID, "Не удалось сохранить изображение, попробуйте снова.")
		}
		return
	}

	url, err := b.storage.Upload(ctx, userID, data, contentType)
	if err != nil {
		b.log.Error("reference upload failed", "user", userID, "err", err)
		b.sendText(chatID, "Не удалось сохранить изображение, попробуйте снова.")
		return
	}

	var full bool
	var count, max int
	var addErr error
	b.sessions.Do(userID, func(sess *session.Session) {
		full, addErr = sess.AddImage(url)
		count = len(sess.Images)
		if img, ok := sess.Schema.ImageParam(); ok {
			max = img.Max
		}
	})
	if addErr != nil {
		b.sendText(chatID, "Сейчас я не жду изображений. Откройте меню: /start")
		return
	}

	if full {
		b.sendText(chatID, fmt.Sprintf("Изображение %d/%d добавлено. Лимит достигнут.", count, max))
		b.presentNextStep(ctx, chatID, userID)
		return
	}
	reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("Изображение %d/%d добавлено. Пришлите ещё или нажмите «Готово».", count, max))
	reply.ReplyMarkup = imagesKeyboard(false, count)
	b.send(reply)
}

// extractImage picks the richest photo size or an image document from
// a message and downloads its bytes.
func (b *Bot) extractImage(ctx context.Context, msg *tgbotapi.Message) ([]byte, string, error) {
	var fileID string
	contentType := "image/jpeg"

	switch {
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		fileID = photo.FileID
	case msg.Document != nil:
		if mt := strings.ToLower(msg.Document.MimeType); mt != "" && !strings.HasPrefix(mt, "image/") {
			return nil, "", errReferenceNotImage
		}
		fileID = msg.Document.FileID
		if msg.Document.MimeType != "" {
			contentType = msg.Document.MimeType
		}
	default:
		return nil, "", errReferenceNotImage
	}

	data, detectedType, err := b.downloadFile(ctx, fileID)
	if err != nil {
		return nil, "", err
	}
	if detectedType != "" {
		contentType = detectedType
	}
	return data, contentType, nil
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("get file: %w", err)
	}
	if file.FilePath == "" {
		return nil, "", fmt.Errorf("file path empty")
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", b.api.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("telegram file status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file body: %w", err)
	}
	ct, err := normalizeImageContentType(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, "", err
	}
	return body, ct, nil
}

func (b *Bot) ackCallback(id string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		b.log.Error("callback ack", "err", err)
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Error("send message", "err", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(msg)
}

func helpText() string {
	var sb strings.Builder
	sb.WriteString("ℹ️ <b>Как пользоваться ботом</b>\n\n")
	sb.WriteString("1. Нажмите «🎨 Модели» и выберите нейросеть.\n")
	sb.WriteString("2. Заполните параметры: промпт, изображения, настройки.\n")
	sb.WriteString("3. Подтвердите запуск и дождитесь результата.\n\n")
	sb.WriteString("Стоимость списывается с баланса только после успешной генерации.\n")
	sb.WriteString("Пополнить баланс: «💳 Пополнить» → переведите сумму по СБП и пришлите скриншот.\n\n")
	sb.WriteString("Команды:\n/start — главное меню\n/balance — баланс\n/cancel — отменить текущее действие\n/help — эта справка")
	return sb.String()
}

func normalizeImageContentType(headerCT string, data []byte) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(headerCT))
	if idx := strings.Index(ct, ";"); idx > 0 {
		ct = ct[:idx]
	}
	if ct == "" || ct == "application/octet-stream" || !strings.HasPrefix(ct, "image/") {
		if len(data) > 0 {
			ct = http.DetectContentType(data)
			if idx := strings.Index(ct, ";"); idx > 0 {
				ct = ct[:idx]
			}
		}
	}

	switch ct {
	case "image/jpeg", "image/jpg":
		return "image/jpeg", nil
	case "image/png":
		return "image/png", nil
	case "image/webp":
		return "image/webp", nil
	default:
		return "", errReferenceNotImage
	}
}
