package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	app "hazard-vision/internal/application"
	"hazard-vision/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я бот для поиска опасных предметов на фотографиях.

📸 Выберите набор моделей и отправьте фото, я покажу, что нашли модели, и предупрежу об опасных предметах.

📋 Команды:
/presets — доступные наборы моделей
/models <набор> — загрузить набор моделей
/check — начать проверку фото
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Загрузите модели: /models mobilenet+coco-ssd
2️⃣ Отправьте фото
3️⃣ Вы получите вывод каждой модели и предупреждение, если найдены опасные предметы

💡 Набор моделей общий для всех пользователей: новый выбор заменяет предыдущий.

📋 Команды:
/presets — доступные наборы
/models <набор> — загрузить набор
/check — начать проверку
/cancel — отменить операцию`

	msgAwaitingPhoto   = "📸 Отправьте фото для проверки."
	msgCancelled       = "❌ Операция отменена. Отправьте /check для новой проверки."
	msgSendPhoto       = "📸 Пожалуйста, отправьте фото для проверки."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgLoading         = "⏳ Загружаю модели..."
	msgModelsUsage     = "Укажите набор моделей, например: /models mobilenet+coco-ssd\nСписок наборов: /presets"
	msgUnknownPreset   = "❓ Неизвестный набор моделей. Список наборов: /presets"
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте сделать другое фото."
	msgHazardAlert     = "🚨 Внимание: на фото обнаружены опасные предметы!"
)

// Bot представляет Telegram-бота
type Bot struct {
	api        *tgbotapi.BotAPI
	users      *app.UserService
	inspection *app.InspectionService
	client     *http.Client
	log        *zap.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, users *app.UserService, inspection *app.InspectionService, log *zap.Logger) (*Bot, error) {
	if log == nil {
		log = zap.NewNop()
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	return &Bot{
		api:        api,
		users:      users,
		inspection: inspection,
		client:     http.DefaultClient,
		log:        log,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Обработка фото
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.setState(ctx, userID, chatID, entity.StateMainMenu)
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "presets":
		b.sendMessage(chatID, presetsText())

	case "models":
		b.handleModels(ctx, msg)

	case "check":
		if _, err := b.users.BeginCheck(ctx, userID, chatID); err != nil {
			b.log.Warn("begin check", zap.Int64("user_id", userID), zap.Error(err))
		}
		b.sendMessage(chatID, msgAwaitingPhoto)

	case "cancel":
		if _, err := b.users.Cancel(ctx, userID, chatID); err != nil {
			b.log.Warn("cancel", zap.Int64("user_id", userID), zap.Error(err))
		}
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// handleModels загружает набор моделей, указанный в аргументе команды
func (b *Bot) handleModels(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		b.sendMessage(chatID, msgModelsUsage)
		return
	}
	preset, err := entity.ParsePreset(arg)
	if err != nil {
		b.sendMessage(chatID, msgUnknownPreset)
		return
	}

	if _, err := b.users.SelectPreset(ctx, msg.From.ID, chatID, preset); err != nil {
		b.log.Warn("save preset", zap.Int64("user_id", msg.From.ID), zap.Error(err))
	}

	b.sendMessage(chatID, msgLoading)
	if err := b.inspection.SelectPreset(ctx, preset); err != nil {
		b.sendMessage(chatID, entity.UserMessage(err))
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("%s\n%s", b.inspection.Status().Message(), preset.Description()))
}

// handlePhoto обрабатывает входящее фото
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	// Устанавливаем состояние "обработка"
	var preset entity.Preset
	if user, err := b.users.SetState(ctx, userID, chatID, entity.StateProcessing); err != nil {
		b.log.Warn("save user state", zap.Int64("user_id", userID), zap.Error(err))
	} else {
		preset = user.Preset
	}
	defer b.setState(ctx, userID, chatID, entity.StateMainMenu)

	b.sendMessage(chatID, msgProcessing)

	// Получаем файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		b.log.Error("download photo", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	// Набор, выбранный в этом чате, мог быть заменён другим пользователем
	out, err := b.inspection.InspectWithPreset(ctx, preset, entity.Frame{Data: imageData, Source: entity.SourceTelegram})
	for _, text := range inspectionReplies(out, err) {
		b.sendMessage(chatID, text)
	}
}

// inspectionReplies сообщения пользователю по результату проверки
func inspectionReplies(out *app.InspectionOutput, err error) []string {
	if err != nil {
		return []string{entity.UserMessage(err)}
	}
	replies := []string{app.RenderText(out.Report)}
	if out.Report.Alert {
		replies = append(replies, msgHazardAlert)
	}
	return replies
}

// presetsText список наборов моделей с описаниями
func presetsText() string {
	var sb strings.Builder
	sb.WriteString("📋 Наборы моделей:\n")
	for _, p := range entity.Presets() {
		fmt.Fprintf(&sb, "\n• %s\n%s\n", p, p.Description())
	}
	return sb.String()
}

func (b *Bot) setState(ctx context.Context, userID, chatID int64, state entity.UserState) {
	if _, err := b.users.SetState(ctx, userID, chatID, state); err != nil {
		b.log.Warn("save user state", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
