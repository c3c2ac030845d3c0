package notifications

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ProjectRakawara/rescue_svc/internal/model"
)

const (
	defaultClientTimeout = 10 * time.Second

	captionHeaderLine      = "<b>🚨 New rescue post arrived</b>"
	captionVerifiedLine    = "<b>✅ Verified</b>"
	captionNotVerifiedLine = "<b>❌ Not verified</b>"
	fallbackImagesHeader   = "Images:"

	logEventSendFailed     = "telegram_send_failed"
	logEventFallbackFailed = "telegram_fallback_failed"
	logFieldPostID         = "post_id"
)

// RescueNotifier delivers a notification describing a newly created rescue
// post. Implementations are best-effort: callers log failures and move on.
type RescueNotifier interface {
	NotifyRescuePost(ctx context.Context, post model.RescuePost, imageURLs []string) error
}

type noopRescueNotifier struct{}

func (noopRescueNotifier) NotifyRescuePost(ctx context.Context, post model.RescuePost, imageURLs []string) error {
	return nil
}

// ResolveNotifier substitutes a silent noop when no notifier is configured.
func ResolveNotifier(notifier RescueNotifier) RescueNotifier {
	if notifier == nil {
		return noopRescueNotifier{}
	}
	return notifier
}

// TelegramConfig captures Bot API connection settings for the operations channel.
type TelegramConfig struct {
	BotToken      string
	ChannelID     string
	APIEndpoint   string
	ClientTimeout time.Duration
}

// TelegramNotifier posts formatted rescue reports to a Telegram channel.
type TelegramNotifier struct {
	logger          *zap.Logger
	bot             *tgbotapi.BotAPI
	chatID          int64
	channelUsername string
}

// NewTelegramNotifier creates a notifier for the configured channel. The bot
// identity is not probed at construction so startup does not require network
// access.
func NewTelegramNotifier(logger *zap.Logger, configuration TelegramConfig) (*TelegramNotifier, error) {
	if configuration.BotToken == "" {
		return nil, errors.New("telegram bot token is required")
	}
	trimmedChannelID := strings.TrimSpace(configuration.ChannelID)
	if trimmedChannelID == "" {
		return nil, errors.New("telegram channel id is required")
	}
	if configuration.ClientTimeout <= 0 {
		configuration.ClientTimeout = defaultClientTimeout
	}
	apiEndpoint := configuration.APIEndpoint
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bot := &tgbotapi.BotAPI{
		Token:  configuration.BotToken,
		Client: &http.Client{Timeout: configuration.ClientTimeout},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(apiEndpoint)

	notifier := &TelegramNotifier{logger: logger, bot: bot}
	if strings.HasPrefix(trimmedChannelID, "@") {
		notifier.channelUsername = trimmedChannelID
		return notifier, nil
	}

	numericChatID, parseErr := strconv.ParseInt(trimmedChannelID, 10, 64)
	if parseErr != nil {
		return nil, fmt.Errorf("telegram channel id must be numeric or @username: %w", parseErr)
	}
	notifier.chatID = numericChatID
	return notifier, nil
}

func (notifier *TelegramNotifier) baseChat() tgbotapi.BaseChat {
	return tgbotapi.BaseChat{ChatID: notifier.chatID, ChannelUsername: notifier.channelUsername}
}

// NotifyRescuePost sends the report as a photo, media group, or plain message
// depending on how many photos were submitted. When that delivery fails it
// makes exactly one fallback attempt as a plain message embedding the photo
// URLs as links.
func (notifier *TelegramNotifier) NotifyRescuePost(ctx context.Context, post model.RescuePost, imageURLs []string) error {
	caption := formatCaption(post)

	images := make([]string, 0, len(imageURLs))
	for _, imageURL := range imageURLs {
		if strings.TrimSpace(imageURL) != "" {
			images = append(images, imageURL)
		}
	}

	var sendErr error
	switch {
	case len(images) == 1:
		photo := tgbotapi.PhotoConfig{
			BaseFile: tgbotapi.BaseFile{
				BaseChat: notifier.baseChat(),
				File:     tgbotapi.FileURL(images[0]),
			},
			Caption:   caption,
			ParseMode: tgbotapi.ModeHTML,
		}
		_, sendErr = notifier.bot.Send(photo)
	case len(images) > 1:
		media := make([]interface{}, 0, len(images))
		for imageIndex, imageURL := range images {
			item := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(imageURL))
			if imageIndex == 0 {
				item.Caption = caption
				item.ParseMode = tgbotapi.ModeHTML
			}
			media = append(media, item)
		}
		mediaGroup := tgbotapi.MediaGroupConfig{
			ChatID:          notifier.chatID,
			ChannelUsername: notifier.channelUsername,
			Media:           media,
		}
		_, sendErr = notifier.bot.SendMediaGroup(mediaGroup)
	default:
		message := tgbotapi.MessageConfig{
			BaseChat:              notifier.baseChat(),
			Text:                  caption,
			ParseMode:             tgbotapi.ModeHTML,
			DisableWebPagePreview: true,
		}
		_, sendErr = notifier.bot.Send(message)
	}

	if sendErr == nil {
		return nil
	}

	notifier.logger.Warn(logEventSendFailed, zap.Error(sendErr), zap.String(logFieldPostID, post.ID))

	fallbackText := caption
	if len(images) > 0 {
		fallbackText = caption + "\n\n" + fallbackImagesHeader + "\n" + strings.Join(images, "\n")
	}
	fallbackMessage := tgbotapi.MessageConfig{
		BaseChat:  notifier.baseChat(),
		Text:      fallbackText,
		ParseMode: tgbotapi.ModeHTML,
	}
	if _, fallbackErr := notifier.bot.Send(fallbackMessage); fallbackErr != nil {
		notifier.logger.Warn(logEventFallbackFailed, zap.Error(fallbackErr), zap.String(logFieldPostID, post.ID))
		return fallbackErr
	}
	return nil
}

var captionFieldIcons = map[string]string{
	"Full Name":      "👤",
	"Phone":          "📞",
	"Alt Phone":      "📞",
	"Location":       "📍",
	"Land Mark":      "🏷️",
	"District":       "🧭",
	"Emergency Type": "⚠️",
	"Description":    "📝",
}

func formatCaption(post model.RescuePost) string {
	statusLine := captionNotVerifiedLine
	if post.IsVerified {
		statusLine = captionVerifiedLine
	}

	orderedFields := []struct {
		label string
		value string
	}{
		{"Full Name", post.FullName},
		{"Phone", post.PhoneNumber},
		{"Alt Phone", post.AltPhoneNumber},
		{"Location", post.Location},
		{"Land Mark", post.LandMark},
		{"District", post.District},
		{"Emergency Type", post.EmergencyType},
		{"Priority Level", post.PriorityLevel},
		{"Location URL", post.LocationURL},
		{"Description", post.Description},
	}

	captionBuilder := &strings.Builder{}
	captionBuilder.WriteString(captionHeaderLine)
	captionBuilder.WriteString("\n")
	captionBuilder.WriteString(statusLine)
	captionBuilder.WriteString("\n")
	for _, field := range orderedFields {
		if field.value == "" {
			continue
		}
		icon, iconKnown := captionFieldIcons[field.label]
		if !iconKnown {
			icon = "•"
		}
		_, _ = fmt.Fprintf(captionBuilder, "\n%s <b>%s:</b> <code>%s</code>", icon, field.label, html.EscapeString(field.value))
	}
	return captionBuilder.String()
}
