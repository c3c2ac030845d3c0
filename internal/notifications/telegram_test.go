package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ProjectRakawara/rescue_svc/internal/model"
)

const (
	testBotToken        = "123456:test-bot-token"
	testChannelUsername = "@flood-ops"

	methodSendPhoto      = "sendPhoto"
	methodSendMediaGroup = "sendMediaGroup"
	methodSendMessage    = "sendMessage"
)

type botAPICall struct {
	method string
	params url.Values
}

// fakeBotAPI emulates the Bot API surface the notifier talks to, recording
// every call and failing the configured methods with an ok:false response.
type fakeBotAPI struct {
	mutex       sync.Mutex
	calls       []botAPICall
	failMethods map[string]bool
}

func (api *fakeBotAPI) handler() http.HandlerFunc {
	return func(responseWriter http.ResponseWriter, request *http.Request) {
		_ = request.ParseForm()
		methodName := path.Base(request.URL.Path)

		api.mutex.Lock()
		api.calls = append(api.calls, botAPICall{method: methodName, params: request.PostForm})
		shouldFail := api.failMethods[methodName]
		api.mutex.Unlock()

		responseWriter.Header().Set("Content-Type", "application/json")
		switch {
		case shouldFail:
			_, _ = responseWriter.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: simulated failure"}`))
		case methodName == methodSendMediaGroup:
			_, _ = responseWriter.Write([]byte(`{"ok":true,"result":[{"message_id":1,"date":1,"chat":{"id":1}}]}`))
		default:
			_, _ = responseWriter.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":1,"chat":{"id":1}}}`))
		}
	}
}

func (api *fakeBotAPI) recordedCalls() []botAPICall {
	api.mutex.Lock()
	defer api.mutex.Unlock()
	return append([]botAPICall(nil), api.calls...)
}

func newTestNotifier(testingT *testing.T, api *fakeBotAPI) *TelegramNotifier {
	testingT.Helper()

	server := httptest.NewServer(api.handler())
	testingT.Cleanup(server.Close)

	notifier, notifierErr := NewTelegramNotifier(zap.NewNop(), TelegramConfig{
		BotToken:    testBotToken,
		ChannelID:   testChannelUsername,
		APIEndpoint: server.URL + "/bot%s/%s",
	})
	require.NoError(testingT, notifierErr)
	return notifier
}

func newNotificationPost() model.RescuePost {
	return model.RescuePost{
		ID:            "post-1",
		FullName:      "Amina Rahman",
		PhoneNumber:   "8801712345678",
		Location:      "Ward 4, riverside settlement",
		District:      "Sylhet",
		EmergencyType: "flood",
		PriorityLevel: model.PriorityLevelHigh,
		LocationURL:   "https://maps.example/pin/123",
	}
}

func TestNewTelegramNotifierValidatesConfiguration(testingT *testing.T) {
	_, missingTokenErr := NewTelegramNotifier(nil, TelegramConfig{ChannelID: testChannelUsername})
	require.Error(testingT, missingTokenErr)

	_, missingChannelErr := NewTelegramNotifier(nil, TelegramConfig{BotToken: testBotToken})
	require.Error(testingT, missingChannelErr)

	_, badChannelErr := NewTelegramNotifier(nil, TelegramConfig{BotToken: testBotToken, ChannelID: "flood-ops"})
	require.Error(testingT, badChannelErr)

	usernameNotifier, usernameErr := NewTelegramNotifier(nil, TelegramConfig{BotToken: testBotToken, ChannelID: testChannelUsername})
	require.NoError(testingT, usernameErr)
	require.Equal(testingT, testChannelUsername, usernameNotifier.channelUsername)

	numericNotifier, numericErr := NewTelegramNotifier(nil, TelegramConfig{BotToken: testBotToken, ChannelID: "-1001234567890"})
	require.NoError(testingT, numericErr)
	require.Equal(testingT, int64(-1001234567890), numericNotifier.chatID)
}

func TestNotifySinglePhotoSendsCaptionedPhoto(testingT *testing.T) {
	api := &fakeBotAPI{}
	notifier := newTestNotifier(testingT, api)

	imageURL := "https://cdn.example/rescue-uploads/photo.jpg"
	notifyErr := notifier.NotifyRescuePost(context.Background(), newNotificationPost(), []string{imageURL})
	require.NoError(testingT, notifyErr)

	calls := api.recordedCalls()
	require.Len(testingT, calls, 1)
	require.Equal(testingT, methodSendPhoto, calls[0].method)
	require.Equal(testingT, imageURL, calls[0].params.Get("photo"))
	require.Equal(testingT, testChannelUsername, calls[0].params.Get("chat_id"))

	caption := calls[0].params.Get("caption")
	require.Contains(testingT, caption, "Amina Rahman")
	require.Contains(testingT, caption, captionNotVerifiedLine)
}

func TestNotifyMultiplePhotosSendsMediaGroup(testingT *testing.T) {
	api := &fakeBotAPI{}
	notifier := newTestNotifier(testingT, api)

	imageURLs := []string{
		"https://cdn.example/rescue-uploads/one.jpg",
		"https://cdn.example/rescue-uploads/two.jpg",
	}
	notifyErr := notifier.NotifyRescuePost(context.Background(), newNotificationPost(), imageURLs)
	require.NoError(testingT, notifyErr)

	calls := api.recordedCalls()
	require.Len(testingT, calls, 1)
	require.Equal(testingT, methodSendMediaGroup, calls[0].method)

	mediaPayload := calls[0].params.Get("media")
	for _, imageURL := range imageURLs {
		require.Contains(testingT, mediaPayload, imageURL)
	}
	require.Contains(testingT, mediaPayload, "Amina Rahman")
}

func TestNotifyWithoutPhotosSendsPlainMessage(testingT *testing.T) {
	api := &fakeBotAPI{}
	notifier := newTestNotifier(testingT, api)

	notifyErr := notifier.NotifyRescuePost(context.Background(), newNotificationPost(), nil)
	require.NoError(testingT, notifyErr)

	calls := api.recordedCalls()
	require.Len(testingT, calls, 1)
	require.Equal(testingT, methodSendMessage, calls[0].method)
	require.Contains(testingT, calls[0].params.Get("text"), "Amina Rahman")
	require.NotContains(testingT, calls[0].params.Get("text"), fallbackImagesHeader)
}

func TestNotifyFallsBackToPlainMessageExactlyOnce(testingT *testing.T) {
	api := &fakeBotAPI{failMethods: map[string]bool{methodSendPhoto: true}}
	notifier := newTestNotifier(testingT, api)

	imageURL := "https://cdn.example/rescue-uploads/photo.jpg"
	notifyErr := notifier.NotifyRescuePost(context.Background(), newNotificationPost(), []string{imageURL})
	require.NoError(testingT, notifyErr)

	calls := api.recordedCalls()
	require.Len(testingT, calls, 2)
	require.Equal(testingT, methodSendPhoto, calls[0].method)
	require.Equal(testingT, methodSendMessage, calls[1].method)

	fallbackText := calls[1].params.Get("text")
	require.Contains(testingT, fallbackText, fallbackImagesHeader)
	require.Contains(testingT, fallbackText, imageURL)
}

func TestNotifyReportsErrorWhenFallbackAlsoFails(testingT *testing.T) {
	api := &fakeBotAPI{failMethods: map[string]bool{
		methodSendPhoto:   true,
		methodSendMessage: true,
	}}
	notifier := newTestNotifier(testingT, api)

	notifyErr := notifier.NotifyRescuePost(context.Background(), newNotificationPost(), []string{"https://cdn.example/photo.jpg"})
	require.Error(testingT, notifyErr)

	calls := api.recordedCalls()
	require.Len(testingT, calls, 2)
}

func TestResolveNotifierSubstitutesNoop(testingT *testing.T) {
	resolved := ResolveNotifier(nil)
	require.NotNil(testingT, resolved)
	require.NoError(testingT, resolved.NotifyRescuePost(context.Background(), model.RescuePost{}, nil))

	api := &fakeBotAPI{}
	configured := newTestNotifier(testingT, api)
	require.Equal(testingT, RescueNotifier(configured), ResolveNotifier(configured))
}

func TestFormatCaptionEscapesValuesAndSkipsEmptyFields(testingT *testing.T) {
	post := newNotificationPost()
	post.Description = "water <rising> fast & no boats"
	post.IsVerified = true

	caption := formatCaption(post)
	require.True(testingT, strings.HasPrefix(caption, captionHeaderLine))
	require.Contains(testingT, caption, captionVerifiedLine)
	require.Contains(testingT, caption, "water &lt;rising&gt; fast &amp; no boats")
	require.NotContains(testingT, caption, "Land Mark")
}
