package handlers

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantryline/domain"
	"pantryline/internal/utils"
)

type stubBot struct {
	events []domain.InboundEvent
	batch  domain.OutboundBatch
	err    error
}

func (s *stubBot) HandleEvent(_ context.Context, event domain.InboundEvent) (domain.OutboundBatch, error) {
	s.events = append(s.events, event)
	return s.batch, s.err
}

type sentBatch struct {
	target string
	batch  []domain.OutboundMessage
}

type stubLine struct {
	replies     []sentBatch
	pushes      []sentBatch
	displayName string
	profileErr  error
}

func (s *stubLine) ReplyMessages(_ context.Context, replyToken string, messages []domain.OutboundMessage) error {
	s.replies = append(s.replies, sentBatch{target: replyToken, batch: messages})
	return nil
}

func (s *stubLine) PushMessages(_ context.Context, userID string, messages []domain.OutboundMessage) error {
	s.pushes = append(s.pushes, sentBatch{target: userID, batch: messages})
	return nil
}

func (s *stubLine) GetDisplayName(_ context.Context, _ string) (string, error) {
	if s.profileErr != nil {
		return "", s.profileErr
	}
	return s.displayName, nil
}

func (s *stubLine) GetMessageContent(_ context.Context, _ string) ([]byte, string, error) {
	return nil, "", fmt.Errorf("not implemented")
}

type handlerFixture struct {
	app  *fiber.App
	bot  *stubBot
	line *stubLine
}

func newHandlerFixture() *handlerFixture {
	utils.InitValidator()

	botStub := &stubBot{}
	lineStub := &stubLine{displayName: "Mei"}
	handler := NewWebhookHandler(botStub, lineStub, utils.Validate)

	app := fiber.New()
	app.Post("/webhook/line", handler.HandleLineWebhook)

	return &handlerFixture{app: app, bot: botStub, line: lineStub}
}

func (f *handlerFixture) post(t *testing.T, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhook/line", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func textEventBody(eventID, userID, replyToken, text string) string {
	return fmt.Sprintf(`{
		"destination": "bot-1",
		"events": [{
			"type": "message",
			"webhookEventId": %q,
			"replyToken": %q,
			"source": {"type": "user", "userId": %q},
			"message": {"id": "m-1", "type": "text", "text": %q}
		}]
	}`, eventID, replyToken, userID, text)
}

func TestWebhookDispatchesTextEvent(t *testing.T) {
	f := newHandlerFixture()
	f.bot.batch = domain.OutboundBatch{domain.TextMessage("recipe mode on")}

	status := f.post(t, textEventBody("ev-1", "U-1", "rt-1", "recipe"))
	assert.Equal(t, fiber.StatusOK, status)

	require.Len(t, f.bot.events, 1)
	event := f.bot.events[0]
	assert.Equal(t, domain.EventText, event.Type)
	assert.Equal(t, "U-1", event.UserID)
	assert.Equal(t, "recipe", event.Text)

	require.Len(t, f.line.replies, 1)
	assert.Equal(t, "rt-1", f.line.replies[0].target)
	assert.Equal(t, "recipe mode on", f.line.replies[0].batch[0].Text)
	assert.Empty(t, f.line.pushes)
}

func TestWebhookDispatchesImageEvent(t *testing.T) {
	f := newHandlerFixture()

	f.post(t, `{
		"events": [{
			"type": "message",
			"webhookEventId": "ev-2",
			"replyToken": "rt-2",
			"source": {"type": "user", "userId": "U-1"},
			"message": {"id": "img-77", "type": "image"}
		}]
	}`)

	require.Len(t, f.bot.events, 1)
	event := f.bot.events[0]
	assert.Equal(t, domain.EventImage, event.Type)
	assert.Equal(t, "img-77", event.Image.MessageID)
}

func TestWebhookDispatchesPostbackEvent(t *testing.T) {
	f := newHandlerFixture()

	f.post(t, `{
		"events": [{
			"type": "postback",
			"webhookEventId": "ev-3",
			"replyToken": "rt-3",
			"source": {"type": "user", "userId": "U-1"},
			"postback": {"data": "dish=2"}
		}]
	}`)

	require.Len(t, f.bot.events, 1)
	assert.Equal(t, domain.EventPostback, f.bot.events[0].Type)
	assert.Equal(t, "dish=2", f.bot.events[0].Postback)
}

func TestWebhookFollowGreeting(t *testing.T) {
	f := newHandlerFixture()

	f.post(t, `{
		"events": [{
			"type": "follow",
			"webhookEventId": "ev-4",
			"replyToken": "rt-4",
			"source": {"type": "user", "userId": "U-1"}
		}]
	}`)

	assert.Empty(t, f.bot.events, "follow is answered without entering the dispatcher")
	require.Len(t, f.line.replies, 1)

	batch := f.line.replies[0].batch
	require.Len(t, batch, 2)
	assert.Equal(t, fmt.Sprintf(domain.MessageGreeting, "Mei"), batch[0].Text)
	assert.Equal(t, domain.MessageHelp, batch[1].Text)
}

func TestWebhookFollowProfileFailure(t *testing.T) {
	f := newHandlerFixture()
	f.line.profileErr = fmt.Errorf("profile unavailable")

	f.post(t, `{
		"events": [{
			"type": "follow",
			"webhookEventId": "ev-5",
			"replyToken": "rt-5",
			"source": {"type": "user", "userId": "U-1"}
		}]
	}`)

	require.Len(t, f.line.replies, 1)
	assert.Equal(t, fmt.Sprintf(domain.MessageGreeting, "there"), f.line.replies[0].batch[0].Text)
}

func TestWebhookSkipsRedelivery(t *testing.T) {
	f := newHandlerFixture()

	f.post(t, textEventBody("ev-6", "U-1", "rt-6", "view"))
	f.post(t, textEventBody("ev-6", "U-1", "rt-7", "view"))

	assert.Len(t, f.bot.events, 1, "a redelivered event id is processed once")
}

func TestWebhookSkipsEventsWithoutUser(t *testing.T) {
	f := newHandlerFixture()

	status := f.post(t, `{
		"events": [{
			"type": "message",
			"webhookEventId": "ev-8",
			"source": {"type": "group"},
			"message": {"id": "m-1", "type": "text", "text": "hi"}
		}]
	}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, f.bot.events)
}

func TestWebhookPushesWithoutReplyToken(t *testing.T) {
	f := newHandlerFixture()
	f.bot.batch = domain.OutboundBatch{domain.TextMessage("hello")}

	f.post(t, textEventBody("ev-9", "U-1", "", "help"))

	assert.Empty(t, f.line.replies)
	require.Len(t, f.line.pushes, 1)
	assert.Equal(t, "U-1", f.line.pushes[0].target)
}

func TestWebhookSilentWhenBatchEmpty(t *testing.T) {
	f := newHandlerFixture()
	f.bot.batch = nil

	f.post(t, textEventBody("ev-10", "U-1", "rt-10", "anything"))

	assert.Empty(t, f.line.replies)
	assert.Empty(t, f.line.pushes)
}

func TestWebhookInfraErrorStillAcknowledged(t *testing.T) {
	f := newHandlerFixture()
	f.bot.batch = domain.OutboundBatch{domain.TextMessage("the kitchen brain is down")}
	f.bot.err = fmt.Errorf("%w: timeout", domain.ErrGatewayFailed)

	status := f.post(t, textEventBody("ev-11", "U-1", "rt-11", "done"))

	assert.Equal(t, fiber.StatusOK, status, "a failed event must not trigger platform redelivery")
	require.Len(t, f.line.replies, 1)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	f := newHandlerFixture()

	status := f.post(t, `{"events": [{`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Empty(t, f.bot.events)
}

func TestWebhookRejectsEventWithoutType(t *testing.T) {
	f := newHandlerFixture()

	status := f.post(t, `{
		"events": [{
			"webhookEventId": "ev-12",
			"source": {"type": "user", "userId": "U-1"}
		}]
	}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Empty(t, f.bot.events)
}

func TestWebhookIgnoresUnknownEventTypes(t *testing.T) {
	f := newHandlerFixture()

	status := f.post(t, `{
		"events": [{
			"type": "unfollow",
			"webhookEventId": "ev-13",
			"source": {"type": "user", "userId": "U-1"}
		}]
	}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, f.bot.events)
	assert.Empty(t, f.line.replies)
}
