package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"pantryline/domain"
	"pantryline/internal/api/presenters"
	"pantryline/pkg/bot"
	"pantryline/pkg/line"
)

// seenEventTTL is how long a webhook event id is remembered for redelivery
// dedup. The platform retries within minutes, never hours.
const seenEventTTL = 10 * time.Minute

type (
	WebhookHandler interface {
		HandleLineWebhook(c *fiber.Ctx) error
	}

	webhookHandler struct {
		botService bot.BotService
		lineClient line.LineClient
		validator  *validator.Validate
		seen       *seenEvents
	}

	seenEvents struct {
		mu      sync.Mutex
		entries map[string]time.Time
	}
)

func NewWebhookHandler(botService bot.BotService, lineClient line.LineClient, validator *validator.Validate) WebhookHandler {
	return &webhookHandler{
		botService: botService,
		lineClient: lineClient,
		validator:  validator,
		seen:       newSeenEvents(),
	}
}

// HandleLineWebhook processes one callback batch. Event failures are
// logged, never surfaced: anything but a 200 makes the platform redeliver
// the whole batch.
func (h *webhookHandler) HandleLineWebhook(c *fiber.Ctx) error {
	req := new(domain.LineWebhookRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	for _, event := range req.Events {
		h.processEvent(c.Context(), event)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessWebhook)
}

func (h *webhookHandler) processEvent(ctx context.Context, event domain.LineWebhookEvent) {
	if event.WebhookEventID != "" && !h.seen.firstSighting(event.WebhookEventID) {
		if event.DeliveryContext.IsRedelivery {
			log.Infof("skipping redelivered event %s", event.WebhookEventID)
		}
		return
	}

	userID := event.Source.UserID
	if userID == "" {
		return
	}

	if event.Type == "follow" {
		h.greet(ctx, userID, event.ReplyToken)
		return
	}

	inbound, ok := toInboundEvent(userID, event)
	if !ok {
		return
	}

	batch, err := h.botService.HandleEvent(ctx, inbound)
	if err != nil {
		log.Errorf("handle %s event for %s: %v", inbound.Type, userID, err)
	}
	h.deliver(ctx, userID, event.ReplyToken, batch)
}

// greet answers a follow event with a personal hello and the command
// catalog. Profile lookup failures fall back to a nameless greeting.
func (h *webhookHandler) greet(ctx context.Context, userID, replyToken string) {
	name, err := h.lineClient.GetDisplayName(ctx, userID)
	if err != nil {
		log.Errorf("profile lookup for %s: %v", userID, err)
		name = "there"
	}

	batch := domain.OutboundBatch{
		domain.TextMessage(fmt.Sprintf(domain.MessageGreeting, name)),
		domain.TextMessage(domain.MessageHelp),
	}
	h.deliver(ctx, userID, replyToken, batch)
}

func (h *webhookHandler) deliver(ctx context.Context, userID, replyToken string, batch domain.OutboundBatch) {
	if len(batch) == 0 {
		return
	}

	if replyToken != "" {
		if err := h.lineClient.ReplyMessages(ctx, replyToken, batch); err != nil {
			log.Errorf("reply to %s: %v", userID, err)
		}
		return
	}
	if err := h.lineClient.PushMessages(ctx, userID, batch); err != nil {
		log.Errorf("push to %s: %v", userID, err)
	}
}

func toInboundEvent(userID string, event domain.LineWebhookEvent) (domain.InboundEvent, bool) {
	switch event.Type {
	case "message":
		switch event.Message.Type {
		case "text":
			return domain.InboundEvent{
				UserID:     userID,
				Type:       domain.EventText,
				Text:       event.Message.Text,
				ReplyToken: event.ReplyToken,
			}, true
		case "image":
			return domain.InboundEvent{
				UserID:     userID,
				Type:       domain.EventImage,
				Image:      domain.ImageRef{MessageID: event.Message.ID},
				ReplyToken: event.ReplyToken,
			}, true
		default:
			return domain.InboundEvent{}, false
		}
	case "postback":
		return domain.InboundEvent{
			UserID:     userID,
			Type:       domain.EventPostback,
			Postback:   event.Postback.Data,
			ReplyToken: event.ReplyToken,
		}, true
	default:
		return domain.InboundEvent{}, false
	}
}

func newSeenEvents() *seenEvents {
	return &seenEvents{entries: make(map[string]time.Time)}
}

// firstSighting records the id and reports whether it was new, sweeping
// expired entries as it goes.
func (s *seenEvents) firstSighting(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, seenAt := range s.entries {
		if now.Sub(seenAt) > seenEventTTL {
			delete(s.entries, key)
		}
	}

	if _, ok := s.entries[id]; ok {
		return false
	}
	s.entries[id] = now
	return true
}
