package domain

type EventType string

const (
	EventText     EventType = "text"
	EventImage    EventType = "image"
	EventPostback EventType = "postback"
)

type MessageUnit string

const (
	UnitText     MessageUnit = "text"
	UnitCarousel MessageUnit = "carousel"
)

var (
	MessageHelp = "here is what I can do:\n" +
		"recipe - send photos of your ingredients and get dish ideas\n" +
		"record - send photos of groceries to add them to your inventory\n" +
		"view - list everything in your inventory\n" +
		"delete - consume or remove inventory records\n" +
		"exit - leave the current mode\n" +
		"say done after your photos to submit them"
	MessageIdleHint = "I didn't catch that. say help to see the commands"
	MessageExited   = "okay, back to the start. say help anytime"

	MessageRecipePrompt = "recipe mode: send one or more photos of your ingredients, then say done"
	MessageRecordPrompt = "record mode: send photos of the food you bought, then say done"

	MessageImageReceived    = "got it! send more photos or say done"
	MessageTextNoted        = "noted. say done when you have sent everything"
	MessageImageNotExpected = "I can only use photos in recipe or record mode. say recipe or record first"
	MessageNothingBuffered  = "there is nothing to submit yet. send at least one photo first"

	MessageGatewayDown = "the kitchen brain is not answering right now. please try again in a bit"

	MessageGreeting = "hi %s! send me photos of your ingredients or groceries and I will help you cook and keep stock."

	MessageDishesExpired    = "those suggestions have expired. send new photos in recipe mode"
	MessageUnknownSelection = "I can't find that dish anymore. send new photos in recipe mode"
	MessageDishNoDetail     = "I don't have the full steps for %s. send new photos in recipe mode for a fresh take"
	MessageCarouselAlt      = "dish suggestions"
	MessageCarouselHint     = "tap to view the recipe"
	MessageCarouselAction   = "view recipe"
)

type (
	// InboundEvent is the platform-agnostic event shape fed to the bot.
	InboundEvent struct {
		UserID     string    `json:"user_id"`
		Type       EventType `json:"type"`
		Text       string    `json:"text,omitempty"`
		Image      ImageRef  `json:"image,omitempty"`
		Postback   string    `json:"postback,omitempty"`
		ReplyToken string    `json:"reply_token,omitempty"`
	}

	// OutboundMessage is one platform-agnostic message unit; a batch is
	// rendered into platform payloads by the messaging client.
	OutboundMessage struct {
		Unit  MessageUnit    `json:"unit"`
		Text  string         `json:"text,omitempty"`
		Cards []CarouselCard `json:"cards,omitempty"`
	}

	CarouselCard struct {
		Title        string `json:"title"`
		ImageURL     string `json:"image_url,omitempty"`
		Detail       string `json:"detail"`
		PostbackData string `json:"postback_data"`
	}

	OutboundBatch []OutboundMessage

	// LineWebhookRequest mirrors the platform's webhook callback body.
	LineWebhookRequest struct {
		Destination string             `json:"destination"`
		Events      []LineWebhookEvent `json:"events" validate:"omitempty,dive"`
	}

	LineWebhookEvent struct {
		Type           string `json:"type" validate:"required"`
		WebhookEventID string `json:"webhookEventId"`
		Timestamp      int64  `json:"timestamp"`
		ReplyToken     string `json:"replyToken"`
		Source         struct {
			Type   string `json:"type"`
			UserID string `json:"userId"`
		} `json:"source"`
		Message struct {
			ID   string `json:"id"`
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"message"`
		Postback struct {
			Data string `json:"data"`
		} `json:"postback"`
		DeliveryContext struct {
			IsRedelivery bool `json:"isRedelivery"`
		} `json:"deliveryContext"`
	}
)

// TextMessage is a convenience constructor for single-text batches.
func TextMessage(text string) OutboundMessage {
	return OutboundMessage{Unit: UnitText, Text: text}
}
