package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pantryline/domain"
)

const (
	lineAPIBase     = "https://api.line.me"
	lineContentBase = "https://api-data.line.me"

	// messaging API limits
	maxMessagesPerSend = 5
	maxCarouselColumns = 10
	maxTitleChars      = 40
	maxColumnTextChars = 60
	maxActionLabel     = 20
)

type (
	// LineClient talks to the messaging API. It also satisfies the
	// gateway's ContentFetcher.
	LineClient interface {
		ReplyMessages(ctx context.Context, replyToken string, messages []domain.OutboundMessage) error
		PushMessages(ctx context.Context, userID string, messages []domain.OutboundMessage) error
		GetDisplayName(ctx context.Context, userID string) (string, error)
		GetMessageContent(ctx context.Context, messageID string) ([]byte, string, error)
	}

	lineClient struct {
		tokens      TokenProvider
		apiBase     string
		contentBase string
	}
)

func NewLineClient(tokens TokenProvider) LineClient {
	return &lineClient{
		tokens:      tokens,
		apiBase:     lineAPIBase,
		contentBase: lineContentBase,
	}
}

func (c *lineClient) ReplyMessages(ctx context.Context, replyToken string, messages []domain.OutboundMessage) error {
	payload := buildMessages(messages)
	if len(payload) == 0 {
		return nil
	}
	return c.send(ctx, "/v2/bot/message/reply", map[string]interface{}{
		"replyToken": replyToken,
		"messages":   payload,
	})
}

func (c *lineClient) PushMessages(ctx context.Context, userID string, messages []domain.OutboundMessage) error {
	payload := buildMessages(messages)
	if len(payload) == 0 {
		return nil
	}
	return c.send(ctx, "/v2/bot/message/push", map[string]interface{}{
		"to":       userID,
		"messages": payload,
	})
}

func (c *lineClient) GetDisplayName(ctx context.Context, userID string) (string, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "GET", c.apiBase+"/v2/bot/profile/"+userID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("line profile: %s - %s", resp.Status, string(bodyBytes))
	}

	var profileResp struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profileResp); err != nil {
		return "", err
	}

	return profileResp.DisplayName, nil
}

func (c *lineClient) GetMessageContent(ctx context.Context, messageID string) ([]byte, string, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, "", err
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "GET", c.contentBase+"/v2/bot/message/"+messageID+"/content", nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("line content: %s - %s", resp.Status, string(bodyBytes))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	return data, contentType, nil
}

func (c *lineClient) send(ctx context.Context, path string, body map[string]interface{}) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	requestJSON, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "POST", c.apiBase+path, bytes.NewBuffer(requestJSON))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("line send %s: %s - %s", path, resp.Status, string(bodyBytes))
	}

	return nil
}

func buildMessages(messages []domain.OutboundMessage) []map[string]interface{} {
	if len(messages) > maxMessagesPerSend {
		messages = messages[:maxMessagesPerSend]
	}

	payload := make([]map[string]interface{}, 0, len(messages))
	for _, message := range messages {
		switch message.Unit {
		case domain.UnitText:
			if message.Text == "" {
				continue
			}
			payload = append(payload, map[string]interface{}{
				"type": "text",
				"text": truncateRunes(message.Text, 5000),
			})
		case domain.UnitCarousel:
			if len(message.Cards) == 0 {
				continue
			}
			payload = append(payload, map[string]interface{}{
				"type":    "template",
				"altText": domain.MessageCarouselAlt,
				"template": map[string]interface{}{
					"type":    "carousel",
					"columns": buildColumns(message.Cards),
				},
			})
		}
	}

	return payload
}

func buildColumns(cards []domain.CarouselCard) []map[string]interface{} {
	if len(cards) > maxCarouselColumns {
		cards = cards[:maxCarouselColumns]
	}

	columns := make([]map[string]interface{}, 0, len(cards))
	for _, card := range cards {
		detail := card.Detail
		if detail == "" {
			detail = domain.MessageCarouselHint
		}

		column := map[string]interface{}{
			"title": truncateRunes(card.Title, maxTitleChars),
			"text":  truncateRunes(detail, maxColumnTextChars),
			"actions": []map[string]interface{}{
				{
					"type":        "postback",
					"label":       truncateRunes(domain.MessageCarouselAction, maxActionLabel),
					"data":        card.PostbackData,
					"displayText": truncateRunes(card.Title, 300),
				},
			},
		}
		if card.ImageURL != "" {
			column["thumbnailImageUrl"] = card.ImageURL
		}

		columns = append(columns, column)
	}

	return columns
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
