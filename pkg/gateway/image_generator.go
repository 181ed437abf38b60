package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pantryline/domain"
)

const geminiAPIBase = "https://generativelanguage.googleapis.com"

type (
	// ImageGenerator turns a dish prompt into thumbnail bytes for the
	// suggestion carousel.
	ImageGenerator interface {
		GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
	}

	geminiImageGenerator struct {
		apiKey  string
		model   string
		apiBase string
	}
)

func NewGeminiImageGenerator(apiKey, model string) ImageGenerator {
	return &geminiImageGenerator{
		apiKey:  apiKey,
		model:   model,
		apiBase: geminiAPIBase,
	}
}

func (g *geminiImageGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{
						"text": fmt.Sprintf("A clean, appetizing photo of the dish: %s. Natural lighting, plated, no text.", prompt),
					},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseModalities": []string{"TEXT", "IMAGE"},
		},
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}

	geminiURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.apiBase, g.model, g.apiKey)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "POST", geminiURL, bytes.NewBuffer(requestJSON))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("%w: gemini API error: %s - %s", domain.ErrGatewayFailed, resp.Status, string(bodyBytes))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					InlineData struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}

	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
			}
			mimeType := part.InlineData.MimeType
			if mimeType == "" {
				mimeType = "image/png"
			}
			return data, mimeType, nil
		}
	}

	return nil, "", fmt.Errorf("%w: response carries no image data", domain.ErrGatewayFailed)
}
