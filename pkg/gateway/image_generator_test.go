package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantryline/domain"
)

func TestGenerateImage(t *testing.T) {
	imageBytes := []byte("not-really-a-png")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/image-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret-key", r.URL.Query().Get("key"))

		fmt.Fprintf(w, `{
			"candidates": [{
				"content": {
					"parts": [
						{"text": "here you go"},
						{"inlineData": {"mimeType": "image/png", "data": %q}}
					]
				}
			}]
		}`, base64.StdEncoding.EncodeToString(imageBytes))
	}))
	defer server.Close()

	generator := &geminiImageGenerator{apiKey: "secret-key", model: "image-model", apiBase: server.URL}

	data, mimeType, err := generator.GenerateImage(context.Background(), "fried rice")
	require.NoError(t, err)
	assert.Equal(t, imageBytes, data)
	assert.Equal(t, "image/png", mimeType)
}

func TestGenerateImageWithoutImagePart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates": [{"content": {"parts": [{"text": "sorry, text only"}]}}]}`)
	}))
	defer server.Close()

	generator := &geminiImageGenerator{apiKey: "secret-key", model: "image-model", apiBase: server.URL}

	_, _, err := generator.GenerateImage(context.Background(), "fried rice")
	assert.ErrorIs(t, err, domain.ErrGatewayFailed)
}

func TestGenerateImageHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	generator := &geminiImageGenerator{apiKey: "secret-key", model: "image-model", apiBase: server.URL}

	_, _, err := generator.GenerateImage(context.Background(), "fried rice")
	assert.ErrorIs(t, err, domain.ErrGatewayFailed)
	assert.Contains(t, err.Error(), "quota exceeded")
}
