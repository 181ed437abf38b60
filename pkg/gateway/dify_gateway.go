package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"pantryline/domain"
)

type (
	// AIGateway sends one completed turn (buffered images plus optional
	// note) to the vision workflow and returns the structured result.
	AIGateway interface {
		Analyze(ctx context.Context, userID string, images []domain.ImageRef, text string, mode domain.Mode) (domain.TurnResult, error)
	}

	// ContentFetcher resolves a buffered image reference to its bytes.
	// The messaging client satisfies this.
	ContentFetcher interface {
		GetMessageContent(ctx context.Context, messageID string) ([]byte, string, error)
	}

	difyGateway struct {
		endpoint  string
		recipeKey string
		recordKey string
		fetcher   ContentFetcher
	}
)

func NewDifyGateway(endpoint, recipeKey, recordKey string, fetcher ContentFetcher) AIGateway {
	return &difyGateway{
		endpoint:  strings.TrimRight(endpoint, "/"),
		recipeKey: recipeKey,
		recordKey: recordKey,
		fetcher:   fetcher,
	}
}

func (g *difyGateway) Analyze(ctx context.Context, userID string, images []domain.ImageRef, text string, mode domain.Mode) (domain.TurnResult, error) {
	apiKey, err := g.apiKeyForMode(mode)
	if err != nil {
		return domain.TurnResult{}, err
	}

	fileIDs := make([]string, 0, len(images))
	for _, image := range images {
		data, contentType, err := g.fetcher.GetMessageContent(ctx, image.MessageID)
		if err != nil {
			return domain.TurnResult{}, fmt.Errorf("%w: fetch content %s: %v", domain.ErrGatewayFailed, image.MessageID, err)
		}

		fileID, err := g.uploadFile(ctx, apiKey, userID, data, contentType)
		if err != nil {
			return domain.TurnResult{}, err
		}
		fileIDs = append(fileIDs, fileID)
	}

	outputs, err := g.runWorkflow(ctx, apiKey, userID, fileIDs, text)
	if err != nil {
		return domain.TurnResult{}, err
	}

	result := domain.TurnResult{Text: stringOutput(outputs, "text")}
	switch mode {
	case domain.ModeRecipe:
		result.Dishes = parseDishOutputs(outputs)
	case domain.ModeRecord:
		result.Items = parseRecognizedItems(result.Text)
	}

	return result, nil
}

func (g *difyGateway) apiKeyForMode(mode domain.Mode) (string, error) {
	switch mode {
	case domain.ModeRecipe:
		return g.recipeKey, nil
	case domain.ModeRecord:
		return g.recordKey, nil
	default:
		return "", fmt.Errorf("%w: no workflow for %s mode", domain.ErrGatewayFailed, mode)
	}
}

func (g *difyGateway) uploadFile(ctx context.Context, apiKey, userID string, data []byte, contentType string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="turn.%s"`, fileExtension(contentType)))
	partHeader.Set("Content-Type", contentType)

	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}
	if err := writer.WriteField("user", userID); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "POST", g.endpoint+"/files/upload", body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: file upload: %s - %s", domain.ErrGatewayFailed, resp.Status, string(bodyBytes))
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}
	if uploadResp.ID == "" {
		return "", fmt.Errorf("%w: file upload returned no id", domain.ErrGatewayFailed)
	}

	return uploadResp.ID, nil
}

func (g *difyGateway) runWorkflow(ctx context.Context, apiKey, userID string, fileIDs []string, text string) (map[string]interface{}, error) {
	files := make([]map[string]interface{}, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		files = append(files, map[string]interface{}{
			"type":            "image",
			"transfer_method": "local_file",
			"upload_file_id":  fileID,
		})
	}

	inputs := map[string]interface{}{
		"images": files,
	}
	if text != "" {
		inputs["text"] = text
	}

	requestBody := map[string]interface{}{
		"inputs":        inputs,
		"response_mode": "blocking",
		"user":          userID,
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}

	httpClient := &http.Client{Timeout: 90 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "POST", g.endpoint+"/workflows/run", bytes.NewBuffer(requestJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: workflow run: %s - %s", domain.ErrGatewayFailed, resp.Status, string(bodyBytes))
	}

	var workflowResp struct {
		Data struct {
			Status  string                 `json:"status"`
			Error   string                 `json:"error"`
			Outputs map[string]interface{} `json:"outputs"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&workflowResp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}

	if workflowResp.Data.Status != "succeeded" {
		return nil, fmt.Errorf("%w: workflow status %s: %s", domain.ErrGatewayFailed, workflowResp.Data.Status, workflowResp.Data.Error)
	}

	return workflowResp.Data.Outputs, nil
}

// parseDishOutputs collects dish_1..dish_3 with their picture_N prompts
// and recipe_N bodies. A dish slot without a label ends the list.
func parseDishOutputs(outputs map[string]interface{}) []domain.DishSuggestion {
	dishes := make([]domain.DishSuggestion, 0, 3)
	for i := 1; i <= 3; i++ {
		label := strings.TrimSpace(stringOutput(outputs, fmt.Sprintf("dish_%d", i)))
		if label == "" {
			break
		}
		dishes = append(dishes, domain.DishSuggestion{
			Label:       label,
			ImagePrompt: strings.TrimSpace(stringOutput(outputs, fmt.Sprintf("picture_%d", i))),
			Detail:      strings.TrimSpace(stringOutput(outputs, fmt.Sprintf("recipe_%d", i))),
		})
	}
	return dishes
}

// parseRecognizedItems reads the record workflow's item list, one item
// per line as "<name> <quantity>". The quantity may carry a unit suffix
// ("2kg", "3個"), which is stripped before storing. A line whose last
// token is not an amount is an item with no tracked quantity.
func parseRecognizedItems(text string) []domain.RecognizedItem {
	var items []domain.RecognizedItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "-*•· \t")
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) >= 2 {
			if quantity, ok := domain.ParseAmount(fields[len(fields)-1]); ok && quantity > 0 {
				items = append(items, domain.RecognizedItem{
					FoodName: strings.Join(fields[:len(fields)-1], " "),
					Quantity: &quantity,
				})
				continue
			}
		}

		items = append(items, domain.RecognizedItem{FoodName: strings.Join(fields, " ")})
	}
	return items
}

func stringOutput(outputs map[string]interface{}, key string) string {
	value, ok := outputs[key].(string)
	if !ok {
		return ""
	}
	return value
}

func fileExtension(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	default:
		return "jpg"
	}
}
