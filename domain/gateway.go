package domain

import "errors"

var ErrGatewayFailed = errors.New("ai gateway failure")

type (
	// DishSuggestion is one recommended dish from a Recipe-mode turn. The
	// image prompt drives the optional illustration; Detail is the full
	// recipe body served when the user taps the dish card. Both may be
	// empty.
	DishSuggestion struct {
		Label       string `json:"label"`
		ImagePrompt string `json:"image_prompt,omitempty"`
		Detail      string `json:"detail,omitempty"`
	}

	// TurnResult is the structured output of one AI Gateway call. Recipe
	// turns populate Dishes, Record turns populate Items; Text carries the
	// free-form body in both cases. Consumed once by the dispatcher, then
	// discarded.
	TurnResult struct {
		Text   string           `json:"text"`
		Dishes []DishSuggestion `json:"dishes,omitempty"`
		Items  []RecognizedItem `json:"items,omitempty"`
	}
)
