package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"pantryline/domain"
	"pantryline/pkg/consume"
	"pantryline/pkg/gateway"
	"pantryline/pkg/session"
	"pantryline/pkg/stock"
)

// maxDishCards caps how many suggestions a recipe turn renders.
const maxDishCards = 3

type (
	// BotService is the dispatcher behind the webhook: it routes every
	// inbound event through the session state machine and produces the
	// outbound batch to send back. A non-nil error reports an
	// infrastructure failure to log; the batch is still valid to send.
	BotService interface {
		HandleEvent(ctx context.Context, event domain.InboundEvent) (domain.OutboundBatch, error)
	}

	// ObjectUploader stores generated dish images and returns their public
	// URL. Satisfied by storage.AwsS3; nil disables illustrations.
	ObjectUploader interface {
		UploadBytes(ctx context.Context, dir, filename string, data []byte, contentType string) (string, error)
	}

	// Pusher delivers messages outside a reply context. Only the
	// idle-timeout flush uses it; nil disables that fallback.
	Pusher interface {
		PushMessages(ctx context.Context, userID string, messages []domain.OutboundMessage) error
	}

	botService struct {
		sessions       session.SessionRegistry
		stocks         stock.StockService
		consumer       consume.ConsumeService
		aiGateway      gateway.AIGateway
		imageGenerator gateway.ImageGenerator
		uploader       ObjectUploader
		pusher         Pusher
		timezone       *time.Location
		idleFlush      time.Duration

		dishes *dishCache

		timersMu sync.Mutex
		timers   map[string]*time.Timer
	}
)

var modeKeywords = map[string]domain.Mode{
	"recipe": domain.ModeRecipe,
	"record": domain.ModeRecord,
	"view":   domain.ModeView,
	"delete": domain.ModeDelete,
}

var completionKeywords = map[string]bool{
	"done":   true,
	"ok":     true,
	"finish": true,
}

func NewBotService(
	sessions session.SessionRegistry,
	stocks stock.StockService,
	consumer consume.ConsumeService,
	aiGateway gateway.AIGateway,
	imageGenerator gateway.ImageGenerator,
	uploader ObjectUploader,
	pusher Pusher,
	timezone *time.Location,
	idleFlush time.Duration,
) BotService {
	if timezone == nil {
		timezone = time.Local
	}
	return &botService{
		sessions:       sessions,
		stocks:         stocks,
		consumer:       consumer,
		aiGateway:      aiGateway,
		imageGenerator: imageGenerator,
		uploader:       uploader,
		pusher:         pusher,
		timezone:       timezone,
		idleFlush:      idleFlush,
		dishes:         newDishCache(),
		timers:         make(map[string]*time.Timer),
	}
}

func (s *botService) HandleEvent(ctx context.Context, event domain.InboundEvent) (domain.OutboundBatch, error) {
	switch event.Type {
	case domain.EventText:
		return s.handleText(ctx, event.UserID, event.Text)
	case domain.EventImage:
		return s.handleImage(event.UserID, event.Image)
	case domain.EventPostback:
		return s.handlePostback(event.UserID, event.Postback)
	default:
		return nil, nil
	}
}

// handleText resolves the text in priority order: mode keywords, utility
// keywords, completion keywords, then mode-specific payload.
func (s *botService) handleText(ctx context.Context, userID, text string) (domain.OutboundBatch, error) {
	trimmed := strings.TrimSpace(text)
	keyword := strings.ToLower(trimmed)

	if mode, ok := modeKeywords[keyword]; ok {
		return s.enterMode(ctx, userID, mode)
	}

	switch keyword {
	case "help":
		s.sessions.GetOrCreate(userID)
		return batchOf(domain.MessageHelp), nil
	case "exit":
		s.cancelIdleTimer(userID)
		s.sessions.SetMode(userID, domain.ModeIdle)
		return batchOf(domain.MessageExited), nil
	}

	snapshot := s.sessions.GetOrCreate(userID)

	if completionKeywords[keyword] {
		switch snapshot.Mode {
		case domain.ModeRecipe, domain.ModeRecord:
			return s.completeTurn(ctx, userID)
		case domain.ModeDelete:
			return batchOf(domain.MessageDeleteModeActive), nil
		case domain.ModeView:
			return batchOf(domain.MessageViewHint), nil
		default:
			return batchOf(domain.MessageIdleHint), nil
		}
	}

	switch snapshot.Mode {
	case domain.ModeRecipe, domain.ModeRecord:
		if snapshot.BufferedImages == 0 {
			return batchOf(modePrompt(snapshot.Mode)), nil
		}
		if err := s.sessions.AppendText(userID, trimmed); err != nil {
			return batchOf(modePrompt(snapshot.Mode)), nil
		}
		s.resetIdleTimer(userID)
		return batchOf(domain.MessageTextNoted), nil
	case domain.ModeView:
		return s.renderInventory(ctx, userID)
	case domain.ModeDelete:
		return s.handleConsumeCommand(ctx, userID, trimmed)
	default:
		return batchOf(domain.MessageIdleHint), nil
	}
}

func (s *botService) enterMode(ctx context.Context, userID string, mode domain.Mode) (domain.OutboundBatch, error) {
	s.cancelIdleTimer(userID)
	s.sessions.SetMode(userID, mode)

	switch mode {
	case domain.ModeRecipe:
		return batchOf(domain.MessageRecipePrompt), nil
	case domain.ModeRecord:
		return batchOf(domain.MessageRecordPrompt), nil
	case domain.ModeView:
		return s.renderInventory(ctx, userID)
	case domain.ModeDelete:
		return s.enterDeleteMode(ctx, userID)
	default:
		return batchOf(domain.MessageExited), nil
	}
}

func (s *botService) handleImage(userID string, image domain.ImageRef) (domain.OutboundBatch, error) {
	count, err := s.sessions.AppendImage(userID, image)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return batchOf(domain.MessageImageNotExpected), nil
		}
		return nil, err
	}

	s.resetIdleTimer(userID)

	// only the first image of a turn is acknowledged; the platform
	// delivers bursts and answering each one floods the chat
	if count == 1 {
		return batchOf(domain.MessageImageReceived), nil
	}
	return nil, nil
}

func (s *botService) handlePostback(userID, data string) (domain.OutboundBatch, error) {
	if !strings.HasPrefix(data, "dish=") {
		return nil, nil
	}

	dishes, ok := s.dishes.get(userID)
	if !ok {
		return batchOf(domain.MessageDishesExpired), nil
	}

	index, err := strconv.Atoi(strings.TrimPrefix(data, "dish="))
	if err != nil || index < 1 || index > len(dishes) {
		return batchOf(domain.MessageUnknownSelection), nil
	}

	dish := dishes[index-1]
	if dish.Detail == "" {
		return batchOf(fmt.Sprintf(domain.MessageDishNoDetail, dish.Label)), nil
	}
	return batchOf(fmt.Sprintf("%s\n\n%s", dish.Label, dish.Detail)), nil
}

// completeTurn dispatches the buffered turn to the gateway. The buffers
// are cleared before the call, so a slow or failing gateway never leaves
// the session mid-turn; the user stays in the same mode either way.
func (s *botService) completeTurn(ctx context.Context, userID string) (domain.OutboundBatch, error) {
	s.cancelIdleTimer(userID)

	snapshot := s.sessions.GetOrCreate(userID)
	if snapshot.BufferedImages == 0 {
		return batchOf(domain.MessageNothingBuffered), nil
	}

	images, text := s.sessions.TakeTurn(userID)
	if len(images) == 0 {
		return batchOf(domain.MessageNothingBuffered), nil
	}

	result, err := s.aiGateway.Analyze(ctx, userID, images, text, snapshot.Mode)
	if err != nil {
		return batchOf(domain.MessageGatewayDown), err
	}

	switch snapshot.Mode {
	case domain.ModeRecord:
		return s.renderRecordTurn(ctx, userID, result)
	default:
		return s.renderRecipeTurn(ctx, userID, result)
	}
}

func (s *botService) renderRecipeTurn(ctx context.Context, userID string, result domain.TurnResult) (domain.OutboundBatch, error) {
	var batch domain.OutboundBatch
	if result.Text != "" {
		batch = append(batch, domain.TextMessage(result.Text))
	}

	dishes := result.Dishes
	if len(dishes) > maxDishCards {
		dishes = dishes[:maxDishCards]
	}
	if len(dishes) == 0 {
		if len(batch) == 0 {
			return batchOf(domain.MessageGatewayDown), fmt.Errorf("%w: recipe turn produced no output", domain.ErrGatewayFailed)
		}
		return batch, nil
	}

	s.dishes.put(userID, dishes)

	cards := make([]domain.CarouselCard, 0, len(dishes))
	for i, dish := range dishes {
		cards = append(cards, domain.CarouselCard{
			Title:        dish.Label,
			ImageURL:     s.illustrateDish(ctx, dish),
			Detail:       domain.MessageCarouselHint,
			PostbackData: fmt.Sprintf("dish=%d", i+1),
		})
	}

	return append(batch, domain.OutboundMessage{Unit: domain.UnitCarousel, Cards: cards}), nil
}

// illustrateDish is best effort: any failure downgrades the card to
// text-only and is only logged.
func (s *botService) illustrateDish(ctx context.Context, dish domain.DishSuggestion) string {
	if s.imageGenerator == nil || s.uploader == nil || dish.ImagePrompt == "" {
		return ""
	}

	data, contentType, err := s.imageGenerator.GenerateImage(ctx, dish.ImagePrompt)
	if err != nil {
		log.Errorf("generate dish image %q: %v", dish.Label, err)
		return ""
	}

	url, err := s.uploader.UploadBytes(ctx, "dishes", uuid.New().String()+".png", data, contentType)
	if err != nil {
		log.Errorf("upload dish image %q: %v", dish.Label, err)
		return ""
	}
	return url
}

func (s *botService) renderRecordTurn(ctx context.Context, userID string, result domain.TurnResult) (domain.OutboundBatch, error) {
	if len(result.Items) == 0 {
		return batchOf(domain.MessageNothingStored), nil
	}

	stored, err := s.stocks.RecordItems(ctx, userID, result.Items, time.Now().In(s.timezone))
	if err != nil {
		return batchOf(domain.MessageStoreFailure), err
	}

	lines := make([]string, 0, len(stored)+1)
	lines = append(lines, domain.MessageRecordedHeader)
	for _, item := range stored {
		if item.Quantity != nil {
			lines = append(lines, fmt.Sprintf("#%d %s x%g", item.ID, item.FoodName, *item.Quantity))
		} else {
			lines = append(lines, fmt.Sprintf("#%d %s (quantity unspecified)", item.ID, item.FoodName))
		}
	}
	return batchOf(strings.Join(lines, "\n")), nil
}

func (s *botService) renderInventory(ctx context.Context, userID string) (domain.OutboundBatch, error) {
	items, err := s.stocks.ListInventory(ctx, userID, time.Now().In(s.timezone))
	if err != nil {
		return batchOf(domain.MessageStoreFailure), err
	}
	if len(items) == 0 {
		return batchOf(domain.MessageInventoryEmpty), nil
	}
	return batchOf(formatInventory(items), domain.MessageViewHint), nil
}

func (s *botService) enterDeleteMode(ctx context.Context, userID string) (domain.OutboundBatch, error) {
	items, err := s.stocks.ListInventory(ctx, userID, time.Now().In(s.timezone))
	if err != nil {
		return batchOf(domain.MessageStoreFailure), err
	}
	if len(items) == 0 {
		s.sessions.SetMode(userID, domain.ModeIdle)
		return batchOf(domain.MessageInventoryEmpty), nil
	}
	return batchOf(formatInventory(items), domain.MessageDeleteInstructions), nil
}

func (s *botService) handleConsumeCommand(ctx context.Context, userID, command string) (domain.OutboundBatch, error) {
	result, err := s.consumer.Execute(ctx, userID, command)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCommand):
			return batchOf(domain.MessageInvalidCommand), nil
		case errors.Is(err, domain.ErrRecordNotFound):
			return batchOf(domain.MessageConsumeNotFound), nil
		default:
			return batchOf(domain.MessageStoreFailure), err
		}
	}
	return batchOf(formatConsumeResult(result)), nil
}

// resetIdleTimer arms the optional idle-flush fallback for a user with a
// turn in progress. A zero idleFlush disables the whole mechanism.
func (s *botService) resetIdleTimer(userID string) {
	if s.idleFlush <= 0 {
		return
	}
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[userID]; ok {
		timer.Stop()
	}
	s.timers[userID] = time.AfterFunc(s.idleFlush, func() { s.flushIdleTurn(userID) })
}

func (s *botService) cancelIdleTimer(userID string) {
	if s.idleFlush <= 0 {
		return
	}
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[userID]; ok {
		timer.Stop()
		delete(s.timers, userID)
	}
}

// flushIdleTurn dispatches a turn left open past the idle window and
// pushes the result; there is no reply token on this path.
func (s *botService) flushIdleTurn(userID string) {
	s.timersMu.Lock()
	delete(s.timers, userID)
	s.timersMu.Unlock()

	snapshot := s.sessions.GetOrCreate(userID)
	if !snapshot.Mode.Buffering() || snapshot.BufferedImages == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	batch, err := s.completeTurn(ctx, userID)
	if err != nil {
		log.Errorf("idle flush for %s: %v", userID, err)
	}
	if s.pusher == nil || len(batch) == 0 {
		return
	}
	if err := s.pusher.PushMessages(ctx, userID, batch); err != nil {
		log.Errorf("idle flush push for %s: %v", userID, err)
	}
}

func formatInventory(items []domain.StockItemResponse) string {
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, domain.MessageInventoryHeader)
	for _, item := range items {
		if item.Quantity != nil {
			lines = append(lines, fmt.Sprintf("#%d %s x%g, stored %d days", item.ID, item.FoodName, *item.Quantity, item.DaysStored))
		} else {
			lines = append(lines, fmt.Sprintf("#%d %s, stored %d days", item.ID, item.FoodName, item.DaysStored))
		}
	}
	return strings.Join(lines, "\n")
}

func formatConsumeResult(result domain.ConsumeResult) string {
	if len(result.Affected) == 0 {
		return domain.MessageOnlyUntracked + "\n" + fmt.Sprintf(domain.MessageShortfallNote, result.Shortfall)
	}

	lines := []string{domain.MessageConsumedHeader}
	for _, record := range result.Affected {
		switch {
		case record.Untracked:
			lines = append(lines, fmt.Sprintf("#%d %s removed (quantity was untracked)", record.RecordID, record.FoodName))
		case record.Deleted:
			lines = append(lines, fmt.Sprintf("#%d %s x%g used up", record.RecordID, record.FoodName, record.AmountConsumed))
		default:
			lines = append(lines, fmt.Sprintf("#%d %s x%g used, %g left", record.RecordID, record.FoodName, record.AmountConsumed, *record.NewQuantity))
		}
	}
	if result.Shortfall > 0 {
		lines = append(lines, fmt.Sprintf(domain.MessageShortfallNote, result.Shortfall))
	}
	return strings.Join(lines, "\n")
}

func modePrompt(mode domain.Mode) string {
	if mode == domain.ModeRecord {
		return domain.MessageRecordPrompt
	}
	return domain.MessageRecipePrompt
}

func batchOf(texts ...string) domain.OutboundBatch {
	batch := make(domain.OutboundBatch, 0, len(texts))
	for _, text := range texts {
		batch = append(batch, domain.TextMessage(text))
	}
	return batch
}
