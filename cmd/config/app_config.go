package config

import (
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"pantryline/internal/api/handlers"
	"pantryline/internal/api/routes"
	"pantryline/internal/middleware"
	"pantryline/internal/utils"
	"pantryline/internal/utils/storage"
	"pantryline/pkg/bot"
	"pantryline/pkg/consume"
	"pantryline/pkg/gateway"
	"pantryline/pkg/line"
	"pantryline/pkg/session"
	"pantryline/pkg/stock"
)

func NewApp(db *gorm.DB) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	timezoneName := utils.GetConfig("APP_TIMEZONE")
	timezone, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Errorf("unknown APP_TIMEZONE %q, falling back to UTC", timezoneName)
		timezone = time.UTC
	}

	// setting up logging and limiter
	err = os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   timezone.String(),
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        30,
		Expiration: 1 * time.Second,
	}))

	// messaging credentials: a long-lived channel token when configured,
	// otherwise short-lived tokens issued from the channel's assertion key
	var tokens line.TokenProvider
	if staticToken := utils.GetConfig("LINE_CHANNEL_ACCESS_TOKEN"); staticToken != "" {
		tokens = line.NewStaticTokenProvider(staticToken)
	} else {
		tokens, err = line.NewChannelTokenService(
			utils.GetConfig("LINE_CHANNEL_ID"),
			utils.GetConfig("LINE_KEY_ID"),
			utils.GetConfig("LINE_PRIVATE_KEY"),
		)
		if err != nil {
			return nil, err
		}
	}
	lineClient := line.NewLineClient(tokens)

	aiGateway := gateway.NewDifyGateway(
		utils.GetConfig("DIFY_API_ENDPOINT"),
		utils.GetConfig("DIFY_RECIPE_API_KEY"),
		utils.GetConfig("DIFY_RECORD_API_KEY"),
		lineClient,
	)

	// dish illustrations are optional: both the generator and the bucket
	// must be configured, otherwise cards render text-only
	var imageGenerator gateway.ImageGenerator
	if geminiKey := utils.GetConfig("GEMINI_API_KEY"); geminiKey != "" {
		imageGenerator = gateway.NewGeminiImageGenerator(geminiKey, utils.GetConfig("GEMINI_IMAGE_MODEL"))
	}
	var uploader bot.ObjectUploader
	if utils.GetConfig("AWS_S3_BUCKET") != "" {
		uploader = storage.NewAwsS3()
	}

	idleSeconds, _ := strconv.Atoi(utils.GetConfig("TURN_IDLE_SECONDS"))
	idleFlush := time.Duration(idleSeconds) * time.Second

	sessions := session.NewSessionRegistry()
	if ttlMinutes, _ := strconv.Atoi(utils.GetConfig("SESSION_TTL_MINUTES")); ttlMinutes > 0 {
		startSessionEviction(sessions, time.Duration(ttlMinutes)*time.Minute)
	}

	// Repository
	stockRepository := stock.NewStockRepository(db)

	// Service
	stockService := stock.NewStockService(stockRepository)
	consumeService := consume.NewConsumeService(stockRepository)
	botService := bot.NewBotService(
		sessions,
		stockService,
		consumeService,
		aiGateway,
		imageGenerator,
		uploader,
		lineClient,
		timezone,
		idleFlush,
	)

	// Handler
	webhookHandler := handlers.NewWebhookHandler(botService, lineClient, validator)

	// routes
	routesConfig := routes.Config{
		App:            app,
		WebhookHandler: webhookHandler,
		Middleware:     middlewares,
		ChannelSecret:  utils.GetConfig("LINE_CHANNEL_SECRET"),
	}
	routesConfig.Setup()
	return app, nil
}

func startSessionEviction(sessions session.SessionRegistry, ttl time.Duration) {
	sweep := ttl / 2
	if sweep > 5*time.Minute {
		sweep = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(sweep)
		defer ticker.Stop()
		for range ticker.C {
			if evicted := sessions.EvictStale(time.Now().Add(-ttl)); evicted > 0 {
				log.Infof("evicted %d stale sessions", evicted)
			}
		}
	}()
}
