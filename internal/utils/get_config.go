package utils

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	// Application configuration
	Port        string `yaml:"PORT"`
	AppTimezone string `yaml:"APP_TIMEZONE"`
	AppBaseURL  string `yaml:"APP_BASE_URL"`

	// LINE channel configuration
	LineChannelSecret      string `yaml:"LINE_CHANNEL_SECRET"`
	LineChannelAccessToken string `yaml:"LINE_CHANNEL_ACCESS_TOKEN"`
	LineChannelID          string `yaml:"LINE_CHANNEL_ID"`
	LineKeyID              string `yaml:"LINE_KEY_ID"`
	LinePrivateKey         string `yaml:"LINE_PRIVATE_KEY"`

	// Dify workflow configuration
	DifyAPIEndpoint  string `yaml:"DIFY_API_ENDPOINT"`
	DifyRecipeAPIKey string `yaml:"DIFY_RECIPE_API_KEY"`
	DifyRecordAPIKey string `yaml:"DIFY_RECORD_API_KEY"`

	// Gemini API configuration
	GeminiAPIKey     string `yaml:"GEMINI_API_KEY"`
	GeminiImageModel string `yaml:"GEMINI_IMAGE_MODEL"`

	// AWS S3 configuration
	AWSS3Bucket  string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region  string `yaml:"AWS_S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY"`

	// Conversation tuning
	TurnIdleSeconds   int `yaml:"TURN_IDLE_SECONDS"`
	SessionTTLMinutes int `yaml:"SESSION_TTL_MINUTES"`
}

var config Config

func LoadConfig() {
	file, err := os.ReadFile("config.yaml")
	if err != nil {
		log.Printf("Error reading YAML file: %s\n", err)
		return
	}

	err = yaml.Unmarshal(file, &config)
	if err != nil {
		log.Printf("Error parsing YAML file: %s\n", err)
		return
	}
}

func GetConfig(key string) string {
	switch key {
	case "DB_USER":
		return config.DBUser
	case "DB_NAME":
		return config.DBName
	case "DB_PASSWORD":
		return config.DBPassword
	case "DB_PORT":
		return config.DBPort
	case "DB_HOST":
		return config.DBHost
	case "PORT":
		return config.Port
	case "APP_TIMEZONE":
		return config.AppTimezone
	case "APP_BASE_URL":
		return config.AppBaseURL
	case "LINE_CHANNEL_SECRET":
		return config.LineChannelSecret
	case "LINE_CHANNEL_ACCESS_TOKEN":
		return config.LineChannelAccessToken
	case "LINE_CHANNEL_ID":
		return config.LineChannelID
	case "LINE_KEY_ID":
		return config.LineKeyID
	case "LINE_PRIVATE_KEY":
		return config.LinePrivateKey
	case "DIFY_API_ENDPOINT":
		return config.DifyAPIEndpoint
	case "DIFY_RECIPE_API_KEY":
		return config.DifyRecipeAPIKey
	case "DIFY_RECORD_API_KEY":
		return config.DifyRecordAPIKey
	case "GEMINI_API_KEY":
		return config.GeminiAPIKey
	case "GEMINI_IMAGE_MODEL":
		return config.GeminiImageModel
	case "AWS_S3_BUCKET":
		return config.AWSS3Bucket
	case "AWS_S3_REGION":
		return config.AWSS3Region
	case "AWS_ACCESS_KEY":
		return config.AWSAccessKey
	case "AWS_SECRET_KEY":
		return config.AWSSecretKey
	case "TURN_IDLE_SECONDS":
		return strconv.Itoa(config.TurnIdleSeconds)
	case "SESSION_TTL_MINUTES":
		return strconv.Itoa(config.SessionTTLMinutes)
	default:
		return ""
	}
}
