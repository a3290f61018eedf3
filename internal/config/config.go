package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string
	BaseURL     string

	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioCallerNumber string

	GoogleCredentialsFile string
	SpeechLanguage        string
	SpeechSampleRate      int

	LLMAPIKey   string
	LLMModel    string
	LLMEndpoint string

	TTSProvider       string
	ElevenLabsKey     string
	ElevenLabsVoiceID string
	DeepgramKey       string
	DeepgramModel     string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseBucket         string

	QuestionsFile       string
	Greeting            string
	MaxRetries          int
	CollaboratorTimeout time.Duration
	SessionMaxAge       time.Duration
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := Config{
		HTTPAddress: getEnv("HTTP_ADDRESS", ":8080"),
		BaseURL:     os.Getenv("BASE_URL"),

		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioCallerNumber: os.Getenv("TWILIO_CALLER_NUMBER"),

		GoogleCredentialsFile: os.Getenv("GOOGLE_SPEECH_CREDENTIALS"),
		SpeechLanguage:        getEnv("SPEECH_LANGUAGE", "en-US"),
		SpeechSampleRate:      getEnvInt("SPEECH_SAMPLE_RATE", 8000),

		LLMAPIKey:   os.Getenv("LLM_API_KEY"),
		LLMModel:    getEnv("LLM_MODEL_ID", "gpt-4o-mini"),
		LLMEndpoint: os.Getenv("LLM_ENDPOINT"),

		TTSProvider:       getEnv("TTS_PROVIDER", "elevenlabs"),
		ElevenLabsKey:     os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID: os.Getenv("ELEVENLABS_VOICE_ID"),
		DeepgramKey:       os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramModel:     os.Getenv("DEEPGRAM_MODEL_ID"),

		MongoURI:        os.Getenv("MONGODB_URI"),
		MongoDatabase:   getEnv("MONGODB_DATABASE", "nhts_survey"),
		MongoCollection: getEnv("MONGODB_COLLECTION", "responses"),

		SupabaseURL:            os.Getenv("SUPABASE_URL"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:         getEnv("SUPABASE_BUCKET", "voice-survey"),

		QuestionsFile:       os.Getenv("QUESTIONS_FILE"),
		Greeting:            getEnv("SURVEY_GREETING", "Hello! Thank you for taking our survey. We have a few questions for you. Let's begin."),
		MaxRetries:          getEnvInt("MAX_RETRIES", 0),
		CollaboratorTimeout: getEnvDuration("COLLABORATOR_TIMEOUT", 15*time.Second),
		SessionMaxAge:       getEnvDuration("SESSION_MAX_AGE", 30*time.Minute),
	}

	if cfg.TwilioAuthToken == "" {
		log.Println("Warning: TWILIO_AUTH_TOKEN not set - webhooks cannot be validated")
	}
	if cfg.LLMAPIKey == "" {
		log.Println("Warning: LLM_API_KEY not set - answer validation will not work")
	}
	if cfg.MongoURI == "" {
		log.Println("Warning: MONGODB_URI not set - responses will not be persisted")
	}
	if cfg.SupabaseURL == "" || cfg.SupabaseServiceRoleKey == "" {
		log.Println("Warning: Supabase not configured - prompts fall back to the Twilio Say voice")
	}
	if cfg.TTSProvider == "elevenlabs" && cfg.ElevenLabsKey == "" {
		log.Println("Warning: ELEVENLABS_API_KEY not set - TTS will not work")
	}
	if cfg.TTSProvider == "deepgram" && cfg.DeepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set - TTS will not work")
	}

	log.Printf("config: HTTP_ADDRESS=%s TTS_PROVIDER=%s MAX_RETRIES=%d", cfg.HTTPAddress, cfg.TTSProvider, cfg.MaxRetries)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
