package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/config"
	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/httpserver"
	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/infra/storage"
	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/judge"
	appmw "github.com/Pratham-Aggarwal22/NTHSPipeline/internal/middleware"
	mongostore "github.com/Pratham-Aggarwal22/NTHSPipeline/internal/store/mongo"
	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/survey"
	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/transcribe"
	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/tts"
	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/twilioweb"
	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/usecase"
)

// noopAnswerStore is used when MONGODB_URI is not configured, so a survey can
// still be exercised end to end without a database.
type noopAnswerStore struct{}

func (noopAnswerStore) Record(ctx context.Context, callID, questionID, answer string) error {
	log.Printf("call %s: %s=%q (not persisted, MONGODB_URI unset)", callID, questionID, answer)
	return nil
}

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	catalog, err := survey.LoadCatalog(cfg.QuestionsFile)
	if err != nil {
		log.Fatalf("failed to load question catalog: %v", err)
	}
	log.Printf("loaded %d survey questions", catalog.Len())

	transcriber, err := transcribe.NewGoogleClient(ctx, transcribe.Config{
		CredentialsFile: cfg.GoogleCredentialsFile,
		LanguageCode:    cfg.SpeechLanguage,
		SampleRateHertz: cfg.SpeechSampleRate,
	})
	if err != nil {
		log.Fatalf("failed to create speech client: %v", err)
	}
	defer transcriber.Close()

	validator := judge.NewClient(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEndpoint)

	var synth survey.Synthesizer
	switch cfg.TTSProvider {
	case "deepgram":
		synth = tts.NewDeepgramClient(cfg.DeepgramKey, cfg.DeepgramModel)
	default:
		synth = tts.NewElevenLabsClient(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
	}

	var audio twilioweb.AudioStore
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceRoleKey != "" {
		sb, err := storage.New(storage.Config{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseServiceRoleKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			log.Fatalf("failed to create supabase client: %v", err)
		}
		audio = sb
	}

	var answers survey.AnswerStore = noopAnswerStore{}
	var responses twilioweb.ResponseLister
	if cfg.MongoURI != "" {
		store, err := mongostore.Connect(ctx, mongostore.Config{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
		if err != nil {
			log.Fatalf("failed to connect to mongodb: %v", err)
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			if err := store.Close(closeCtx); err != nil {
				log.Printf("mongodb close: %v", err)
			}
		}()
		answers = store
		responses = store
	}

	sessions := survey.NewSessionStore()
	controller := survey.NewController(catalog, sessions, transcriber, validator, answers, survey.Options{
		Greeting:   cfg.Greeting,
		MaxRetries: cfg.MaxRetries,
		Timeout:    cfg.CollaboratorTimeout,
	})

	twilioSvc := usecase.NewTwilioService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioCallerNumber)
	speaker := twilioweb.NewSpeaker(synth, audio)

	e := httpserver.New()
	e.Use(appmw.TwilioAuth(func() string { return cfg.TwilioAuthToken }))
	twilioweb.NewHandlers(controller, twilioSvc, speaker, audio, responses).Register(e)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Evict sessions from calls that went silent without completing.
	evictDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.SessionMaxAge / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessions.EvictIdle(cfg.SessionMaxAge); n > 0 {
					log.Printf("evicted %d idle survey sessions", n)
				}
			case <-evictDone:
				return
			}
		}
	}()
	defer close(evictDone)

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
