package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/steward/internal/config"
	"github.com/zhouzirui/steward/internal/handler"
	"github.com/zhouzirui/steward/internal/model/audio"
	"github.com/zhouzirui/steward/internal/model/conv"
	"github.com/zhouzirui/steward/internal/model/persona"
	"github.com/zhouzirui/steward/internal/overlay"
	"github.com/zhouzirui/steward/internal/service/brain"
	"github.com/zhouzirui/steward/internal/service/knowledge"
	"github.com/zhouzirui/steward/internal/service/memory"
	"github.com/zhouzirui/steward/internal/service/session"
	speechservice "github.com/zhouzirui/steward/internal/service/speech"
	"github.com/zhouzirui/steward/internal/service/tools"
	"github.com/zhouzirui/steward/internal/service/voice"
	"github.com/zhouzirui/steward/internal/service/wakeword"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.AI.Enabled() {
		log.Fatal("Ark credentials missing: set ARK_API_KEY and ARK_MODEL")
	}

	personaStore := persona.NewMemoryStore([]persona.Persona{persona.Default()})
	activePersona, _ := personaStore.FindByID("steward")

	// Backends. Tool and vision models share credentials with the
	// conversational one; vision stays off unless a model is named.
	chatModel, err := cfg.AI.NewChatModel(ctx, "")
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}
	toolModel, err := cfg.AI.NewChatModel(ctx, cfg.AI.ToolModel)
	if err != nil {
		log.Fatalf("failed to create tool model: %v", err)
	}
	var visionModel einomodel.ChatModel
	if cfg.AI.VisionModel != "" {
		visionModel, err = cfg.AI.NewChatModel(ctx, cfg.AI.VisionModel)
		if err != nil {
			log.Printf("warning: vision model unavailable: %v", err)
		}
	}

	// Knowledge base: semantic search when an embedding model is
	// configured, keyword search over the brain file regardless.
	knowOpts := knowledge.Options{
		BrainFile: cfg.Agent.BrainFile,
		VectorDir: cfg.Agent.VectorDir,
	}
	if cfg.AI.EmbedModel != "" {
		knowOpts.Embedder = knowledge.NewArkEmbedder(cfg.AI.EmbedBaseURL, cfg.AI.APIKey, cfg.AI.EmbedModel, nil)
	} else {
		knowOpts.VectorDir = ""
		log.Println("ARK_EMBED_MODEL not set, semantic knowledge search disabled")
	}
	knowStore, err := knowledge.NewStore(ctx, knowOpts)
	if err != nil {
		log.Fatalf("failed to open knowledge store: %v", err)
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(registry, tools.BuiltinDeps{Knowledge: knowStore}); err != nil {
		log.Fatalf("failed to register tools: %v", err)
	}
	dispatcher := tools.NewDispatcher(registry, 0)

	summarizer, err := memory.NewChainSummarizer(ctx, chatModel)
	if err != nil {
		log.Fatalf("failed to build summarizer: %v", err)
	}
	ledger, err := memory.NewStore(cfg.Agent.MemoryFile, cfg.Agent.SummaryInterval, summarizer)
	if err != nil {
		log.Fatalf("failed to open memory ledger: %v", err)
	}
	defer ledger.Close()
	log.Printf("memory ledger loaded, %d turns on record", ledger.Len())

	router, err := brain.NewRouter(ctx, chatModel, brain.Options{
		Persona:            activePersona,
		Dispatcher:         dispatcher,
		Registry:           registry,
		ToolModel:          toolModel,
		VisionModel:        visionModel,
		RephraseToolResult: cfg.Agent.RephraseToolResults,
		Timeout:            cfg.Agent.BackendTimeout,
		Retries:            cfg.Agent.BackendRetries,
	})
	if err != nil {
		log.Fatalf("failed to build brain: %v", err)
	}

	// Speech path: frames arrive on the audio hub, the gate and the
	// listener both subscribe to it.
	audioHub := audio.NewHub()
	defer audioHub.Close()
	speechSvc := speechservice.NewService(cfg.Speech)
	if !speechSvc.Enabled() {
		log.Println("speech gateway not configured: replies will be logged, input is typed only")
	}

	speaker, err := voice.NewSpeaker(speechSvc, cfg.Agent.Voice, cfg.Agent.PlayerCommand)
	if err != nil {
		log.Fatalf("failed to build speaker: %v", err)
	}

	mic := speechservice.NewListener(audioHub, speechSvc, speechservice.DefaultCaptureOptions())
	feed := speechservice.NewTextFeed()
	listener := speechservice.NewCompositeListener(mic, feed)

	publisher := overlay.NewPublisher()
	defer publisher.Close()
	overlayHub := overlay.NewHub(publisher)
	go overlayHub.Run(ctx)

	// The gate probes the controller's state, the controller consumes
	// the gate's activations.
	var controller *session.Controller
	probe := func() conv.State {
		if controller == nil {
			return conv.StateIdle
		}
		return controller.State()
	}

	var detector wakeword.Detector
	if cfg.Speech.WakeURL != "" {
		remote := wakeword.NewRemoteDetector(cfg.Speech.WakeURL)
		defer remote.Close()
		detector = remote
		log.Printf("wake-word model at %s", cfg.Speech.WakeURL)
	} else {
		detector = wakeword.NewTranscriptDetector(cfg.Agent.TriggerPhrase, speechSvc)
		log.Printf("no wake-word model configured, matching %q via transcription", cfg.Agent.TriggerPhrase)
	}

	gateFrames, unsubscribe := audioHub.Subscribe()
	defer unsubscribe()
	gate := wakeword.NewGate(detector, cfg.Agent.WakeThreshold, probe, gateFrames)

	controller = session.NewController(session.Options{
		Brain:             router,
		Listener:          listener,
		Voice:             speaker,
		Ledger:            ledger,
		Publisher:         publisher,
		Wake:              gate.Activations(),
		OpeningLine:       activePersona.OpeningLine,
		MaxMemoryDepth:    cfg.Agent.MaxMemoryDepth,
		InactivityTimeout: cfg.Agent.InactivityTimeout,
	})
	go gate.Run(ctx)
	go func() {
		if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("session loop stopped: %v", err)
		}
	}()

	// Enter on stdin interrupts speech, same as POST /api/interrupt.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			controller.Interrupt()
		}
	}()

	httpHandler := handler.NewRouter(overlayHub, audioHub, controller, feed, ledger)
	startServer(ctx, cfg.Server, httpHandler)
}

func startServer(ctx context.Context, serverCfg config.Server, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Steward control API listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
