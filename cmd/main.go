package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/adapters/audio"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/entities"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/repositories"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/internal/api"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/internal/capture"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/internal/config"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/internal/console"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/internal/playback"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/internal/websocket"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/usecase"
)

type options struct {
	wsURL   string
	port    string
	debug   bool
	noAudio bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "kiosk",
		Short: "Drive-thru voice ordering kiosk",
		Long: `Runs the kiosk side of the drive-thru voice ordering system.

Press Enter to start or stop listening. Type "reset" to clear the voice
state, "order" to print the cart, or "quit" to exit.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.wsURL, "ws-url", "", "Voice service base url (overrides VOICE_WS_URL)")
	cmd.Flags().StringVar(&opts.port, "port", "", "Kiosk API port (overrides PORT)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Development logging")
	cmd.Flags().BoolVar(&opts.noAudio, "no-audio", false, "Run without microphone and speaker")

	return cmd
}

func run(ctx context.Context, opts options) error {
	// .env is optional
	_ = godotenv.Load()

	logger, err := newLogger(opts.debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.NewConfigFromEnv(logger)
	if err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		return err
	}
	if opts.wsURL != "" {
		cfg.VoiceURL = opts.wsURL
	}
	if opts.port != "" {
		cfg.Port = opts.port
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	clk := clock.New()

	// Initialize adapters
	client, err := websocket.NewClient(websocket.Config{
		BaseURL:              cfg.VoiceURL,
		ReconnectBase:        cfg.ReconnectBase,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	}, clk, logger)
	if err != nil {
		return err
	}

	input, output, err := newAudio(cfg, opts.noAudio, clk, logger)
	if err != nil {
		return err
	}

	recorder := capture.NewRecorder(input, capture.Config{
		SampleRate:       cfg.SampleRate,
		ChunkInterval:    cfg.ChunkInterval,
		EchoCancellation: cfg.EchoCancellation,
		NoiseSuppression: cfg.NoiseSuppression,
		Device:           cfg.InputDevice,
	}, clk, logger)
	player := playback.NewController(output, logger)

	// Initialize usecase services
	voice := usecase.NewVoiceSession(client, recorder, player, logger)
	order := usecase.NewOrderAggregator(logger)
	workflow := usecase.NewWorkflow(logger)

	out := console.New(os.Stdout)
	voice.OnStatusChange(out.Status)
	voice.OnTranscript(out.Transcript)
	voice.OnResponse(out.Response)
	voice.OnError(out.Error)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := voice.Open(ctx); err != nil {
		// touch ordering through the API still works
		logger.Warn("Voice ordering unavailable", zap.Error(err))
	}
	defer voice.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, api.Dependencies{
		Order:    order,
		Workflow: workflow,
		Voice:    voice,
		ClientID: client.Session().ClientID,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Kiosk started",
			zap.String("port", cfg.Port),
			zap.String("voiceURL", client.URL()))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Kiosk is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	// stdin reads cannot be cancelled, so this loop stays outside the group
	go operatorLoop(os.Stdin, voice, order, out, stop, logger)

	if err := g.Wait(); err != nil {
		logger.Error("Kiosk stopped", zap.Error(err))
		return err
	}
	logger.Info("Kiosk exited")
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newAudio(cfg config.Config, noAudio bool, clk clock.Clock, logger *zap.Logger) (repositories.AudioInput, repositories.AudioOutput, error) {
	if noAudio {
		logger.Info("Audio disabled, using silent devices")
		output := audio.NewMockOutput()
		output.Auto = true
		return audio.NewMockInput(), output, nil
	}

	output, err := audio.NewFFplayOutput(logger)
	if err != nil {
		return nil, nil, err
	}
	input := audio.NewFFmpegInput(audio.FFmpegInputConfig{
		EchoCancelSource: cfg.EchoCancelSource,
	}, clk, logger)
	return input, output, nil
}

// operatorLoop drives the session from the terminal until stdin closes or quit is typed
func operatorLoop(
	in io.Reader,
	voice *usecase.VoiceSession,
	order *usecase.OrderAggregator,
	out *console.Console,
	quit func(),
	logger *zap.Logger,
) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "":
			if err := voice.Toggle(); err != nil {
				logger.Debug("Toggle rejected", zap.Error(err))
			}
		case "reset":
			voice.Reset()
		case "order":
			out.Order(order.Items(), entities.FormatPrice(order.Total()))
		case "quit":
			quit()
			return
		default:
			out.Status(voice.State().Status)
		}
	}
}
