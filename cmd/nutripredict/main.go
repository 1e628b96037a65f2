package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nutripredict/nutripredict/internal/config"
	"github.com/nutripredict/nutripredict/internal/domain/nutrition"
	"github.com/nutripredict/nutripredict/internal/platform/cache"
	"github.com/nutripredict/nutripredict/internal/platform/metrics"
	"github.com/nutripredict/nutripredict/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nutripredict",
		Short: "Childhood malnutrition risk dashboard",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(healthCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func predictCmd() *cobra.Command {
	var (
		in     nutrition.FormInput
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Validate one measurement and ask the prediction service for a risk classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cliService()
			if err != nil {
				return err
			}
			return runPredict(cmd.Context(), cmd.OutOrStdout(), svc, in, asJSON)
		},
	}
	cmd.Flags().StringVar(&in.AgeMonths, "age", "", "Age in months (0-60)")
	cmd.Flags().StringVar(&in.WeightKg, "weight", "", "Weight in kg")
	cmd.Flags().StringVar(&in.HeightCm, "height", "", "Height in cm")
	cmd.Flags().StringVar(&in.Hemoglobin, "hemoglobin", "", "Hemoglobin in g/dL (hemoglobin schema)")
	cmd.Flags().StringVar(&in.ArmCircumference, "arm-circumference", "", "Mid-upper arm circumference in cm (arm_circumference schema)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the evaluation as JSON")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the prediction model's metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cliService()
			if err != nil {
				return err
			}
			stats, err := svc.ModelStats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Model:      %s\n", stats.Model)
			fmt.Fprintf(out, "Features:   %s\n", strings.Join(stats.Features, ", "))
			fmt.Fprintf(out, "Categories: %s\n", strings.Join(stats.Categories, ", "))
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the prediction service is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cliService()
			if err != nil {
				return err
			}
			status, err := svc.ServiceHealth(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prediction service: %s\n", status.Status)
			return nil
		},
	}
}

// cliService builds a session-less service for one-shot commands.
func cliService() (*nutrition.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	schema, err := nutrition.ParseSchema(cfg.MeasurementSchema)
	if err != nil {
		return nil, err
	}
	client, err := nutrition.NewClient(nutrition.ClientConfig{
		BaseURL: cfg.PredictionAPIURL,
		Timeout: cfg.PredictionTimeout,
	})
	if err != nil {
		return nil, err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	return nutrition.NewService(schema, client, nil, nil, logger)
}

// runPredict evaluates one form and prints the outcome.
func runPredict(ctx context.Context, out io.Writer, svc *nutrition.Service, in nutrition.FormInput, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	eval, errs, err := svc.Evaluate(ctx, in)
	if errors.Is(err, nutrition.ErrInvalidInput) {
		for _, field := range errs.Fields() {
			fmt.Fprintf(out, "%s: %s\n", field, errs[field])
		}
		return err
	}
	if err != nil {
		return errors.New(nutrition.UserMessage(err))
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(eval)
	}

	fmt.Fprintf(out, "Category:    %s\n", eval.Prediction.Category)
	fmt.Fprintf(out, "Risk:        %s (level %d)\n", eval.Risk.Label, eval.Risk.Level)
	fmt.Fprintf(out, "Probability: %.1f%%\n", eval.Prediction.Probability*100)
	fmt.Fprintf(out, "BMI:         %.1f\n", eval.Insights.BMI)
	for _, w := range eval.Insights.Warnings {
		fmt.Fprintf(out, "Warning:     %s\n", w)
	}
	if len(eval.Prediction.Recommendations) > 0 {
		fmt.Fprintln(out, "Recommendations:")
		for i, r := range eval.Prediction.Recommendations {
			fmt.Fprintf(out, "  %d. %s\n", i+1, r)
		}
	}
	return nil
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Metrics
	rec, err := metrics.New(metrics.Config{
		Addr:        cfg.StatsdAddr,
		Namespace:   cfg.StatsdNamespace,
		Environment: cfg.Env,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create metrics client")
	}
	defer rec.Close()

	// Sessions
	sessions, err := cache.NewStore(cfg.SessionCapacity, cfg.SessionTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session store")
	}
	defer sessions.Close()

	// Prediction service
	schema, err := nutrition.ParseSchema(cfg.MeasurementSchema)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid measurement schema")
	}
	client, err := nutrition.NewClient(nutrition.ClientConfig{
		BaseURL: cfg.PredictionAPIURL,
		Timeout: cfg.PredictionTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create prediction client")
	}
	svc, err := nutrition.NewService(schema, client, sessions, rec, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create nutrition service")
	}
	logger.Info().
		Str("prediction_api", client.BaseURL()).
		Dur("timeout", client.Timeout()).
		Str("schema", string(schema)).
		Msg("prediction service configured")

	e, err := newEcho(cfg, logger, nutrition.NewHandler(svc, sessions.TTL()))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newLogger writes JSON, or human-readable lines in development. Debug
// lines are dropped in production.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out, NoColor: true}
	}
	level := zerolog.DebugLevel
	if cfg.IsProduction() {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// newEcho assembles middleware and routes around the dashboard handler.
func newEcho(cfg *config.Config, logger zerolog.Logger, h *nutrition.Handler) (*echo.Echo, error) {
	renderer, err := nutrition.NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Rate limiting applies to every route that reaches the prediction service.
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	h.RegisterRoutes(e.Group(""), e.Group("/api/v1"), middleware.RateLimit(rateLimitCfg))
	return e, nil
}
