package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/namaste/namaste/internal/config"
	"github.com/namaste/namaste/internal/domain/terminology"
	"github.com/namaste/namaste/internal/platform/auth"
	"github.com/namaste/namaste/internal/platform/cache"
	"github.com/namaste/namaste/internal/platform/fhir"
	"github.com/namaste/namaste/internal/platform/icd11"
	"github.com/namaste/namaste/internal/platform/ingest"
	"github.com/namaste/namaste/internal/platform/middleware"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "namaste-server",
		Short: "NAMASTE to ICD-11 terminology API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(summaryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the terminology API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Cache store backing the WHO client
	store, closeStore, err := newCacheStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize cache store")
	}
	if closeStore != nil {
		defer closeStore()
	}

	// WHO ICD-11 client
	client := icd11.New(icd11.Config{
		ClientID:     cfg.ICDClientID,
		ClientSecret: cfg.ICDClientSecret,
		TokenURL:     cfg.ICDBaseURL + "/connect/token",
		APIVersion:   cfg.ICDAPIVersion,
		Timeout:      time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		CacheTTL:     time.Duration(cfg.CacheDurationHours) * time.Hour,
	}, store, logger)
	if !client.Configured() {
		logger.Warn().Msg("WHO ICD-11 credentials not set; enrichment will use static fallback mappings only")
	}

	// Terminology service
	enricher := terminology.NewEnricher(client, logger)
	svc := terminology.NewService(terminology.NewStore(), enricher, client, logger)

	ctx := context.Background()
	if cfg.DatasetPath != "" {
		count, err := svc.IngestFile(ctx, cfg.DatasetPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.DatasetPath).Msg("failed to ingest dataset")
		}
		logger.Info().Int("codes", count).Str("path", cfg.DatasetPath).Msg("dataset ingested at startup")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	tokenSvc := auth.NewTokenService(cfg.AuthSigningKey, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.Middleware(tokenSvc, auth.DefaultSkipper))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// Token endpoint
	auth.NewTokenHandler(tokenSvc).RegisterRoutes(e)

	// Health check and root banner
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"version": version,
			"loaded":  svc.Loaded(),
		})
	})
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "NAMASTE-ICD11 terminology service",
		})
	})

	// API groups
	apiV1 := e.Group("/api/v1")
	fhirGroup := e.Group("/fhir")

	handler := terminology.NewHandler(svc, logger)
	handler.RegisterRoutes(apiV1, fhirGroup)

	// Dataset watcher
	if cfg.WatchDataset {
		watchCtx, cancelWatch := context.WithCancel(ctx)
		defer cancelWatch()
		watcher := ingest.NewWatcher(cfg.DatasetPath, func(path string) {
			count, err := svc.IngestFile(watchCtx, path)
			if err != nil {
				logger.Error().Err(err).Str("path", path).Msg("re-ingest failed; previous generation stays live")
				return
			}
			logger.Info().Int("codes", count).Str("path", path).Msg("dataset re-ingested")
		}, logger)
		if err := watcher.Start(watchCtx); err != nil {
			logger.Fatal().Err(err).Msg("failed to start dataset watcher")
		}
	}

	// Graceful shutdown
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newCacheStore(cfg *config.Config) (cache.Store, func() error, error) {
	switch cfg.CacheBackend {
	case "memory":
		return cache.NewMemoryStore(), nil, nil
	case "bolt":
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, nil, err
		}
		store, err := cache.NewBoltStore(filepath.Join(cfg.CacheDir, "icd11.db"))
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store, err := cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

// ingestCmd is the offline path: parse a NAMASTE CSV export and write the
// FHIR CodeSystem and ConceptMap artifacts as files, without a server.
func ingestCmd() *cobra.Command {
	var (
		input         string
		output        string
		outputDir     string
		genCodeSystem bool
		genConceptMap bool
		genAll        bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Parse a NAMASTE CSV export and generate FHIR artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, _, err := loadOffline(cmd.Context(), input)
			if err != nil {
				return err
			}

			genCodeSystem = genCodeSystem || genAll
			genConceptMap = genConceptMap || genAll
			if !genCodeSystem && !genConceptMap {
				return fmt.Errorf("nothing to generate: use --codesystem, --conceptmap, or --all")
			}

			codeSystemPath := "namaste-codesystem.json"
			conceptMapPath := "namaste-conceptmap.json"
			switch {
			case outputDir != "":
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return fmt.Errorf("creating output dir: %w", err)
				}
				codeSystemPath = filepath.Join(outputDir, codeSystemPath)
				conceptMapPath = filepath.Join(outputDir, conceptMapPath)
			case output != "":
				if genCodeSystem && genConceptMap {
					return fmt.Errorf("cannot write multiple resources to one file: use --output-dir")
				}
				codeSystemPath = output
				conceptMapPath = output
			}

			now := time.Now().UTC()
			if genCodeSystem {
				concepts := make([]fhir.Concept, 0, len(records))
				for _, r := range records {
					concepts = append(concepts, fhir.Concept{Code: r.Code, Display: r.Display, Definition: r.Definition})
				}
				if err := writeJSON(codeSystemPath, fhir.NewCodeSystem(concepts, now)); err != nil {
					return err
				}
				fmt.Printf("wrote CodeSystem with %d concepts to %s\n", len(concepts), codeSystemPath)
			}
			if genConceptMap {
				elements := make([]fhir.MapElement, 0, len(records))
				for _, r := range records {
					elements = append(elements, fhir.MapElement{
						Code:    r.Code,
						Display: r.Display,
						Targets: []fhir.MapTarget{
							{Code: r.TM2Code, Display: "ICD-11 TM2: " + r.TM2Code, Comment: "Traditional Medicine 2 (TM2) mapping"},
							{Code: r.BiomedCode, Display: "ICD-11 Biomedicine: " + r.BiomedCode, Comment: "Biomedicine mapping"},
						},
					})
				}
				if err := writeJSON(conceptMapPath, fhir.NewConceptMap(elements, now)); err != nil {
					return err
				}
				fmt.Printf("wrote ConceptMap with %d elements to %s\n", len(elements), conceptMapPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to NAMASTE CSV file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path for a single resource")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "output directory for multiple resources")
	cmd.Flags().BoolVar(&genCodeSystem, "codesystem", false, "generate the FHIR CodeSystem")
	cmd.Flags().BoolVar(&genConceptMap, "conceptmap", false, "generate the FHIR ConceptMap")
	cmd.Flags().BoolVar(&genAll, "all", false, "generate all FHIR resources")
	cmd.MarkFlagRequired("input")
	return cmd
}

func summaryCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Display a summary of a NAMASTE dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, rows, err := loadOffline(cmd.Context(), input)
			if err != nil {
				return err
			}
			diseases := map[string]bool{}
			for _, row := range rows {
				diseases[row.Disease] = true
			}

			fmt.Println("NAMASTE data summary:")
			fmt.Printf("  total records: %d\n", len(rows))
			fmt.Printf("  unique codes:  %d\n", len(records))
			fmt.Printf("  unique diseases: %d\n", len(diseases))
			fmt.Println("code mappings:")
			sorted := append([]terminology.Record(nil), records...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
			for _, r := range sorted {
				if r.TM2Code == terminology.CodeUnknown && r.BiomedCode == terminology.CodeUnknown {
					fmt.Printf("  %s -> no mapping available\n", r.Code)
					continue
				}
				fmt.Printf("  %s -> TM2: %s, Biomed: %s\n", r.Code, r.TM2Code, r.BiomedCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "path to NAMASTE CSV file")
	cmd.MarkFlagRequired("input")
	return cmd
}

// loadOffline builds an enriched, deduplicated record set without touching
// the network: the offline path always maps from the static fallback table.
func loadOffline(ctx context.Context, input string) ([]terminology.Record, []ingest.RawRecord, error) {
	rows, err := ingest.ParseCSVFile(input)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("dataset %s contains no records", input)
	}

	enricher := terminology.NewEnricher(offlineSource{}, zerolog.Nop())
	records := make([]terminology.Record, 0, len(rows))
	seen := map[string]bool{}
	for _, row := range rows {
		if seen[row.Code] {
			continue
		}
		seen[row.Code] = true
		records = append(records, terminology.Record{
			Code:       row.Code,
			Display:    row.Disease,
			Definition: row.ShortDefinition,
			Region:     row.State,
		})
	}
	return enricher.Enrich(ctx, records, nil), rows, nil
}

// offlineSource reports the external source as unavailable, forcing the
// enricher onto the static fallback mappings.
type offlineSource struct{}

func (offlineSource) Search(ctx context.Context, term, linearization string) ([]icd11.Entity, bool) {
	return nil, false
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
