package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
	"github.com/tendant/simple-fields/pkg/simplefields/api"
	"github.com/tendant/simple-fields/pkg/simplefields/config"
)

// ServerConfig is loaded from the environment.
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`
	CacheURL    string `env:"CACHE_URL" env-default:"memory"`
	MediaURL    string `env:"MEDIA_URL" env-default:"memory://"`

	CacheEnabled bool          `env:"CACHE_ENABLED" env-default:"true"`
	CacheTTL     time.Duration `env:"CACHE_TTL" env-default:"5m"`

	JWTSecret string `env:"JWT_SECRET" env-default:""`
}

// productType is the demo content type this server ships with: a priced,
// searchable "product" with quick-editable fields.
type productType struct{}

func (productType) TypeID() string { return "product" }

func (productType) Declaration() simplefields.TypeDescriptor {
	return simplefields.TypeDescriptor{
		Label:          "Products",
		Labels:         map[string]string{"singular": "Product"},
		Public:         true,
		EditCapability: "edit_item",
		Supports:       []string{"title", "body"},
	}
}

func (productType) AdminColumns() []simplefields.Column {
	return []simplefields.Column{
		{
			Key:      "price",
			Label:    "Price",
			Position: simplefields.PositionAfterTitle,
			Format:   simplefields.FormatCurrency,
			FieldID:  "price",
			Sortable: true,
		},
		{
			Key:      "availability",
			Label:    "Availability",
			Position: simplefields.PositionEnd,
			Format:   simplefields.FormatPlain,
			FieldID:  "availability",
		},
	}
}

func registerProduct(ctx context.Context, eng *config.Engine) error {
	m, err := eng.Registry.Instance(productType{}, eng.ModelConfig)
	if err != nil {
		return err
	}

	g, err := m.NewGroup("product-details", "_product_")
	if err != nil {
		return err
	}
	g.AddField("price", "Price", simplefields.FieldNumber, nil,
		map[string]string{"min": "0", "step": "0.01"},
		simplefields.FieldConfig{Required: true, AllowQuickEdit: true}).
		AddField("availability", "Availability", simplefields.FieldSelect,
			[]simplefields.FieldOption{
				{Value: "in_stock", Label: "In stock"},
				{Value: "backorder", Label: "Backorder"},
				{Value: "discontinued", Label: "Discontinued"},
			}, nil,
			simplefields.FieldConfig{Default: "in_stock", AllowQuickEdit: true}).
		AddField("vendor_email", "Vendor Email", simplefields.FieldEmail, nil, nil,
			simplefields.FieldConfig{}).
		AddField("gallery", "Gallery", simplefields.FieldMedia, nil, nil,
			simplefields.FieldConfig{})

	return m.Run(ctx, false)
}

func main() {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	engineCfg, err := config.Load(
		config.WithDatabase(cfg.DatabaseURL),
		config.WithCache(cfg.CacheURL),
		config.WithMedia(cfg.MediaURL),
		config.WithCachePolicy(cfg.CacheEnabled, cfg.CacheTTL),
		config.WithLogger(logger),
	)
	if err != nil {
		slog.Error("Failed to load engine configuration", "err", err)
		os.Exit(1)
	}

	eng, err := engineCfg.Build(ctx)
	if err != nil {
		slog.Error("Failed to build engine", "err", err)
		os.Exit(1)
	}
	defer eng.Close()
	defer eng.Registry.DeactivateAll()

	if err := registerProduct(ctx, eng); err != nil {
		slog.Error("Failed to register product type", "err", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	if cfg.JWTSecret != "" {
		tokenAuth := jwtauth.New("HS256", []byte(cfg.JWTSecret), nil)
		r.Use(jwtauth.Verifier(tokenAuth))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	handler := api.NewHandler(eng.Registry, logger)
	r.Mount("/api/v1", handler.Routes())

	slog.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}
