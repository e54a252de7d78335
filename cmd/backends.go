package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/cache"
	"github.com/kozaktomas/photo-booth/internal/cloudprint"
	"github.com/kozaktomas/photo-booth/internal/config"
	"github.com/kozaktomas/photo-booth/internal/database"
	"github.com/kozaktomas/photo-booth/internal/database/postgres"
	"github.com/kozaktomas/photo-booth/internal/events"
	"github.com/kozaktomas/photo-booth/internal/objectstore"
	"github.com/kozaktomas/photo-booth/internal/printhelper"
	"github.com/kozaktomas/photo-booth/internal/render"
)

// Printer backends selectable with --printer.
const (
	printerHelper = "helper"
	printerCloud  = "cloud"
	printerNone   = "none"
)

// backends are the shared collaborators built from configuration.
type backends struct {
	Store     database.PhotoWriter
	Cache     cache.Store
	Objects   objectstore.Store
	Publisher events.Publisher
	Cloud     *cloudprint.Client
	Helper    *printhelper.Client

	closers []io.Closer
}

// openBackends connects to PostgreSQL, the processed-set cache, object
// storage and the event broker.
func openBackends(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backends, error) {
	b := &backends{}

	store, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}
	b.Store = store
	b.closers = append(b.closers, postgres.GetGlobalPool())

	processed, err := openCache(cfg.Cache, log)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Cache = processed
	if c, ok := processed.(io.Closer); ok {
		b.closers = append(b.closers, c)
	}

	objects, err := openObjects(ctx, cfg.ObjectStore, log)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Objects = objects

	b.Publisher = events.New(cfg.Events, log)
	b.closers = append(b.closers, b.Publisher)

	b.Cloud = cloudprint.New(cfg.Printing.CloudURL, cloudprint.NewNormalizer(cfg.Media, log), log)
	if cfg.Printing.HelperURL != "" {
		b.Helper = printhelper.New(cfg.Printing.HelperURL, cfg.Printing.HelperPrinter, log)
	}
	return b, nil
}

// Close releases every opened backend.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i].Close()
	}
	b.closers = nil
}

func openStore(cfg *config.Config, log zerolog.Logger) (database.PhotoWriter, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	log.Info().Msg("Connecting to PostgreSQL database")
	applied, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	for _, name := range applied {
		log.Info().Str("migration", name).Msg("Applied migration")
	}

	repo := postgres.NewPhotoRepository(postgres.GetGlobalPool())
	database.RegisterPostgresBackend(func() database.PhotoWriter { return repo })
	return database.GetPhotoWriter(context.Background())
}

func openCache(cfg config.CacheConfig, log zerolog.Logger) (cache.Store, error) {
	if cfg.UsesRedis() {
		store, err := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "photo-booth:")
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("Processed sets stored in Redis")
		return store, nil
	}

	store, err := cache.NewFileStore(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create processed-set cache: %w", err)
	}
	log.Info().Str("dir", cfg.Dir).Msg("Processed sets stored on disk")
	return store, nil
}

func openObjects(ctx context.Context, cfg config.ObjectStoreConfig, log zerolog.Logger) (objectstore.Store, error) {
	if cfg.Endpoint != "" {
		store, err := objectstore.NewMinIO(ctx, cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.UseSSL, cfg.PublicURL)
		if err != nil {
			return nil, err
		}
		log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("Photos stored in MinIO")
		return store, nil
	}

	store, err := objectstore.NewFileStore(cfg.Path, cfg.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create photo storage: %w", err)
	}
	log.Info().Str("path", cfg.Path).Msg("Photos stored on disk")
	return store, nil
}

// selectPrinter resolves the --printer flag to a booth.Printer. A nil printer
// keeps rendered sheets for download only.
func selectPrinter(mode string, cfg config.PrintingConfig, b *backends, log zerolog.Logger) (booth.Printer, error) {
	switch mode {
	case printerHelper:
		if b.Helper == nil {
			return nil, errors.New("PRINT_HELPER_URL is required for the helper printer")
		}
		return b.Helper, nil
	case printerCloud:
		if cfg.CloudAPIKey == "" || cfg.CloudPrinterID == 0 {
			return nil, errors.New("CLOUD_PRINT_API_KEY and CLOUD_PRINT_PRINTER_ID are required for the cloud printer")
		}
		p := cloudprint.NewPrinter(b.Cloud, cfg.CloudAPIKey, cfg.CloudPrinterID)
		p.OnSubmitted = func(jobID string) {
			log.Info().Str("job_id", jobID).Int("printer_id", cfg.CloudPrinterID).Msg("Sheet sent to cloud printer")
		}
		return p, nil
	case printerNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown printer %q, expected helper, cloud or none", mode)
	}
}

// viewDeps assembles the collaborators every template view is built from.
func (b *backends) viewDeps(cfg *config.Config, printer booth.Printer, log zerolog.Logger) booth.ViewDeps {
	return booth.ViewDeps{
		Store:        b.Store,
		Cache:        b.Cache,
		Objects:      b.Objects,
		Renderer:     render.NewSheet(b.Objects, log),
		Printer:      printer,
		Publisher:    b.Publisher,
		PollInterval: cfg.Template.PollInterval,
		Log:          log,
	}
}
