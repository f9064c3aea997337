package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cuotas/internal/amqp"
	"cuotas/internal/services"
	gsheet "cuotas/internal/sheets/google"
	sheetsmem "cuotas/internal/sheets/memory"
	"cuotas/internal/storage"
	"cuotas/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured store and, when AMQP_URL is set, the
// event publisher. A broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store services.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		store = f.createMemoryStore(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Store: store}
	var client *amqp.Client
	if config.AMQPURL != "" {
		client, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			result.Events = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if client != nil {
			errs = append(errs, client.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", result.Events != nil)
	return result, nil
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (services.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if config.SeedFile != "" {
		n, err := seedMembers(ctx, repo, config.SeedFile)
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("seed members: %w", err)
		}
		if n > 0 {
			f.logger.Info("Seeded members into empty database", "count", n, "file", config.SeedFile)
		}
	}
	f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) services.Store {
	if config.SeedFile == "" {
		f.logger.Info("Initialized empty memory store")
		return memory.New()
	}
	store := memory.NewFromFile(config.SeedFile)
	f.logger.Info("Initialized memory store", "seed_file", config.SeedFile, "contents", store.String())
	return store
}

// seedMembers copies the members of the seed file into store when it holds
// none yet, and returns how many were created.
func seedMembers(ctx context.Context, store services.MemberStore, path string) (int, error) {
	existing, err := store.ListMembers(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	seed, err := memory.NewFromFile(path).ListMembers(ctx)
	if err != nil {
		return 0, err
	}
	for i, m := range seed {
		m.ID = ""
		if _, err := store.CreateMember(ctx, m); err != nil {
			return i, err
		}
	}
	return len(seed), nil
}

// CreateMirror returns the Google Sheets mirror when a spreadsheet is
// configured, otherwise an in-memory one.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*Mirror, error) {
	if config.Sheets.SpreadsheetID == "" {
		f.logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring the ledger in memory")
		store := sheetsmem.New()
		return &Mirror{Writer: store, Reader: store}, nil
	}
	client, err := gsheet.New(ctx, config.Sheets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets mirror", "spreadsheet_id", config.Sheets.SpreadsheetID)
	return &Mirror{Writer: client, Reader: client, Remote: true}, nil
}
