package backend

import (
	"fmt"

	appconfig "cuotas/internal/config"
	"cuotas/internal/services"
	gsheet "cuotas/internal/sheets/google"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	SeedFile     string

	// An empty AMQPURL disables ledger events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// An empty Sheets.SpreadsheetID selects the in-memory mirror.
	Sheets gsheet.Config
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *appconfig.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		SeedFile:     appConfig.SeedFile,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		Sheets: gsheet.Config{
			SpreadsheetID:      appConfig.GoogleSpreadsheetID,
			ContributionsSheet: appConfig.GoogleContributionsSheet,
			ExpensesSheet:      appConfig.GoogleExpensesSheet,
			ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
			ServiceAccountFile: appConfig.GoogleServiceAccountFile,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP_URL is set")
	}
	return nil
}

// ServiceOptions derives the dues settings of the service from the
// application config.
func ServiceOptions(appConfig *appconfig.Config) (services.Options, error) {
	fee, err := appConfig.Fee()
	if err != nil {
		return services.Options{}, fmt.Errorf("fee per period: %w", err)
	}
	policy, err := services.GetFeePolicy(appConfig.FeePolicy)
	if err != nil {
		return services.Options{}, err
	}
	return services.Options{
		Fee:               fee,
		Policy:            policy,
		HorizonMonths:     appConfig.HorizonMonths,
		MaxPrepaidPeriods: appConfig.MaxPrepaidPeriods,
	}, nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend}
}
