package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	appconfig "cuotas/internal/config"
	"cuotas/internal/services"
)

const seedContent = `# name;email;birth;enrollment
Ana;ana@example.com;1990-03-15;2024-01-10
Luis;luis@example.com;1985-07-01;2024-02-01
broken line
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "members.txt")
	if err := os.WriteFile(path, []byte(seedContent), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestFromAppConfig(t *testing.T) {
	app := appconfig.Load()
	app.DataBackend = "sqlite"
	app.GoogleSpreadsheetID = "sheet-1"

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.Sheets.SpreadsheetID != "sheet-1" || cfg.AMQPQueue != app.AMQPQueue {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}

	app.DataBackend = "sheets"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("FromAppConfig(sheets) error = nil")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) error = nil")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "x"}, true},
		{"unknown type", Config{Type: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_MemorySeed(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend, SeedFile: writeSeed(t)})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Cleanup()

	if res.Events != nil {
		t.Error("Events should be nil without AMQP_URL")
	}
	members, _ := res.Store.ListMembers(ctx)
	if len(members) != 2 {
		t.Errorf("seeded members = %d, want 2", len(members))
	}
}

func TestCreateBackend_SQLiteSeedsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "cuotas.db"),
		SeedFile:     writeSeed(t),
	}
	for i := 0; i < 2; i++ {
		res, err := NewFactory(nil).CreateBackend(ctx, cfg)
		if err != nil {
			t.Fatalf("CreateBackend() #%d error = %v", i, err)
		}
		members, _ := res.Store.ListMembers(ctx)
		if len(members) != 2 {
			t.Errorf("run %d: members = %d, want 2", i, len(members))
		}
		if err := res.Cleanup(); err != nil {
			t.Errorf("Cleanup() = %v", err)
		}
	}
}

func TestCreateMirror_Memory(t *testing.T) {
	m, err := NewFactory(nil).CreateMirror(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateMirror() error = %v", err)
	}
	if m.Remote || m.Writer == nil || m.Reader == nil {
		t.Errorf("CreateMirror() = %+v", m)
	}
}

func TestServiceOptions(t *testing.T) {
	app := appconfig.Load()
	app.FeePerPeriod = "45,50"
	app.FeePolicy = services.FeePooled

	opts, err := ServiceOptions(app)
	if err != nil {
		t.Fatalf("ServiceOptions() error = %v", err)
	}
	if opts.Fee.Cents != 4550 {
		t.Errorf("Fee = %d, want 4550", opts.Fee.Cents)
	}
	if _, ok := opts.Policy.(services.PooledFee); !ok {
		t.Errorf("Policy = %T, want PooledFee", opts.Policy)
	}

	app.FeePolicy = "progressive"
	if _, err := ServiceOptions(app); err == nil {
		t.Error("ServiceOptions(unknown policy) error = nil")
	}
}
