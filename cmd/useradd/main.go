// Command useradd creates or updates a sign-in user in the SQLite store.
//
//	useradd -email ana@example.com -role admin
//
// The password is read from CUOTAS_PASSWORD or, when unset, from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"cuotas/internal/auth"
	"cuotas/internal/cli"
	"cuotas/internal/core"
	applog "cuotas/internal/log"
	"cuotas/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentAuth)

	email := flag.String("email", "", "user email")
	role := flag.String("role", string(core.RoleViewer), "admin or consulta")
	dbPath := flag.String("db", envOr("SQLITE_DB_PATH", "./data/cuotas.db"), "SQLite database path")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: useradd -email <email> [-role admin|consulta] [-db path]")
		os.Exit(2)
	}

	password := os.Getenv("CUOTAS_PASSWORD")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			logger.Error("Failed to read password", applog.FieldError, err)
			os.Exit(1)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	repo, err := storage.NewSQLiteRepository(*dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", *dbPath)
		os.Exit(1)
	}
	defer repo.Close()

	r := core.Role(strings.ToLower(*role))
	if !r.Valid() {
		logger.Error("Unknown role", "role", *role)
		os.Exit(2)
	}

	u, err := auth.NewLocalProvider(repo).SetPassword(context.Background(), *email, password, r)
	if err != nil {
		logger.Error("Failed to save user", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("User saved", applog.FieldUserID, u.ID, "email", u.Email, applog.FieldRole, string(u.Role))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
