package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var requiredVars = map[string]string{
	"DEPOSITOR_NAME":                     "Test Depositor",
	"DEPOSITOR_EMAIL":                    "depositor@example.org",
	"REGISTRANT_NAME":                    "Test Registrant",
	"INSTITUTION_NAME":                   "Test Institution",
	"REVIEW_RESOURCE_URL_TEMPLATE":       "https://example.org/$article_doi#rev$revision-rr$running_number",
	"REVIEW_TITLE_TEMPLATE":              "Review $running_number of $article_doi",
	"AUTHOR_REPLY_RESOURCE_URL_TEMPLATE": "https://example.org/$article_doi#rev$revision-ar",
	"AUTHOR_REPLY_TITLE_TEMPLATE":        "Author reply to reviews of $article_doi",
	"DOI_TEMPLATE":                       "10.15252/rc.$year$random",
	"DOI_DB_FILE":                        "dois.db",
	"DB_FILE":                            "batch.db",
	"CROSSREF_DEPOSITION_URL":            "https://test.crossref.org/servlet/deposit",
	"CROSSREF_USERNAME":                  "user",
	"CROSSREF_PASSWORD":                  "pass",
}

func setRequiredVars(t *testing.T) {
	t.Helper()
	for name, value := range requiredVars {
		t.Setenv(name, value)
	}
	t.Setenv("ENV_FILE", "")
}

func TestLoad(t *testing.T) {
	setRequiredVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DepositorName != "Test Depositor" {
		t.Errorf("DepositorName = %q", cfg.DepositorName)
	}
	if cfg.DBFile != "batch.db" {
		t.Errorf("DBFile = %q", cfg.DBFile)
	}
	if cfg.EEBAPIURL != "" {
		t.Errorf("EEBAPIURL = %q, want empty default", cfg.EEBAPIURL)
	}
}

func TestLoadMissingVars(t *testing.T) {
	setRequiredVars(t)
	t.Setenv("DEPOSITOR_NAME", "")
	t.Setenv("CROSSREF_PASSWORD", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail with missing variables")
	}
	for _, name := range []string{"DEPOSITOR_NAME", "CROSSREF_PASSWORD"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not name %s", err, name)
		}
	}
}

func TestLoadEnvFile(t *testing.T) {
	setRequiredVars(t)
	t.Setenv("DEPOSITOR_NAME", "")

	envFile := filepath.Join(t.TempDir(), "custom.env")
	if err := os.WriteFile(envFile, []byte("DEPOSITOR_NAME=From File\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", envFile)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DepositorName != "From File" {
		t.Errorf("DepositorName = %q, want value from ENV_FILE", cfg.DepositorName)
	}
}

func TestLogger(t *testing.T) {
	t.Run("no log file discards", func(t *testing.T) {
		cfg := &Config{}
		logger, closer, err := cfg.Logger()
		if err != nil {
			t.Fatalf("Logger() error = %v", err)
		}
		defer closer()
		logger.Info("discarded")
	})

	t.Run("writes to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		cfg := &Config{LogFile: path, LogLevel: "debug"}

		logger, closer, err := cfg.Logger()
		if err != nil {
			t.Fatalf("Logger() error = %v", err)
		}
		logger.Debug("hello", slog.String("key", "value"))
		if err := closer(); err != nil {
			t.Fatal(err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "hello") {
			t.Errorf("log file %q does not contain the message", data)
		}
	})

	t.Run("bad level", func(t *testing.T) {
		cfg := &Config{LogFile: "app.log", LogLevel: "loud"}
		if _, _, err := cfg.Logger(); err == nil {
			t.Error("Logger() should reject an unknown level")
		}
	})
}
