// Command ingest seeds the review queue from local files: an email batch
// (json, jsonl, csv or xlsx) and optionally a contact master csv.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ashwinpo/email-review-workshop/internal/config"
	"github.com/ashwinpo/email-review-workshop/internal/db"
	"github.com/ashwinpo/email-review-workshop/internal/domain"
	"github.com/ashwinpo/email-review-workshop/internal/extraction"
	"github.com/ashwinpo/email-review-workshop/internal/ingestion"
	"github.com/ashwinpo/email-review-workshop/internal/repository"

	"github.com/lmittmann/tint"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	emailsPath := flag.String("emails", "", "email batch file (.json, .jsonl, .csv or .xlsx)")
	contactsPath := flag.String("contacts", "", "contact master csv to load before ingesting")
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	if *emailsPath == "" && *contactsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *emailsPath, *contactsPath); err != nil {
		slog.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, emailsPath, contactsPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx := context.Background()
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if contactsPath != "" {
		loaded, err := loadContacts(ctx, repository.NewContactRepository(conn), contactsPath)
		if err != nil {
			return fmt.Errorf("load contact master: %w", err)
		}
		slog.Info("loaded contact master", "contacts", loaded, "file", contactsPath)
	}

	if emailsPath == "" {
		return nil
	}

	file, err := os.Open(emailsPath)
	if err != nil {
		return fmt.Errorf("open email batch: %w", err)
	}
	defer file.Close()

	emails, err := ingestion.ParseEmails(emailsPath, file)
	if err != nil {
		return fmt.Errorf("parse email batch: %w", err)
	}

	extractor := extraction.NewClient(extraction.Config{
		URL:          cfg.ExtractionURL,
		Token:        cfg.ExtractionToken,
		ClientID:     cfg.ExtractionClientID,
		ClientSecret: cfg.ExtractionClientSecret,
		TokenURL:     cfg.ExtractionTokenURL,
		Timeout:      cfg.ExtractionTimeout,
	})

	service := ingestion.NewService(repository.NewQueueRepository(conn), extractor)
	summary, err := service.Ingest(ctx, emails)
	if err != nil {
		return err
	}
	slog.Info("ingested email batch",
		"received", summary.Received,
		"queued", summary.Queued,
		"duplicates", summary.Duplicates,
		"extraction_failures", summary.ExtractionFailures,
	)
	return nil
}

// loadContacts reads a csv with columns sap_id, contact_email and
// optionally account_status.
func loadContacts(ctx context.Context, repo repository.ContactRepository, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	columns := map[string]int{}
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["sap_id"]; !ok {
		return 0, errors.New("csv needs a sap_id column")
	}

	cell := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	contacts := []domain.SAPContact{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv row: %w", err)
		}
		contact := domain.SAPContact{
			SAPID:         cell(row, "sap_id"),
			ContactEmail:  cell(row, "contact_email"),
			AccountStatus: cell(row, "account_status"),
		}
		if contact.SAPID == "" {
			continue
		}
		contacts = append(contacts, contact)
	}

	return repo.Load(ctx, contacts)
}
