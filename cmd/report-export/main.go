package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/export/sheets"
	"fintrack/internal/log"
	"fintrack/internal/store/sqlite"
)

// report-export is a one-shot job: it aggregates every user's spending for
// the requested month and appends one row per user to the report sheet.
// Run it from cron shortly after month end.
func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentSheets})
	log.SetDefault(logger)

	var yearFlag, monthFlag int
	flag.IntVar(&yearFlag, "year", 0, "report year (default: previous month's year)")
	flag.IntVar(&monthFlag, "month", 0, "report month 1-12 (default: previous month)")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	// Default to the month that just ended.
	prev := time.Now().AddDate(0, -1, 0)
	year, month := prev.Year(), prev.Month()
	if yearFlag != 0 {
		year = yearFlag
	}
	if monthFlag != 0 {
		if monthFlag < 1 || monthFlag > 12 {
			logger.Error("Invalid month flag", "month", monthFlag)
			os.Exit(1)
		}
		month = time.Month(monthFlag)
	}

	repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite backend",
			log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reporter, err := sheets.NewReporter(ctx, sheets.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize report sheet client", log.FieldError, err.Error())
		os.Exit(1)
	}

	count, err := reporter.Export(ctx, repo, year, month)
	if err != nil {
		logger.Error("Report export failed", log.FieldError, err.Error(),
			"year", year, "month", int(month))
		os.Exit(1)
	}
	logger.Info("Report export complete",
		"year", year, "month", int(month), "users", count)
}
