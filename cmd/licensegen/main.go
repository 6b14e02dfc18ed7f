// Command licensegen is the offline administrative tool for license keys:
// generate a key for a customer email, list the local issuing history, or
// export it as CSV/XLSX for bookkeeping.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"zapcatalog/internal/config"
	"zapcatalog/internal/exporter"
	"zapcatalog/internal/license"
	"zapcatalog/internal/store"
	"zapcatalog/pkg/contracts/domain"
)

func main() {
	email := flag.String("email", "", "customer email the key is bound to")
	name := flag.String("name", "", "customer name for the issuing history")
	days := flag.Int("days", 365, "validity in days")
	lifetime := flag.Bool("lifetime", false, "issue a lifetime key instead of -days")
	list := flag.Bool("list", false, "print the issuing history and exit")
	export := flag.String("export", "", "export the history: csv | xlsx")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	st, err := store.New(cfg.Paths.DataDir, slog.Default())
	if err != nil {
		slog.Error("failed to open store", "error", err, "dir", cfg.Paths.DataDir)
		os.Exit(1)
	}

	switch {
	case *list:
		printHistory(st)
	case *export != "":
		exportHistory(st, exporter.NewHistoryExporter(cfg.Paths.ExportDir, slog.Default()), *export)
	default:
		issue(st, cfg, *email, *name, *days, *lifetime)
	}
}

func issue(st *store.Store, cfg *config.Config, email, name string, days int, lifetime bool) {
	if email == "" {
		fmt.Fprintln(os.Stderr, "licensegen: -email is required")
		flag.Usage()
		os.Exit(2)
	}
	if lifetime {
		days = license.LifetimeDays
	}

	authority := license.NewAuthority(cfg.Security.SecretSalt, slog.Default())
	token, err := authority.Issue(email, days)
	if err != nil {
		slog.Error("failed to issue key", "error", err, "email", email)
		os.Exit(1)
	}

	record := domain.LicenseHistoryRecord{
		Name:         name,
		Email:        email,
		Token:        token,
		ValidityDays: days,
		IssuedAt:     time.Now().UTC(),
	}
	if err := st.AppendHistory(record); err != nil {
		slog.Error("failed to record issued key", "error", err)
		os.Exit(1)
	}

	expiry, _ := license.TokenExpiry(token)
	fmt.Printf("License key for %s\n", email)
	fmt.Printf("  Key:     %s\n", token)
	fmt.Printf("  Expires: %s\n", expiry.Format("2006-01-02"))
}

func printHistory(st *store.Store) {
	records, err := st.History()
	if err != nil {
		slog.Error("failed to load history", "error", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("No keys issued yet.")
		return
	}
	for _, r := range records {
		fmt.Printf("%s  %-30s  %3dd  %s\n",
			r.IssuedAt.Format("2006-01-02"), r.Email, r.ValidityDays, r.Token)
	}
}

func exportHistory(st *store.Store, exp *exporter.HistoryExporter, format string) {
	records, err := st.History()
	if err != nil {
		slog.Error("failed to load history", "error", err)
		os.Exit(1)
	}

	name := "licenses_" + time.Now().UTC().Format("20060102")
	var path string
	switch format {
	case "csv":
		path, err = exp.WriteCSVFile(name+".csv", records)
	case "xlsx":
		path, err = exp.WriteXLSXFile(name+".xlsx", records)
	default:
		fmt.Fprintf(os.Stderr, "licensegen: unknown export format %q (want csv or xlsx)\n", format)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("failed to export history", "error", err, "format", format)
		os.Exit(1)
	}
	fmt.Printf("Exported %d records to %s\n", len(records), path)
}
