package services

import (
	"context"
	"fmt"

	"weddingplanners/api/internal/config"
	"weddingplanners/api/internal/db"
	"weddingplanners/api/internal/models"
)

const (
	maxListedCollections = 10
	maxErrorSnippet      = 50
)

// IDiagnosticsService reports on the health of the document store.
type IDiagnosticsService interface {
	Check(ctx context.Context) *models.Diagnostics
}

type diagnosticsService struct {
	store db.Store
	cfg   *config.Config
}

// NewDiagnosticsService creates a new DiagnosticsService.
func NewDiagnosticsService(store db.Store, cfg *config.Config) IDiagnosticsService {
	return &diagnosticsService{store: store, cfg: cfg}
}

// Check never fails; every problem is reported inside the result.
func (s *diagnosticsService) Check(ctx context.Context) *models.Diagnostics {
	report := &models.Diagnostics{
		Backend:          "✅ Running",
		Database:         "❌ Not Available",
		DatabaseURL:      setOrNot(s.cfg.DatabaseURL),
		DatabaseName:     setOrNot(s.cfg.DatabaseName),
		ConnectionStatus: "Not Connected",
		Collections:      []string{},
	}

	if db.IsUnavailable(s.store) {
		return report
	}

	report.Database = "✅ Available"
	report.ConnectionStatus = "Connected"

	names, err := s.store.ListCollectionNames(ctx)
	if err != nil {
		report.Database = fmt.Sprintf("⚠️  Connected but Error: %s", truncate(err.Error(), maxErrorSnippet))
		return report
	}
	if len(names) > maxListedCollections {
		names = names[:maxListedCollections]
	}
	report.Collections = append(report.Collections, names...)
	report.Database = "✅ Connected & Working"
	return report
}

func setOrNot(v string) string {
	if v != "" {
		return "✅ Set"
	}
	return "❌ Not Set"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
