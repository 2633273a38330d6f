// Package service orchestrates a department run: fetch the export, run the
// analytics passes, write the result files, assemble the API payload.
package service

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/TPSMaidscc/chat-audit/internal/analytics"
	"github.com/TPSMaidscc/chat-audit/internal/config"
	"github.com/TPSMaidscc/chat-audit/internal/export"
	"github.com/TPSMaidscc/chat-audit/internal/models"
	"github.com/TPSMaidscc/chat-audit/internal/tableau"
)

const (
	StatusSuccess = "SUCCESS"
	StatusNoData  = "NO_DATA"
	StatusError   = "ERROR"
)

// ErrNoData marks an empty upstream export. Callers still receive a
// populated zero-count result alongside it.
var ErrNoData = errors.New("no data rows for the requested date")

type AuditService struct {
	Source tableau.Source
	Cfg    *config.Config
	Logger zerolog.Logger

	// Now is swappable for tests; zero value means time.Now.
	Now func() time.Time
}

// analysisDate resolves the run date: the override when given, otherwise
// yesterday.
func (s *AuditService) analysisDate(override string) string {
	if override != "" {
		return override
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().AddDate(0, 0, -1).Format("2006-01-02")
}

func (s *AuditService) profile(department string) (config.DepartmentProfile, error) {
	return config.DepartmentByName(department)
}

func (s *AuditService) outputPath(kind, stem, date, ext string) string {
	return filepath.Join(s.Cfg.OutputDir, fmt.Sprintf("%s_%s_%s.%s", kind, stem, date, ext))
}

// snapshotEvents saves the normalized table next to the run's temp data so a
// run can be replayed through the upload endpoint.
func (s *AuditService) snapshotEvents(profile config.DepartmentProfile, date string, events []models.MessageEvent) {
	path := filepath.Join(s.Cfg.TempDir, fmt.Sprintf("cleaned_%s_%s.csv", profile.OutputStem, date))
	if err := export.WriteEventsCSV(path, analytics.Normalize(events)); err != nil {
		s.Logger.Warn().Err(err).Str("department", profile.Name).Msg("snapshot write failed")
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
