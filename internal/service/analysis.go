package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/TPSMaidscc/chat-audit/internal/analytics"
	"github.com/TPSMaidscc/chat-audit/internal/config"
	"github.com/TPSMaidscc/chat-audit/internal/export"
	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// AnalyzeDepartment fetches the department's export and runs the repetition
// pass. An empty export returns a zero-count result with ErrNoData.
func (s *AuditService) AnalyzeDepartment(ctx context.Context, department string, upload bool, dateOverride string) (models.AnalysisResult, error) {
	profile, err := s.profile(department)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	date := s.analysisDate(dateOverride)

	events, err := s.Source.FetchEvents(ctx, profile.ViewName, date)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	if upload && len(events) > 0 {
		s.snapshotEvents(profile, date, events)
	}
	return s.AnalyzeEvents(profile, date, events, upload)
}

// AnalyzeEvents runs the repetition pass over an already-loaded table; the
// upload endpoint and the combined audit reuse it.
func (s *AuditService) AnalyzeEvents(profile config.DepartmentProfile, date string, events []models.MessageEvent, upload bool) (models.AnalysisResult, error) {
	if len(events) == 0 {
		s.Logger.Warn().Str("department", profile.Name).Str("date", date).Msg("no data rows")
		return models.AnalysisResult{
			Department:   profile.Name,
			AnalysisDate: date,
			Status:       StatusNoData,
			Repetitions:  []models.RepetitionRecord{},
			Summary: models.AnalysisSummary{
				Message:                   "NO DATA FOUND",
				PercentageWithRepetitions: "0.00%",
			},
		}, ErrNoData
	}

	convs := analytics.Conversations(analytics.Normalize(events))
	rep := analytics.DetectRepetitions(convs, profile.SkillFilter)
	return s.repetitionResult(profile, date, rep, upload), nil
}

// repetitionResult packages a finished repetition scan; the combined audit
// calls it directly so the scan runs once per fetch.
func (s *AuditService) repetitionResult(profile config.DepartmentProfile, date string, rep analytics.RepetitionResult, upload bool) models.AnalysisResult {
	s.Logger.Info().
		Str("department", profile.Name).
		Int("repetitions", len(rep.Records)).
		Int("chats_with_repetitions", rep.ChatsWithRepetitions).
		Int("total_chats", rep.TotalChats).
		Msg("repetition analysis done")

	message := "NO REPETITIONS FOUND"
	if len(rep.Records) > 0 {
		message = "TOTAL REPETITIONS"
	}
	result := models.AnalysisResult{
		Department:                   profile.Name,
		AnalysisDate:                 date,
		Status:                       StatusSuccess,
		TotalConversations:           rep.TotalChats,
		ConversationsWithRepetitions: rep.ChatsWithRepetitions,
		RepetitionPercentage:         rep.Percentage,
		Repetitions:                  rep.Records,
		Summary: models.AnalysisSummary{
			Message:                   message,
			PercentageWithRepetitions: fmt.Sprintf("%.2f%%", rep.Percentage),
			TotalChats:                rep.TotalChats,
			ChatsWithRepetitions:      rep.ChatsWithRepetitions,
		},
	}

	if upload {
		path := s.outputPath("repetitions", profile.OutputStem, date, "csv")
		if err := export.WriteRepetitionsCSV(path, rep); err != nil {
			s.Logger.Warn().Err(err).Str("department", profile.Name).Msg("result upload failed")
		} else {
			result.OutputFile = path
			result.Uploaded = true
		}
	}
	return result
}

// AnalyzeAll runs every configured department, isolating failures so one
// broken export does not abort the rest.
func (s *AuditService) AnalyzeAll(ctx context.Context, upload bool, dateOverride string) models.BatchResult {
	departments := config.Departments()
	batch := models.BatchResult{
		TotalDepartments: len(departments),
		Results:          []models.AnalysisResult{},
		Errors:           []models.DepartmentError{},
		SummaryStatistics: models.BatchStatistics{
			DepartmentBreakdown: map[string]models.BatchDepartment{},
		},
	}

	for _, profile := range departments {
		result, err := s.AnalyzeDepartment(ctx, profile.Name, upload, dateOverride)
		if err != nil && !errors.Is(err, ErrNoData) {
			s.Logger.Error().Err(err).Str("department", profile.Name).Msg("department analysis failed")
			batch.FailedAnalyses++
			batch.Errors = append(batch.Errors, models.DepartmentError{
				Department: profile.Name,
				Error:      err.Error(),
				Message:    fmt.Sprintf("Analysis failed for %s", profile.Name),
			})
			continue
		}
		batch.SuccessfulAnalyses++
		batch.Results = append(batch.Results, result)
		batch.SummaryStatistics.TotalConversations += result.TotalConversations
		batch.SummaryStatistics.TotalWithRepetitions += result.ConversationsWithRepetitions
		batch.SummaryStatistics.DepartmentBreakdown[profile.Name] = models.BatchDepartment{
			Percentage:      result.RepetitionPercentage,
			Conversations:   result.TotalConversations,
			WithRepetitions: result.ConversationsWithRepetitions,
		}
	}

	if batch.SummaryStatistics.TotalConversations > 0 {
		pct := float64(batch.SummaryStatistics.TotalWithRepetitions) /
			float64(batch.SummaryStatistics.TotalConversations) * 100
		batch.SummaryStatistics.OverallPercentage = round2(pct)
	}
	s.Logger.Info().
		Int("successful", batch.SuccessfulAnalyses).
		Int("failed", batch.FailedAnalyses).
		Msg("batch analysis completed")
	return batch
}
