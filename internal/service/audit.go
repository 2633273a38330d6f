package service

import (
	"context"
	"errors"

	"github.com/TPSMaidscc/chat-audit/internal/analytics"
	"github.com/TPSMaidscc/chat-audit/internal/export"
	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// Audit runs the combined pass for one department from a single fetch:
// repetitions, both latency tables, transcripts and the workbook export.
func (s *AuditService) Audit(ctx context.Context, department string, upload bool, dateOverride string) (models.AuditResult, error) {
	profile, err := s.profile(department)
	if err != nil {
		return models.AuditResult{}, err
	}
	date := s.analysisDate(dateOverride)

	events, err := s.Source.FetchEvents(ctx, profile.ViewName, date)
	if err != nil {
		return models.AuditResult{}, err
	}
	if len(events) == 0 {
		s.Logger.Warn().Str("department", profile.Name).Str("date", date).Msg("no data rows")
		return models.AuditResult{
			Department:   profile.Name,
			AnalysisDate: date,
			Status:       StatusNoData,
		}, ErrNoData
	}

	convs := analytics.Conversations(analytics.Normalize(events))
	rep := analytics.DetectRepetitions(convs, profile.SkillFilter)
	segments := analytics.SegmentConversations(convs, profile.SkillFilter)

	// Sinks are handled once at the workbook level, so the sub-analyses run
	// without their per-file uploads.
	analysis := s.repetitionResult(profile, date, rep, false)
	delays, err := s.DelaysFromEvents(profile, date, events, false)
	if err != nil && !errors.Is(err, ErrNoData) {
		return models.AuditResult{}, err
	}

	result := models.AuditResult{
		Department:   profile.Name,
		AnalysisDate: date,
		Status:       StatusSuccess,
		Repetitions:  analysis,
		Delays:       delays,
		Transcripts:  segments,
	}

	if upload {
		s.snapshotEvents(profile, date, events)
		path := s.outputPath("audit", profile.OutputStem, date, "xlsx")
		in := export.WorkbookInput{
			Department:  profile.Name,
			Date:        date,
			Repetitions: rep,
			First:       delays.FirstResponses,
			Subsequent:  delays.SubsequentResponses,
			Segments:    segments,
			Summary:     result,
		}
		if err := export.WriteWorkbook(path, in); err != nil {
			s.Logger.Warn().Err(err).Str("department", profile.Name).Msg("workbook upload failed")
		} else {
			result.Uploaded = true
		}
	}
	return result, nil
}
