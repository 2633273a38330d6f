package service

import (
	"context"
	"fmt"

	"github.com/TPSMaidscc/chat-audit/internal/analytics"
	"github.com/TPSMaidscc/chat-audit/internal/config"
	"github.com/TPSMaidscc/chat-audit/internal/export"
	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// AnalyzeDelays runs both response-latency passes for one department.
func (s *AuditService) AnalyzeDelays(ctx context.Context, department string, upload bool, dateOverride string) (models.DelaysResult, error) {
	profile, err := s.profile(department)
	if err != nil {
		return models.DelaysResult{}, err
	}
	date := s.analysisDate(dateOverride)

	events, err := s.Source.FetchEvents(ctx, profile.ViewName, date)
	if err != nil {
		return models.DelaysResult{}, err
	}
	if upload && len(events) > 0 {
		s.snapshotEvents(profile, date, events)
	}
	return s.DelaysFromEvents(profile, date, events, upload)
}

// DelaysFromEvents computes first and subsequent response latencies plus the
// intervention and handling percentages from an already-loaded table.
func (s *AuditService) DelaysFromEvents(profile config.DepartmentProfile, date string, events []models.MessageEvent, upload bool) (models.DelaysResult, error) {
	if len(events) == 0 {
		s.Logger.Warn().Str("department", profile.Name).Str("date", date).Msg("no data rows")
		return models.DelaysResult{
			Department:   profile.Name,
			AnalysisDate: date,
			Status:       StatusNoData,
		}, ErrNoData
	}

	norm := analytics.Normalize(events)
	convs := analytics.Conversations(norm)

	first := analytics.ResponseLatencies(convs, profile.SkillFilter, analytics.FirstResponse, s.Logger)
	subsequent := analytics.ResponseLatencies(convs, profile.SkillFilter, analytics.SubsequentResponse, s.Logger)
	agentPct := analytics.AgentInterventionPercentage(norm)
	handlingPct := analytics.BotHandlingPercentage(convs, profile.SkillFilter)

	s.Logger.Info().
		Str("department", profile.Name).
		Int("first_responses", len(first)).
		Int("subsequent_responses", len(subsequent)).
		Float64("agent_intervention_pct", agentPct).
		Float64("handling_pct", handlingPct).
		Msg("delays analysis done")

	result := models.DelaysResult{
		Department:   profile.Name,
		AnalysisDate: date,
		Status:       StatusSuccess,
		Summary: models.DelaysSummary{
			FirstResponse:      analytics.SummarizeLatencies(first),
			SubsequentResponse: analytics.SummarizeLatencies(subsequent),
			AgentIntervention: models.PercentBlock{
				Percentage: agentPct,
				Formatted:  fmt.Sprintf("%.2f%%", agentPct),
			},
			Handling: models.PercentBlock{
				Percentage: handlingPct,
				Formatted:  fmt.Sprintf("%.2f%%", handlingPct),
			},
		},
		FirstResponses:      first,
		SubsequentResponses: subsequent,
		DataCounts: models.DelaysDataCounts{
			TotalConversations:  len(convs),
			FirstResponses:      len(first),
			SubsequentResponses: len(subsequent),
		},
	}

	if upload {
		firstPath := s.outputPath("delays_first_response", profile.OutputStem, date, "csv")
		subsequentPath := s.outputPath("delays_subsequent_response", profile.OutputStem, date, "csv")
		uploaded := true
		if err := export.WriteLatencyCSV(firstPath, first, "First Response"); err != nil {
			s.Logger.Warn().Err(err).Str("department", profile.Name).Msg("first response upload failed")
			uploaded = false
		}
		if err := export.WriteLatencyCSV(subsequentPath, subsequent, "Non initial Response"); err != nil {
			s.Logger.Warn().Err(err).Str("department", profile.Name).Msg("subsequent response upload failed")
			uploaded = false
		}
		if uploaded {
			result.Files = map[string]string{
				"first_response":      firstPath,
				"subsequent_response": subsequentPath,
			}
			result.Uploaded = true
		}
	}
	return result, nil
}
