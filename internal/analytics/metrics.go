package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// outlierThresholdSeconds splits latencies for summary statistics: central
// tendency is computed below it, max and the overflow count over everything.
const outlierThresholdSeconds = 240

// AgentInterventionPercentage is the share of agent messages among all
// bot+agent normal messages in the batch. Deliberately department-wide, not
// skill-filtered.
func AgentInterventionPercentage(events []models.MessageEvent) float64 {
	var botCount, agentCount int
	for _, ev := range events {
		if ev.Type != models.TypeNormalMessage {
			continue
		}
		switch ev.Sender {
		case models.SenderBot:
			botCount++
		case models.SenderAgent:
			agentCount++
		}
	}
	total := botCount + agentCount
	if total == 0 {
		return 0
	}
	return round2(float64(agentCount) / float64(total) * 100)
}

// BotHandlingPercentage is the share of skill-matching conversations where
// no message carries an agent name.
func BotHandlingPercentage(convs []Conversation, filters []string) float64 {
	var withSkill, fullyBot int
	for _, conv := range convs {
		if !ConversationHasSkill(filters, conv) {
			continue
		}
		withSkill++
		agentSeen := false
		for _, ev := range conv.Events {
			if ev.AgentName != "" {
				agentSeen = true
				break
			}
		}
		if !agentSeen {
			fullyBot++
		}
	}
	if withSkill == 0 {
		return 0
	}
	return round2(float64(fullyBot) / float64(withSkill) * 100)
}

// SummarizeLatencies computes the dual-scope statistics for one latency
// table: avg/median/min over the sub-threshold partition only, max and the
// formatted display over the full set.
func SummarizeLatencies(records []models.ResponseLatencyRecord) models.LatencyStats {
	stats := models.LatencyStats{
		Count:                    len(records),
		AvgResponseTimeFormatted: FormatResponseTime(nil),
	}
	if len(records) == 0 {
		return stats
	}

	all := make([]float64, 0, len(records))
	var under []float64
	for _, rec := range records {
		all = append(all, rec.LatencySeconds)
		if rec.LatencySeconds < outlierThresholdSeconds {
			under = append(under, rec.LatencySeconds)
		} else {
			stats.Count4Plus++
		}
	}
	stats.CountUnder4Min = len(under)
	stats.AvgResponseTimeFormatted = FormatResponseTime(all)

	if len(under) > 0 {
		stats.AvgResponseTime = round2(mean(under))
		stats.MedianResponseTime = round2(median(under))
		stats.MinResponseTime = round2(min64(under))
	}
	stats.MaxResponseTime = round2(max64(all))
	return stats
}

// FormatResponseTime renders the average of the full latency set as MM:SS
// with the count of responses over four minutes.
func FormatResponseTime(latencies []float64) string {
	if len(latencies) == 0 {
		return "00:00 (0 msg > 4 Min)"
	}
	// Floor division keeps the seconds component in [0, 60) when clock skew
	// drives the average negative.
	total := int(math.Floor(mean(latencies)))
	minutes := total / 60
	seconds := total % 60
	if seconds < 0 {
		minutes--
		seconds += 60
	}
	over := 0
	for _, v := range latencies {
		if v > outlierThresholdSeconds {
			over++
		}
	}
	return fmt.Sprintf("%02d:%02d (%d msg > 4 Min)", minutes, seconds, over)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func min64(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func max64(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
