package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// ResponsePolicy selects which qualifying responses the scanner emits.
type ResponsePolicy int

const (
	// FirstResponse keeps only the earliest qualifying bot response per
	// conversation.
	FirstResponse ResponsePolicy = iota
	// SubsequentResponse consumes the first qualifying response silently and
	// emits every later qualifying bot response against a fresh anchor.
	SubsequentResponse
)

// ResponseLatencies runs the per-conversation latency state machine over a
// normalized batch. The scan covers normal messages, transfers and private
// system messages; the anchor is set by the first consumer message and
// reset by transfers and private system messages. Negative latencies are
// retained and logged, not discarded. Output is bot-only records filtered
// by the optional keyword list and sorted by latency descending.
func ResponseLatencies(convs []Conversation, keywords []string, policy ResponsePolicy, log zerolog.Logger) []models.ResponseLatencyRecord {
	var out []models.ResponseLatencyRecord

	for _, conv := range convs {
		scan := scanState{}
		for _, ev := range conv.Events {
			if !latencyRelevant(ev) {
				continue
			}
			rec, emitted, done := scan.step(ev, policy)
			if emitted {
				rec.ConversationID = conv.ID
				if rec.LatencySeconds < 0 {
					log.Warn().
						Str("conversation_id", conv.ID).
						Str("message_id", rec.MessageID).
						Float64("latency_seconds", rec.LatencySeconds).
						Msg("negative response time retained")
				}
				out = append(out, rec)
			}
			if done {
				break
			}
		}
	}

	out = filterByKeywords(out, keywords)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LatencySeconds > out[j].LatencySeconds
	})
	return out
}

func latencyRelevant(ev models.MessageEvent) bool {
	if ev.Type == models.TypeNormalMessage || ev.Type == models.TypeTransfer {
		return true
	}
	return ev.Type == models.TypePrivateMessage && ev.Sender == models.SenderSystem
}

// scanState is the per-conversation mutable state: anchor time plus the
// first-response flag. It is a local value per conversation.
type scanState struct {
	anchorSet     bool
	anchor        time.Time
	firstRecorded bool
}

func (s *scanState) step(ev models.MessageEvent, policy ResponsePolicy) (models.ResponseLatencyRecord, bool, bool) {
	switch {
	case ev.Sender == models.SenderConsumer && !s.anchorSet:
		s.anchorSet = true
		s.anchor = ev.SentTime

	case ev.Type == models.TypeTransfer && s.anchorSet:
		s.anchor = ev.SentTime

	case ev.Sender == models.SenderSystem && ev.Type == models.TypePrivateMessage && s.anchorSet:
		s.anchor = ev.SentTime

	case isResponder(ev.Sender) && s.anchorSet:
		if policy == FirstResponse {
			rec := s.buildRecord(ev)
			if isBotLabel(rec.Sender) {
				s.firstRecorded = true
				return rec, true, true
			}
			return models.ResponseLatencyRecord{}, false, false
		}

		// subsequent-response policy: the first qualifying response consumes
		// the anchor without emitting; later ones emit bot records and clear
		// the anchor so the next consumer message starts a fresh measurement.
		if !s.firstRecorded {
			s.firstRecorded = true
			s.anchorSet = false
			return models.ResponseLatencyRecord{}, false, false
		}
		rec := s.buildRecord(ev)
		if isBotLabel(rec.Sender) {
			s.anchorSet = false
			return rec, true, false
		}
	}
	return models.ResponseLatencyRecord{}, false, false
}

func (s *scanState) buildRecord(ev models.MessageEvent) models.ResponseLatencyRecord {
	skill := strings.ToLower(strings.TrimSpace(ev.Skill))
	return models.ResponseLatencyRecord{
		Sender:         senderLabel(ev, skill),
		LatencySeconds: round2(ev.SentTime.Sub(s.anchor).Seconds()),
		MessageID:      ev.MessageID,
		Skill:          skill,
		SentTime:       ev.SentTime,
	}
}

func isResponder(role models.SenderRole) bool {
	return role == models.SenderBot || role == models.SenderAgent || role == models.SenderSystem
}

func senderLabel(ev models.MessageEvent, skill string) string {
	switch ev.Sender {
	case models.SenderBot:
		return "BOT_" + skill
	case models.SenderAgent:
		if ev.AgentName == "" {
			return "Unknown_Agent"
		}
		return ev.AgentName
	default:
		return "System"
	}
}

func isBotLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), "bot")
}

func filterByKeywords(records []models.ResponseLatencyRecord, keywords []string) []models.ResponseLatencyRecord {
	if len(keywords) == 0 {
		return records
	}
	out := records[:0]
	for _, rec := range records {
		label := strings.ToLower(rec.Sender)
		for _, kw := range keywords {
			if strings.Contains(label, strings.ToLower(kw)) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
