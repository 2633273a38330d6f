package analytics

import (
	"strings"
	"unicode/utf8"

	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// skillNameLengthLimit turns [IDENTIFIER] marking off once a skill name this
// long shows up, on the assumption the bot has moved past the target flow.
// TODO: confirm the 23-character cutoff with product.
const skillNameLengthLimit = 23

// segmentSeparator joins the transcripts of one conversation's segments.
const segmentSeparator = "\n\n--- CONVERSATION SEPARATOR ---\n\n"

type segment struct {
	agent     string
	lastSkill string
	lines     []string
}

// SegmentConversations splits each skill-matching conversation into
// contiguous sender runs and aggregates the surviving segments (those with
// at least one consumer line) per conversation. With no filter terms there
// is nothing to audit and the output is empty.
func SegmentConversations(convs []Conversation, filters []string) []models.ConversationSegment {
	if len(filters) == 0 {
		return nil
	}

	var out []models.ConversationSegment
	for _, conv := range convs {
		if !hasTargetSkill(conv, filters) {
			continue
		}
		customer := ""
		if len(conv.Events) > 0 {
			customer = conv.Events[0].CustomerName
		}

		var normal []models.MessageEvent
		for _, ev := range conv.Events {
			if ev.Type == models.TypeNormalMessage {
				normal = append(normal, ev)
			}
		}

		agg := models.ConversationSegment{ConversationID: conv.ID, CustomerName: customer}
		var agents []string
		var transcripts []string
		for _, seg := range segmentConversation(normal, filters) {
			text := strings.Join(seg.lines, "\n")
			if !strings.Contains(text, "Consumer:") {
				continue
			}
			if len(transcripts) == 0 {
				agg.LastSkill = seg.lastSkill
			}
			if !containsString(agents, seg.agent) {
				agents = append(agents, seg.agent)
			}
			transcripts = append(transcripts, text)
		}
		if len(transcripts) == 0 {
			continue
		}
		agg.AgentName = strings.Join(agents, ", ")
		agg.Messages = strings.Join(transcripts, segmentSeparator)
		out = append(out, agg)
	}
	return out
}

// segmentConversation walks the normal-message rows of one conversation and
// flushes the accumulated lines whenever the responding agent/bot label
// changes. [IDENTIFIER] marking turns on when the first observed skill
// belongs to the filter set and off once a longer skill name appears.
func segmentConversation(events []models.MessageEvent, filters []string) []segment {
	var segments []segment
	var lines []string
	currentAgent := ""
	firstResponderSeen := false
	lastSkill := ""
	lastSkillSet := false
	marking := false

	for _, ev := range events {
		if !lastSkillSet {
			if SkillMatches(filters, ev.Skill) {
				marking = true
			}
		} else if marking && utf8.RuneCountInString(ev.Skill) > skillNameLengthLimit {
			marking = false
		}

		if senderIsBotOrAgent(ev.Sender) {
			label := "BOT"
			if ev.Sender == models.SenderAgent {
				label = ev.AgentName
			}
			if !firstResponderSeen {
				currentAgent = label
				firstResponderSeen = true
			} else if label != currentAgent {
				if len(lines) > 0 {
					segments = append(segments, segment{agent: currentAgent, lastSkill: lastSkill, lines: lines})
					lines = nil
				}
				currentAgent = label
			}
			lastSkill = ev.Skill
			lastSkillSet = true
		}

		role := capitalizeRole(ev.Sender)
		if marking && senderIsBotOrAgent(ev.Sender) {
			lines = append(lines, "[IDENTIFIER] "+role+": "+ev.Text)
		} else {
			lines = append(lines, role+": "+ev.Text)
		}
	}
	if len(lines) > 0 {
		segments = append(segments, segment{agent: currentAgent, lastSkill: lastSkill, lines: lines})
	}
	return segments
}

func hasTargetSkill(conv Conversation, filters []string) bool {
	for _, ev := range conv.Events {
		if SkillMatches(filters, ev.Skill) {
			return true
		}
	}
	return false
}

func capitalizeRole(role models.SenderRole) string {
	s := strings.ToLower(string(role))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
