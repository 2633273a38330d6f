package analytics

import (
	"strings"

	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// SkillMatches reports whether the observed skill matches any filter term.
// Matching is case-insensitive substring containment in either direction:
// a term matches when it contains the observed skill or the observed skill
// contains it. An empty filter set matches everything.
func SkillMatches(filters []string, skill string) bool {
	if len(filters) == 0 {
		return true
	}
	observed := strings.ToLower(strings.TrimSpace(skill))
	if observed == "" {
		return false
	}
	for _, f := range filters {
		term := strings.ToLower(strings.TrimSpace(f))
		if term == "" {
			continue
		}
		if strings.Contains(observed, term) || strings.Contains(term, observed) {
			return true
		}
	}
	return false
}

// ConversationHasSkill reports whether any event in the conversation carries
// a skill matching the filter set.
func ConversationHasSkill(filters []string, conv Conversation) bool {
	if len(filters) == 0 {
		return true
	}
	for _, ev := range conv.Events {
		if SkillMatches(filters, ev.Skill) {
			return true
		}
	}
	return false
}

// senderIsBotOrAgent is shared by the segmenter and metrics.
func senderIsBotOrAgent(role models.SenderRole) bool {
	return role == models.SenderBot || role == models.SenderAgent
}
