package analytics

import (
	"github.com/TPSMaidscc/chat-audit/internal/models"
)

type RepetitionResult struct {
	Records              []models.RepetitionRecord
	ChatsWithRepetitions int
	TotalChats           int
	Percentage           float64
}

// DetectRepetitions finds bot messages repeated verbatim within a
// conversation, scoped to the department's skill filter. A conversation
// counts toward TotalChats when at least one of its messages matches the
// filter, whether or not a repetition was found; the result is invariant
// to input row order within a conversation.
func DetectRepetitions(convs []Conversation, filters []string) RepetitionResult {
	res := RepetitionResult{}
	withReps := map[string]bool{}

	for _, conv := range convs {
		var eligible []models.MessageEvent
		for _, ev := range conv.Events {
			if ev.Sender != models.SenderBot || ev.Type != models.TypeNormalMessage {
				continue
			}
			if !SkillMatches(filters, ev.Skill) {
				continue
			}
			eligible = append(eligible, ev)
		}
		if len(eligible) == 0 {
			continue
		}

		counts := map[string]int{}
		first := map[string]models.MessageEvent{}
		var order []string
		for _, ev := range eligible {
			if counts[ev.Text] == 0 {
				first[ev.Text] = ev
				order = append(order, ev.Text)
			}
			counts[ev.Text]++
		}
		for _, text := range order {
			if counts[text] < 2 {
				continue
			}
			ev := first[text]
			res.Records = append(res.Records, models.RepetitionRecord{
				ConversationID:  conv.ID,
				MessageID:       ev.MessageID,
				Message:         text,
				RepetitionCount: counts[text],
				Skill:           ev.Skill,
			})
			withReps[conv.ID] = true
		}
	}

	for _, conv := range convs {
		if ConversationHasSkill(filters, conv) {
			res.TotalChats++
		}
	}
	res.ChatsWithRepetitions = len(withReps)
	if res.TotalChats > 0 {
		res.Percentage = round2(float64(res.ChatsWithRepetitions) / float64(res.TotalChats) * 100)
	}
	return res
}
