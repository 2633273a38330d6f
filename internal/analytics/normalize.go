package analytics

import (
	"sort"

	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// Normalize returns the batch sorted by (conversation, sent time) with
// duplicate (conversation, sent time) pairs collapsed, first occurrence
// retained. The input slice is not modified. Running Normalize on already
// normalized input returns an identical table.
func Normalize(events []models.MessageEvent) []models.MessageEvent {
	sorted := make([]models.MessageEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ConversationID != sorted[j].ConversationID {
			return sorted[i].ConversationID < sorted[j].ConversationID
		}
		return sorted[i].SentTime.Before(sorted[j].SentTime)
	})

	out := sorted[:0]
	for i, ev := range sorted {
		if i > 0 && ev.ConversationID == sorted[i-1].ConversationID && ev.SentTime.Equal(sorted[i-1].SentTime) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Conversation is the ordered slice of events sharing one conversation id.
type Conversation struct {
	ID     string
	Events []models.MessageEvent
}

// Conversations groups a normalized table into per-conversation slices,
// in table order (conversation id ascending after Normalize).
func Conversations(events []models.MessageEvent) []Conversation {
	var out []Conversation
	idx := map[string]int{}
	for _, ev := range events {
		i, ok := idx[ev.ConversationID]
		if !ok {
			i = len(out)
			idx[ev.ConversationID] = i
			out = append(out, Conversation{ID: ev.ConversationID})
		}
		out[i].Events = append(out[i].Events, ev)
	}
	return out
}
