package analytics

import (
	"testing"
	"time"

	"github.com/TPSMaidscc/chat-audit/internal/models"
)

func ev(conv string, offset int, sender models.SenderRole, text string) models.MessageEvent {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	return models.MessageEvent{
		ConversationID: conv,
		SentTime:       base.Add(time.Duration(offset) * time.Second),
		Sender:         sender,
		Type:           models.TypeNormalMessage,
		Text:           text,
	}
}

func TestNormalizeSortsAndDeduplicates(t *testing.T) {
	in := []models.MessageEvent{
		ev("c2", 10, models.SenderBot, "late"),
		ev("c1", 5, models.SenderConsumer, "second"),
		ev("c1", 0, models.SenderConsumer, "first"),
		ev("c1", 5, models.SenderBot, "duplicate slot"),
	}
	out := Normalize(in)
	if len(out) != 3 {
		t.Fatalf("expected 3 events, got %d", len(out))
	}
	if out[0].Text != "first" || out[1].Text != "second" || out[2].Text != "late" {
		t.Fatalf("unexpected order: %+v", out)
	}
	// First occurrence wins the duplicate slot.
	if out[1].Sender != models.SenderConsumer {
		t.Fatalf("expected first duplicate kept, got %+v", out[1])
	}
	// The input slice stays untouched.
	if in[0].ConversationID != "c2" {
		t.Fatalf("input was modified: %+v", in[0])
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := []models.MessageEvent{
		ev("c1", 0, models.SenderConsumer, "a"),
		ev("c1", 5, models.SenderBot, "b"),
	}
	once := Normalize(in)
	twice := Normalize(once)
	if len(once) != len(twice) {
		t.Fatalf("length changed: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("event %d changed: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestConversationsGroupsInTableOrder(t *testing.T) {
	in := Normalize([]models.MessageEvent{
		ev("c2", 0, models.SenderConsumer, "x"),
		ev("c1", 0, models.SenderConsumer, "y"),
		ev("c1", 5, models.SenderBot, "z"),
	})
	convs := Conversations(in)
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ID != "c1" || len(convs[0].Events) != 2 {
		t.Fatalf("unexpected first conversation: %+v", convs[0])
	}
	if convs[1].ID != "c2" {
		t.Fatalf("unexpected second conversation: %+v", convs[1])
	}
}
