package analytics

import (
	"testing"
	"time"

	"github.com/TPSMaidscc/chat-audit/internal/models"
)

func botMsg(conv string, offset int, skill, text, id string) models.MessageEvent {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	return models.MessageEvent{
		ConversationID: conv,
		SentTime:       base.Add(time.Duration(offset) * time.Second),
		Sender:         models.SenderBot,
		Type:           models.TypeNormalMessage,
		Skill:          skill,
		Text:           text,
		MessageID:      id,
	}
}

func TestDetectRepetitionsBasic(t *testing.T) {
	convs := Conversations(Normalize([]models.MessageEvent{
		botMsg("c1", 0, "GPT_Doctors", "Hi", "m1"),
		botMsg("c1", 5, "GPT_Doctors", "Hi", "m2"),
		botMsg("c1", 10, "GPT_Doctors", "Bye", "m3"),
	}))
	res := DetectRepetitions(convs, []string{"GPT_Doctors"})
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 repetition, got %d", len(res.Records))
	}
	rec := res.Records[0]
	if rec.Message != "Hi" || rec.RepetitionCount != 2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	// The first occurrence supplies the record metadata.
	if rec.MessageID != "m1" {
		t.Fatalf("expected first occurrence id, got %s", rec.MessageID)
	}
	if res.ChatsWithRepetitions != 1 || res.TotalChats != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.Percentage != 100 {
		t.Fatalf("expected 100%%, got %v", res.Percentage)
	}
}

func TestDetectRepetitionsSkillScoped(t *testing.T) {
	convs := Conversations(Normalize([]models.MessageEvent{
		botMsg("c1", 0, "other_skill", "Hi", "m1"),
		botMsg("c1", 5, "other_skill", "Hi", "m2"),
	}))
	res := DetectRepetitions(convs, []string{"GPT_Doctors"})
	if len(res.Records) != 0 {
		t.Fatalf("off-filter repetitions counted: %+v", res.Records)
	}
	if res.TotalChats != 0 {
		t.Fatalf("conversation without matching skill counted: %d", res.TotalChats)
	}
}

func TestDetectRepetitionsDenominator(t *testing.T) {
	convs := Conversations(Normalize([]models.MessageEvent{
		botMsg("c1", 0, "GPT_Doctors", "Hi", "m1"),
		botMsg("c1", 5, "GPT_Doctors", "Hi", "m2"),
		botMsg("c2", 0, "GPT_Doctors", "unique", "m3"),
	}))
	res := DetectRepetitions(convs, []string{"GPT_Doctors"})
	if res.TotalChats != 2 || res.ChatsWithRepetitions != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.Percentage != 50 {
		t.Fatalf("expected 50%%, got %v", res.Percentage)
	}
}

func TestDetectRepetitionsOrderInvariant(t *testing.T) {
	forward := []models.MessageEvent{
		botMsg("c1", 0, "GPT_Doctors", "Hi", "m1"),
		botMsg("c1", 5, "GPT_Doctors", "Hi", "m2"),
	}
	reversed := []models.MessageEvent{forward[1], forward[0]}

	a := DetectRepetitions(Conversations(Normalize(forward)), []string{"GPT_Doctors"})
	b := DetectRepetitions(Conversations(Normalize(reversed)), []string{"GPT_Doctors"})
	if len(a.Records) != 1 || len(b.Records) != 1 {
		t.Fatalf("expected one record each, got %d and %d", len(a.Records), len(b.Records))
	}
	if a.Records[0] != b.Records[0] {
		t.Fatalf("records differ across input order: %+v vs %+v", a.Records[0], b.Records[0])
	}
}

func TestDetectRepetitionsEmptyFilterCountsAll(t *testing.T) {
	convs := Conversations(Normalize([]models.MessageEvent{
		botMsg("c1", 0, "", "anything", "m1"),
		botMsg("c2", 0, "whatever", "more", "m2"),
	}))
	res := DetectRepetitions(convs, nil)
	if res.TotalChats != 2 {
		t.Fatalf("empty filter should count every conversation, got %d", res.TotalChats)
	}
}
