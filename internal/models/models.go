package models

import (
	"strings"
	"time"
)

type SenderRole string

const (
	SenderConsumer SenderRole = "consumer"
	SenderBot      SenderRole = "bot"
	SenderAgent    SenderRole = "agent"
	SenderSystem   SenderRole = "system"
)

func ParseSenderRole(value string) SenderRole {
	return SenderRole(strings.ToLower(strings.TrimSpace(value)))
}

type MessageType string

const (
	TypeNormalMessage  MessageType = "normal_message"
	TypeTransfer       MessageType = "transfer"
	TypePrivateMessage MessageType = "private_message"
	TypeOther          MessageType = "other"
)

func ParseMessageType(value string) MessageType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "normal message", "normal_message":
		return TypeNormalMessage
	case "transfer":
		return TypeTransfer
	case "private message", "private_message":
		return TypePrivateMessage
	default:
		return TypeOther
	}
}

// MessageEvent is one row of the raw BI export. Immutable once loaded;
// the whole batch is discarded after analysis.
type MessageEvent struct {
	ConversationID string      `json:"conversation_id"`
	SentTime       time.Time   `json:"sent_time"`
	Sender         SenderRole  `json:"sender_role"`
	Type           MessageType `json:"message_type"`
	Skill          string      `json:"skill,omitempty"`
	Text           string      `json:"text,omitempty"`
	MessageID      string      `json:"message_id,omitempty"`
	AgentName      string      `json:"agent_name,omitempty"`
	CustomerName   string      `json:"customer_name,omitempty"`
}

type RepetitionRecord struct {
	ConversationID  string `json:"conversation_id"`
	MessageID       string `json:"message_id"`
	Message         string `json:"message"`
	RepetitionCount int    `json:"repetition_count"`
	Skill           string `json:"skill,omitempty"`
}

type ResponseLatencyRecord struct {
	ConversationID string    `json:"conversation_id"`
	Sender         string    `json:"sender"`
	LatencySeconds float64   `json:"latency_seconds"`
	MessageID      string    `json:"message_id"`
	Skill          string    `json:"skill"`
	SentTime       time.Time `json:"sent_time"`
}

// ConversationSegment is the per-conversation aggregate the segmenter
// produces: uniqued agent/bot labels and transcripts joined with a fixed
// separator.
type ConversationSegment struct {
	ConversationID string `json:"conversation_id"`
	CustomerName   string `json:"customer_name"`
	LastSkill      string `json:"last_skill"`
	AgentName      string `json:"agent_name"`
	Messages       string `json:"messages"`
}

type AnalysisSummary struct {
	Message                   string `json:"message"`
	PercentageWithRepetitions string `json:"percentage_with_repetitions"`
	TotalChats                int    `json:"total_chats"`
	ChatsWithRepetitions      int    `json:"chats_with_repetitions"`
}

type AnalysisResult struct {
	Department                   string             `json:"department"`
	AnalysisDate                 string             `json:"analysis_date"`
	Status                       string             `json:"status"`
	TotalConversations           int                `json:"total_conversations"`
	ConversationsWithRepetitions int                `json:"conversations_with_repetitions"`
	RepetitionPercentage         float64            `json:"repetition_percentage"`
	Repetitions                  []RepetitionRecord `json:"repetitions"`
	Summary                      AnalysisSummary    `json:"summary"`
	OutputFile                   string             `json:"output_file,omitempty"`
	Uploaded                     bool               `json:"uploaded"`
}

// LatencyStats carries the dual-scope summary: avg/median/min over the
// sub-4-minute partition, max and the formatted display over the full set.
type LatencyStats struct {
	Count                    int     `json:"count"`
	CountUnder4Min           int     `json:"count_under_4min"`
	Count4Plus               int     `json:"count_4plus"`
	AvgResponseTime          float64 `json:"avg_response_time"`
	AvgResponseTimeFormatted string  `json:"avg_response_time_formatted"`
	MedianResponseTime       float64 `json:"median_response_time"`
	MaxResponseTime          float64 `json:"max_response_time"`
	MinResponseTime          float64 `json:"min_response_time"`
}

type PercentBlock struct {
	Percentage float64 `json:"percentage"`
	Formatted  string  `json:"formatted"`
}

type DelaysSummary struct {
	FirstResponse      LatencyStats `json:"first_response"`
	SubsequentResponse LatencyStats `json:"subsequent_response"`
	AgentIntervention  PercentBlock `json:"agent_intervention"`
	Handling           PercentBlock `json:"handling"`
}

type DelaysDataCounts struct {
	TotalConversations  int `json:"total_conversations"`
	FirstResponses      int `json:"first_responses"`
	SubsequentResponses int `json:"subsequent_responses"`
}

type DelaysResult struct {
	Department          string                  `json:"department"`
	AnalysisDate        string                  `json:"analysis_date"`
	Status              string                  `json:"status"`
	Summary             DelaysSummary           `json:"summary"`
	FirstResponses      []ResponseLatencyRecord `json:"first_responses,omitempty"`
	SubsequentResponses []ResponseLatencyRecord `json:"subsequent_responses,omitempty"`
	Files               map[string]string       `json:"files,omitempty"`
	DataCounts          DelaysDataCounts        `json:"data_counts"`
	Uploaded            bool                    `json:"uploaded"`
}

// AuditResult is the combined analysis computed from a single fetched table.
type AuditResult struct {
	Department   string                `json:"department"`
	AnalysisDate string                `json:"analysis_date"`
	Status       string                `json:"status"`
	Repetitions  AnalysisResult        `json:"repetitions"`
	Delays       DelaysResult          `json:"delays"`
	Transcripts  []ConversationSegment `json:"transcripts"`
	Uploaded     bool                  `json:"uploaded"`
}

type DepartmentError struct {
	Department string `json:"department"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type BatchDepartment struct {
	Percentage      float64 `json:"percentage"`
	Conversations   int     `json:"conversations"`
	WithRepetitions int     `json:"with_repetitions"`
}

type BatchStatistics struct {
	TotalConversations   int                        `json:"total_conversations"`
	TotalWithRepetitions int                        `json:"total_with_repetitions"`
	OverallPercentage    float64                    `json:"overall_percentage"`
	DepartmentBreakdown  map[string]BatchDepartment `json:"department_breakdown"`
}

type BatchResult struct {
	TotalDepartments   int               `json:"total_departments"`
	SuccessfulAnalyses int               `json:"successful_analyses"`
	FailedAnalyses     int               `json:"failed_analyses"`
	Results            []AnalysisResult  `json:"results"`
	Errors             []DepartmentError `json:"errors"`
	SummaryStatistics  BatchStatistics   `json:"summary_statistics"`
}
