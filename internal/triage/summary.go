package triage

import (
	"encoding/json"
	"strings"
)

// DailySummary is the human-facing digest of one run. It is rendered, never stored.
type DailySummary struct {
	SummaryDate        string              `json:"summary_date"`
	CriticalEmails     []CriticalEmail     `json:"critical_emails"`
	SuggestedResponses []SuggestedResponse `json:"suggested_responses"`
	OtherNotes         string              `json:"other_notes,omitempty"`
}

// CriticalEmail flags one message that needs attention.
type CriticalEmail struct {
	EmailID           string     `json:"email_id"`
	ThreadID          string     `json:"thread_id,omitempty"`
	Sender            string     `json:"sender,omitempty"`
	Subject           string     `json:"subject,omitempty"`
	Summary           string     `json:"summary"`
	ReasonCritical    string     `json:"reason_critical,omitempty"`
	RecommendedAction string     `json:"recommended_action,omitempty"`
	LinkedTaskIDs     StringList `json:"linked_task_ids,omitempty"`
}

// SuggestedResponse is a reply draft for one message.
type SuggestedResponse struct {
	EmailID      string     `json:"email_id"`
	DraftOutline StringList `json:"draft_outline,omitempty"`
	FullDraft    string     `json:"full_draft,omitempty"`
}

// IsEmpty reports whether the summary carries nothing worth showing.
func (s DailySummary) IsEmpty() bool {
	return len(s.CriticalEmails) == 0 && len(s.SuggestedResponses) == 0 && strings.TrimSpace(s.OtherNotes) == ""
}

// StringList accepts either a JSON array of strings or one string, which
// is split into lines. Models are inconsistent about list fields.
type StringList []string

func (f *StringList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*f = list
		return nil
	}
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = nil
	if s == nil {
		return nil
	}
	for _, line := range strings.Split(*s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			*f = append(*f, line)
		}
	}
	return nil
}
