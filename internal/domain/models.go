package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID identifies a question or option. The backend sends integers but the client treats ids
// as opaque, so both JSON numbers and strings are accepted.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as numbers so the backend sees the type it issued.
func (id ID) MarshalJSON() ([]byte, error) {
	if id != "" {
		if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
			return []byte(id), nil
		}
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// QuestionType tags the shape of a question and of its answer.
type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionSingle   QuestionType = "mcq"
	QuestionMultiple QuestionType = "checkbox"
)

// Option is a selectable choice of a single- or multi-choice question.
type Option struct {
	ID    ID     `json:"id"`
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
	Order int    `json:"order,omitempty"`
}

// Question is immutable once fetched.
type Question struct {
	ID       ID           `json:"id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Required bool         `json:"required"`
	Category *string      `json:"category,omitempty"`
	Parent   *ID          `json:"parent,omitempty"`
	Options  []Option     `json:"options,omitempty"`
	Children []Question   `json:"children,omitempty"`
}

// CategoryLabel returns the category or "" when the question is uncategorised.
func (q Question) CategoryLabel() string {
	if q.Category == nil {
		return ""
	}
	return *q.Category
}

// HasOption reports whether id names one of the question's options.
func (q Question) HasOption(id ID) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Progress is a server-authoritative completion snapshot.
type Progress struct {
	Answered   int                 `json:"answered"`
	Total      int                 `json:"total"`
	Percent    int                 `json:"percent"`
	ByCategory map[string]Progress `json:"by_category,omitempty"`
}

// SelfAnalysis is the aggregated trait read model for the current user.
type SelfAnalysis struct {
	CombinedPositives map[string]float64 `json:"combined_positives"`
	CombinedNegatives map[string]float64 `json:"combined_negatives"`
	Quote             string             `json:"quote,omitempty"`
}

// Overview pairs overall progress with the trait aggregate.
type Overview struct {
	Progress     Progress     `json:"progress"`
	SelfAnalysis SelfAnalysis `json:"self_analysis"`
}

// Step is what the backend returns after fetching or answering a question.
type Step struct {
	NextQuestion *Question `json:"next_question"`
	Complete     bool      `json:"complete"`
	Progress     Progress  `json:"progress"`
}

// AgentFeedback is the backend's verdict on a free-text answer.
// "instrcutions" is the field name the backend emits.
type AgentFeedback struct {
	IsAnswerOK   bool   `json:"is_answer_ok"`
	Instructions string `json:"instrcutions"`
}

func (f *AgentFeedback) UnmarshalJSON(data []byte) error {
	var raw struct {
		IsAnswerOK   *bool   `json:"is_answer_ok"`
		Instrcutions *string `json:"instrcutions"`
		Instructions *string `json:"instructions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = AgentFeedback{IsAnswerOK: true}
	if raw.IsAnswerOK != nil {
		f.IsAnswerOK = *raw.IsAnswerOK
	}
	switch {
	case raw.Instrcutions != nil:
		f.Instructions = *raw.Instrcutions
	case raw.Instructions != nil:
		f.Instructions = *raw.Instructions
	}
	return nil
}

// Tokens is the pair issued by login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Registration is the body returned when an account is created.
type Registration struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Tokens
}

// Credentials are the three values persisted in the session store. Each may be empty.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Username     string
}

// Authenticated reports whether an access credential is present.
func (c Credentials) Authenticated() bool {
	return c.AccessToken != ""
}

// Draft is the not-yet-submitted answer to the current question.
type Draft struct {
	Text     string
	Selected *ID
	Multi    map[ID]struct{}
}

// MultiIDs returns the multi-choice selection in the question's option order, followed by
// any ids the question does not list.
func (d Draft) MultiIDs(q *Question) []ID {
	ids := make([]ID, 0, len(d.Multi))
	seen := make(map[ID]struct{}, len(d.Multi))
	if q != nil {
		for _, o := range q.Options {
			if _, ok := d.Multi[o.ID]; ok {
				ids = append(ids, o.ID)
				seen[o.ID] = struct{}{}
			}
		}
	}
	for id := range d.Multi {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// WordCount counts whitespace-delimited tokens; all-whitespace text has zero words.
func WordCount(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return len(strings.Fields(text))
}
