package http

import (
	"sort"

	"bloom-client/internal/app"
	"bloom-client/internal/domain"
)

type optionView struct {
	ID      domain.ID `json:"id"`
	Label   string    `json:"label"`
	Checked bool      `json:"checked"`
}

type questionView struct {
	ID       domain.ID           `json:"id"`
	Text     string              `json:"text"`
	Type     domain.QuestionType `json:"type"`
	Required bool                `json:"required"`
	Category string              `json:"category,omitempty"`
	Options  []optionView        `json:"options,omitempty"`
}

type traitView struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type categoryView struct {
	Name     string `json:"name"`
	Answered int    `json:"answered"`
	Total    int    `json:"total"`
	Percent  int    `json:"percent"`
}

type overviewView struct {
	Categories []categoryView `json:"categories,omitempty"`
	Positives  []traitView    `json:"positives,omitempty"`
	Negatives  []traitView    `json:"negatives,omitempty"`
	Quote      string         `json:"quote,omitempty"`
}

// surveyView is what the survey page renders and what the live endpoint sends as "state".
type surveyView struct {
	Loading    bool            `json:"loading"`
	Submitting bool            `json:"submitting"`
	Error      string          `json:"error,omitempty"`
	Advice     string          `json:"advice,omitempty"`
	Complete   bool            `json:"complete"`
	Question   *questionView   `json:"question,omitempty"`
	Text       string          `json:"text"`
	Progress   domain.Progress `json:"progress"`
	Overview   *overviewView   `json:"overview,omitempty"`
	CanSubmit  bool            `json:"canSubmit"`
	CanSkip    bool            `json:"canSkip"`
	WordCount  int             `json:"wordCount"`
	CharCount  int             `json:"charCount"`
	Celebrate  bool            `json:"celebrate,omitempty"`

	CSRF     string `json:"-"`
	Username string `json:"-"`
}

func newSurveyView(c *app.SurveyController) surveyView {
	s := c.Snapshot()
	v := surveyView{
		Loading:    s.Loading,
		Submitting: s.Submitting,
		Error:      s.Error,
		Advice:     s.Advice,
		Complete:   s.Complete,
		Text:       s.Draft.Text,
		Progress:   s.Progress,
		CanSubmit:  app.CanSubmit(s.Question, s.Draft) && !s.Submitting,
		CanSkip:    s.Question != nil && !s.Question.Required && !s.Submitting,
		WordCount:  domain.WordCount(s.Draft.Text),
		CharCount:  len([]rune(s.Draft.Text)),
	}
	if s.Question != nil {
		v.Question = newQuestionView(s.Question, s.Draft)
	}
	if s.Overview != nil {
		o := newOverviewView(*s.Overview)
		v.Overview = &o
	}
	return v
}

func newQuestionView(q *domain.Question, d domain.Draft) *questionView {
	qv := &questionView{
		ID:       q.ID,
		Text:     q.Text,
		Type:     q.Type,
		Required: q.Required,
		Category: q.CategoryLabel(),
	}
	for _, o := range q.Options {
		checked := false
		switch q.Type {
		case domain.QuestionSingle:
			checked = d.Selected != nil && *d.Selected == o.ID
		case domain.QuestionMultiple:
			_, checked = d.Multi[o.ID]
		}
		qv.Options = append(qv.Options, optionView{ID: o.ID, Label: o.Label, Checked: checked})
	}
	return qv
}

func newOverviewView(o domain.Overview) overviewView {
	v := overviewView{
		Positives: sortedTraits(o.SelfAnalysis.CombinedPositives),
		Negatives: sortedTraits(o.SelfAnalysis.CombinedNegatives),
		Quote:     o.SelfAnalysis.Quote,
	}
	for name, p := range o.Progress.ByCategory {
		v.Categories = append(v.Categories, categoryView{Name: name, Answered: p.Answered, Total: p.Total, Percent: p.Percent})
	}
	sort.Slice(v.Categories, func(i, j int) bool { return v.Categories[i].Name < v.Categories[j].Name })
	return v
}

// sortedTraits orders by score, highest first, then by name.
func sortedTraits(m map[string]float64) []traitView {
	out := make([]traitView, 0, len(m))
	for name, score := range m {
		out = append(out, traitView{Name: name, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}
