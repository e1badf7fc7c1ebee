package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"bloom-client/internal/api"
	"bloom-client/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// SurveyAPI is the slice of the backend the controller drives.
type SurveyAPI interface {
	NextQuestion(ctx context.Context) (domain.Step, error)
	AnswerAndNext(ctx context.Context, body api.AnswerBody) api.Result[domain.Step]
	Overview(ctx context.Context) (domain.Overview, error)
	Recalc(ctx context.Context) error
}

// CredentialSource reports the stored access token.
type CredentialSource interface {
	AccessToken(ctx context.Context) string
}

// Outcome reports what a Submit or Skip did.
type Outcome int

const (
	// NoOp means the call was ignored (no question, or a required question on Skip).
	NoOp Outcome = iota
	// Advanced means the answer was stored and the next step adopted.
	Advanced
	// NeedsRevision means the backend returned advice; the question did not change.
	NeedsRevision
	// Failed means the error field was set.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case NoOp:
		return "noop"
	case Advanced:
		return "advanced"
	case NeedsRevision:
		return "needs_revision"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is everything the presentation layer renders.
type State struct {
	Loading    bool
	Submitting bool
	Error      string
	Question   *domain.Question
	Complete   bool
	Progress   domain.Progress
	Overview   *domain.Overview
	Advice     string
	Draft      domain.Draft
	// Redirect is set when no credential was present; the consumer must send the user to login.
	Redirect bool
}

// SurveyController drives the one-question-at-a-time loop for a single consumer.
// State is guarded by mu, which is never held across a backend call. Overlapping mutations
// are not fenced: the last response to arrive wins.
type SurveyController struct {
	api   SurveyAPI
	creds CredentialSource
	log   *zap.Logger

	onComplete func(domain.Progress)
	overviews  singleflight.Group

	mu    sync.Mutex
	state State
}

func NewSurveyController(client SurveyAPI, creds CredentialSource, log *zap.Logger) *SurveyController {
	if log == nil {
		log = zap.NewNop()
	}
	return &SurveyController{api: client, creds: creds, log: log}
}

// OnComplete registers fn to run once each time a submission moves the survey into the
// complete state.
func (c *SurveyController) OnComplete(fn func(domain.Progress)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = fn
}

// Snapshot returns a copy of the current state.
func (c *SurveyController) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Draft = copyDraft(c.state.Draft)
	return s
}

// Initialize loads the next question and the overview concurrently. Without an access
// credential it sets Redirect and returns domain.ErrLoginRequired without any request.
func (c *SurveyController) Initialize(ctx context.Context) error {
	if c.creds.AccessToken(ctx) == "" {
		c.mu.Lock()
		c.state.Redirect = true
		c.state.Loading = false
		c.mu.Unlock()
		return domain.ErrLoginRequired
	}

	c.mu.Lock()
	c.state.Redirect = false
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()

	var (
		step     domain.Step
		overview domain.Overview
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		step, err = c.api.NextQuestion(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		overview, err = c.api.Overview(gctx)
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		c.state.Error = api.Message(err)
		c.log.Warn("survey load failed", zap.Error(err))
		return fmt.Errorf("load survey: %w", err)
	}
	c.state.Question = step.NextQuestion
	c.state.Complete = step.Complete
	c.state.Progress = step.Progress
	c.state.Overview = &overview
	c.resetDraftLocked()
	return nil
}

// CanSubmit reports whether the current draft may be submitted.
func (c *SurveyController) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CanSubmit(c.state.Question, c.state.Draft)
}

// WordCount counts whitespace-delimited words in the text draft.
func (c *SurveyController) WordCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.WordCount(c.state.Draft.Text)
}

// CharCount is the untrimmed length of the text draft in characters.
func (c *SurveyController) CharCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return utf8.RuneCountInString(c.state.Draft.Text)
}

// SetText replaces the text draft and clears any advice.
func (c *SurveyController) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Draft.Text = text
	c.state.Advice = ""
}

// SelectOption sets the single-choice selection; nil clears it.
func (c *SurveyController) SelectOption(id *domain.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == nil {
		c.state.Draft.Selected = nil
	} else {
		v := *id
		c.state.Draft.Selected = &v
	}
	c.state.Advice = ""
}

// ToggleOption adds or removes id from the multi-choice selection.
func (c *SurveyController) ToggleOption(id domain.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Draft.Multi == nil {
		c.state.Draft.Multi = make(map[domain.ID]struct{})
	}
	if _, ok := c.state.Draft.Multi[id]; ok {
		delete(c.state.Draft.Multi, id)
	} else {
		c.state.Draft.Multi[id] = struct{}{}
	}
	c.state.Advice = ""
}

// SetOptions replaces the multi-choice selection.
func (c *SurveyController) SetOptions(ids []domain.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	multi := make(map[domain.ID]struct{}, len(ids))
	for _, id := range ids {
		multi[id] = struct{}{}
	}
	c.state.Draft.Multi = multi
	c.state.Advice = ""
}

// DismissError clears the error banner.
func (c *SurveyController) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
}

// Submit sends the draft for the current question.
func (c *SurveyController) Submit(ctx context.Context) Outcome {
	c.mu.Lock()
	q := c.state.Question
	if q == nil {
		c.mu.Unlock()
		return NoOp
	}
	body := api.AnswerBody{Question: q.ID, Answer: answerPayload(q, c.state.Draft)}
	c.beginMutationLocked()
	c.mu.Unlock()

	return c.send(ctx, body)
}

// Skip sends an empty answer for the current question unless it is required.
func (c *SurveyController) Skip(ctx context.Context) Outcome {
	c.mu.Lock()
	q := c.state.Question
	if q == nil || q.Required {
		c.mu.Unlock()
		return NoOp
	}
	body := api.AnswerBody{Question: q.ID, Answer: ""}
	c.beginMutationLocked()
	c.mu.Unlock()

	return c.send(ctx, body)
}

// Recalculate asks the backend to recompute the aggregate and replaces the overview.
func (c *SurveyController) Recalculate(ctx context.Context) error {
	c.mu.Lock()
	c.state.Submitting = true
	c.state.Error = ""
	c.mu.Unlock()
	defer c.endMutation()

	if err := c.api.Recalc(ctx); err != nil {
		c.fail("recalculate", err)
		return fmt.Errorf("recalculate: %w", err)
	}
	if err := c.refreshOverview(ctx); err != nil {
		c.fail("refresh overview", err)
		return fmt.Errorf("refresh overview: %w", err)
	}
	return nil
}

func (c *SurveyController) send(ctx context.Context, body api.AnswerBody) Outcome {
	defer c.endMutation()

	res := c.api.AnswerAndNext(ctx, body)
	if ctx.Err() != nil {
		return Failed
	}

	switch res.Kind {
	case api.Ok:
		c.advance(res.Value)
		if err := c.refreshOverview(ctx); err != nil {
			c.log.Debug("overview refresh after answer failed", zap.Error(err))
		}
		return Advanced
	case api.Rejected:
		c.mu.Lock()
		c.state.Advice = res.Advice
		c.mu.Unlock()
		return NeedsRevision
	default:
		c.mu.Lock()
		c.state.Error = res.Message
		c.mu.Unlock()
		c.log.Warn("answer submission failed", zap.String("question", body.Question.String()), zap.Error(res.Err))
		return Failed
	}
}

// advance adopts a step and fires the completion hook on a false to true transition.
func (c *SurveyController) advance(step domain.Step) {
	c.mu.Lock()
	wasComplete := c.state.Complete
	c.state.Question = step.NextQuestion
	c.state.Complete = step.Complete
	c.state.Progress = step.Progress
	c.resetDraftLocked()
	hook := c.onComplete
	c.mu.Unlock()

	if step.Complete && !wasComplete && hook != nil {
		hook(step.Progress)
	}
}

// refreshOverview refetches the overview and replaces it wholesale. Concurrent refreshes share
// one request.
func (c *SurveyController) refreshOverview(ctx context.Context) error {
	v, err, _ := c.overviews.Do("overview", func() (interface{}, error) {
		return c.api.Overview(ctx)
	})
	if err != nil {
		return err
	}
	overview := v.(domain.Overview)

	c.mu.Lock()
	c.state.Overview = &overview
	c.mu.Unlock()
	return nil
}

func (c *SurveyController) beginMutationLocked() {
	c.state.Submitting = true
	c.state.Error = ""
	c.state.Advice = ""
}

func (c *SurveyController) endMutation() {
	c.mu.Lock()
	c.state.Submitting = false
	c.mu.Unlock()
}

func (c *SurveyController) fail(op string, err error) {
	c.mu.Lock()
	c.state.Error = api.Message(err)
	c.mu.Unlock()
	c.log.Warn(op+" failed", zap.Error(err))
}

func (c *SurveyController) resetDraftLocked() {
	c.state.Draft = domain.Draft{}
	c.state.Advice = ""
}

// CanSubmit applies the submit-eligibility rules to a question and draft.
func CanSubmit(q *domain.Question, d domain.Draft) bool {
	if q == nil {
		return false
	}
	if !q.Required {
		return true
	}
	switch q.Type {
	case domain.QuestionText:
		return strings.TrimSpace(d.Text) != ""
	case domain.QuestionSingle:
		return d.Selected != nil
	case domain.QuestionMultiple:
		return len(d.Multi) > 0
	default:
		return true
	}
}

func answerPayload(q *domain.Question, d domain.Draft) any {
	switch q.Type {
	case domain.QuestionSingle:
		return api.SingleAnswer{Option: d.Selected}
	case domain.QuestionMultiple:
		return api.MultiAnswer{Options: d.MultiIDs(q)}
	default:
		return strings.TrimSpace(d.Text)
	}
}

func copyDraft(d domain.Draft) domain.Draft {
	out := domain.Draft{Text: d.Text}
	if d.Selected != nil {
		v := *d.Selected
		out.Selected = &v
	}
	if d.Multi != nil {
		out.Multi = make(map[domain.ID]struct{}, len(d.Multi))
		for id := range d.Multi {
			out.Multi[id] = struct{}{}
		}
	}
	return out
}
