package http

import (
	"errors"
	"net/http"

	"bloom-client/internal/app"
	"bloom-client/internal/domain"
	"bloom-client/internal/session"
	"github.com/gin-gonic/gin"
)

// surveyRequest is one controller lifetime bound to a single HTTP exchange.
type surveyRequest struct {
	sess      *session.Session
	ctrl      *app.SurveyController
	celebrate bool
}

// load initialises a controller for the request. It returns false once it has already
// responded with a login redirect.
func (h *Handler) load(c *gin.Context) (*surveyRequest, bool) {
	sess := h.session(c)
	sr := &surveyRequest{sess: sess, ctrl: h.controller(sess)}
	sr.ctrl.OnComplete(func(domain.Progress) { sr.celebrate = true })

	if err := sr.ctrl.Initialize(c.Request.Context()); errors.Is(err, domain.ErrLoginRequired) {
		redirect(c, LoginRedirect(c.Request.URL))
		return nil, false
	}
	return sr, true
}

func (h *Handler) ShowSurvey(c *gin.Context) {
	sr, ok := h.load(c)
	if !ok {
		return
	}
	h.renderSurvey(c, sr, "")
}

// Answer applies the posted draft to the current question and submits it.
func (h *Handler) Answer(c *gin.Context) {
	sr, ok := h.load(c)
	if !ok {
		return
	}
	q := sr.ctrl.Snapshot().Question
	if !postedFor(c, q) {
		h.renderSurvey(c, sr, "")
		return
	}

	applyDraft(c, sr.ctrl, q)
	if !sr.ctrl.CanSubmit() {
		h.renderSurvey(c, sr, "This question needs an answer before you can continue.")
		return
	}
	sr.ctrl.Submit(c.Request.Context())
	h.renderSurvey(c, sr, "")
}

func (h *Handler) Skip(c *gin.Context) {
	sr, ok := h.load(c)
	if !ok {
		return
	}
	q := sr.ctrl.Snapshot().Question
	if !postedFor(c, q) {
		h.renderSurvey(c, sr, "")
		return
	}
	if sr.ctrl.Skip(c.Request.Context()) == app.NoOp && q.Required {
		h.renderSurvey(c, sr, "This question is required and cannot be skipped.")
		return
	}
	h.renderSurvey(c, sr, "")
}

func (h *Handler) ShowOverview(c *gin.Context) {
	sr, ok := h.load(c)
	if !ok {
		return
	}
	h.renderOverview(c, sr)
}

func (h *Handler) Recalc(c *gin.Context) {
	sr, ok := h.load(c)
	if !ok {
		return
	}
	_ = sr.ctrl.Recalculate(c.Request.Context())
	h.renderOverview(c, sr)
}

func (h *Handler) renderSurvey(c *gin.Context, sr *surveyRequest, notice string) {
	v := newSurveyView(sr.ctrl)
	v.Celebrate = sr.celebrate
	v.CSRF = csrfToken(c)
	if notice != "" && v.Error == "" {
		v.Error = notice
	}
	if isHTMX(c) {
		c.HTML(http.StatusOK, "survey_panel", v)
		return
	}
	p := h.page(c, sr.sess, "Survey")
	p.Survey = v
	c.HTML(http.StatusOK, "survey.html", p)
}

func (h *Handler) renderOverview(c *gin.Context, sr *surveyRequest) {
	s := sr.ctrl.Snapshot()
	p := h.page(c, sr.sess, "Overview")
	p.Error = s.Error
	p.Progress = s.Progress
	if s.Overview != nil {
		o := newOverviewView(*s.Overview)
		p.Overview = &o
		p.Progress = s.Overview.Progress
	}
	c.HTML(http.StatusOK, "overview.html", p)
}

// postedFor reports whether the form was built for q. A stale form gets the current state back.
func postedFor(c *gin.Context, q *domain.Question) bool {
	return q != nil && c.PostForm("question") == q.ID.String()
}

func applyDraft(c *gin.Context, ctrl *app.SurveyController, q *domain.Question) {
	switch q.Type {
	case domain.QuestionSingle:
		if raw := c.PostForm("option"); raw != "" {
			id := domain.ID(raw)
			ctrl.SelectOption(&id)
		}
	case domain.QuestionMultiple:
		raw := c.PostFormArray("options")
		ids := make([]domain.ID, 0, len(raw))
		for _, r := range raw {
			ids = append(ids, domain.ID(r))
		}
		ctrl.SetOptions(ids)
	default:
		ctrl.SetText(c.PostForm("text"))
	}
}
