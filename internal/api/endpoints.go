package api

import (
	"context"

	"bloom-client/internal/domain"
)

const (
	pathRegister      = "/accounts/register/"
	pathLogin         = "/accounts/login/"
	pathNextQuestion  = "/self-analysis/answers/next/"
	pathAnswerAndNext = "/self-analysis/answers/answer-and-next/"
	pathProgress      = "/self-analysis/answers/progress/"
	pathOverview      = "/self-analysis/self-analysis/overview/"
	pathRecalc        = "/self-analysis/self-analysis/recalc/"
)

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AnswerBody is the answer-and-next request. Answer is a trimmed string for text questions,
// {"option": id} for single choice and {"options": [ids]} for multi choice.
type AnswerBody struct {
	Question domain.ID `json:"question"`
	Answer   any       `json:"answer"`
}

// SingleAnswer is the single-choice answer shape. A nil Option is sent as null.
type SingleAnswer struct {
	Option *domain.ID `json:"option"`
}

// MultiAnswer is the multi-choice answer shape.
type MultiAnswer struct {
	Options []domain.ID `json:"options"`
}

func (c *Client) Register(ctx context.Context, username, password string) (domain.Registration, error) {
	var out domain.Registration
	err := c.Post(ctx, pathRegister, credentialsBody{Username: username, Password: password}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, username, password string) (domain.Tokens, error) {
	var out domain.Tokens
	err := c.Post(ctx, pathLogin, credentialsBody{Username: username, Password: password}, &out)
	return out, err
}

// NextQuestion returns the first unanswered question, or a complete step.
func (c *Client) NextQuestion(ctx context.Context) (domain.Step, error) {
	var out domain.Step
	err := c.Get(ctx, pathNextQuestion, &out)
	return out, err
}

// AnswerAndNext stores an answer and returns the following step.
func (c *Client) AnswerAndNext(ctx context.Context, body AnswerBody) Result[domain.Step] {
	var out domain.Step
	if err := c.Post(ctx, pathAnswerAndNext, body, &out); err != nil {
		return Classify[domain.Step](err)
	}
	return OK(out)
}

func (c *Client) Progress(ctx context.Context) (domain.Progress, error) {
	var out domain.Progress
	err := c.Get(ctx, pathProgress, &out)
	return out, err
}

func (c *Client) Overview(ctx context.Context) (domain.Overview, error) {
	var out domain.Overview
	err := c.Get(ctx, pathOverview, &out)
	return out, err
}

// Recalc asks the backend to recompute the aggregate; the acknowledgement body is ignored.
func (c *Client) Recalc(ctx context.Context) error {
	return c.Post(ctx, pathRecalc, struct{}{}, nil)
}
