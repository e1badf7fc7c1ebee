package api

import "errors"

// Kind tags the outcome of a mutating call.
type Kind int

const (
	// Ok carries the response value.
	Ok Kind = iota
	// Rejected means the backend judged the answer incomplete; Advice says how to improve it.
	Rejected
	// Failed is any other failure; Message is user-facing.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Ok:
		return "ok"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of a call whose failures the caller must tell apart.
type Result[T any] struct {
	Kind    Kind
	Value   T
	Advice  string
	Message string
	Err     error
}

func OK[T any](v T) Result[T] {
	return Result[T]{Kind: Ok, Value: v}
}

// Classify turns an error into a Rejected or Failed result.
func Classify[T any](err error) Result[T] {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Rejected() {
		advice := apiErr.Agent.Instructions
		if advice == "" {
			advice = DefaultAdvice
		}
		return Result[T]{Kind: Rejected, Advice: advice, Err: err}
	}
	return Result[T]{Kind: Failed, Message: Message(err), Err: err}
}
