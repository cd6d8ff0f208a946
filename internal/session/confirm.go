package session

import "context"

// Confirmer asks the user whether to submit with unanswered questions.
type Confirmer interface {
	ConfirmSubmit(ctx context.Context, answered, total int) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, answered, total int) (bool, error)

func (f ConfirmFunc) ConfirmSubmit(ctx context.Context, answered, total int) (bool, error) {
	return f(ctx, answered, total)
}

// Confirmed is a Confirmer for callers that already asked.
var Confirmed Confirmer = ConfirmFunc(func(context.Context, int, int) (bool, error) {
	return true, nil
})
