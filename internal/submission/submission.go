package submission

import (
	"context"

	"github.com/google/uuid"

	"github.com/tendant/weapon-detection-client/pkg/detection"
)

// Submission is the pending outcome of one Submit call
type Submission struct {
	Token uuid.UUID

	done   chan struct{}
	result *detection.Result
	err    error
}

func newSubmission(token uuid.UUID) *Submission {
	return &Submission{Token: token, done: make(chan struct{})}
}

func (s *Submission) complete(result *detection.Result, err error) {
	s.result = result
	s.err = err
	close(s.done)
}

// Done is closed once the outcome is known
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the submission completes or ctx is done
func (s *Submission) Wait(ctx context.Context) (*detection.Result, error) {
	select {
	case <-s.done:
		return s.result, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
