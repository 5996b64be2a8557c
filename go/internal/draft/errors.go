package draft

import "errors"

// RejectionReason is the machine-readable code attached to an expected,
// non-exceptional pick rejection. Rejections are returned as values so the
// gateway can map them to precise HTTP statuses; they are never wrapped into
// the error path.
type RejectionReason string

const (
	RejectDraftNotActive        RejectionReason = "DRAFT_NOT_ACTIVE"
	RejectNotYourTurn           RejectionReason = "NOT_YOUR_TURN"
	RejectDeadlinePassed        RejectionReason = "DEADLINE_PASSED"
	RejectPlayerAlreadyPicked   RejectionReason = "PLAYER_ALREADY_PICKED"
	RejectAnotherPickInProgress RejectionReason = "ANOTHER_PICK_IN_PROGRESS"
)

// Retryable reports whether a client may usefully retry after a short
// backoff. Only lock contention qualifies; the logical rejections will keep
// failing until the draft state changes.
func (r RejectionReason) Retryable() bool {
	return r == RejectAnotherPickInProgress
}

// Rejection carries a reason code plus a human-readable message.
type Rejection struct {
	Reason  RejectionReason `json:"reason"`
	Message string          `json:"message"`
}

func reject(reason RejectionReason, msg string) *Rejection {
	return &Rejection{Reason: reason, Message: msg}
}

// ErrStaleState signals that the admission commit detected a snapshot the
// cache served was behind the durable log. The cached entry has been
// invalidated; the request should be retried against the reconstructed state.
var ErrStaleState = errors.New("draft state was stale, retry")
