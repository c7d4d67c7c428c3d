package model

import "errors"

// Sentinel errors for the approval workflow. Services wrap these with
// fmt.Errorf("%w: ...") and handlers map them to HTTP codes via errors.Is.
var (
	// ErrInvalidRequestAttributes rejects request creation (bad quantity,
	// odometer, unknown vehicle/type, unknown role). Non-recoverable.
	ErrInvalidRequestAttributes = errors.New("invalid request attributes")

	// ErrRequestNotFound — unknown request id.
	ErrRequestNotFound = errors.New("fuel request not found")

	// ErrRequestFinalized — action attempted on a fulfilled or rejected request.
	ErrRequestFinalized = errors.New("fuel request already finalized")

	// ErrUnauthorizedForLevel — the actor's role does not own the request's
	// current approval level.
	ErrUnauthorizedForLevel = errors.New("actor not authorized for current approval level")

	// ErrLevelAlreadyDecided — a decision for (request, level) already exists.
	// Returned to the loser of a concurrent submission race; retryable after
	// the caller refreshes the request status.
	ErrLevelAlreadyDecided = errors.New("approval level already decided")

	// ErrStaleState — the stored status changed between read and update.
	// Retryable conflict, same caller guidance as ErrLevelAlreadyDecided.
	ErrStaleState = errors.New("request status changed concurrently")
)
