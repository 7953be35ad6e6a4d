package domain

import "errors"

var (
	// ErrMissingFields is returned when a required request field is blank.
	ErrMissingFields = errors.New("missing required fields")
	// ErrInvalidMode indicates a mode outside PR, NV, BL, MIX, ENT.
	ErrInvalidMode = errors.New("invalid mode: must be PR, NV, BL, MIX or ENT")
	// ErrInvalidLevel indicates a level outside the accepted set.
	ErrInvalidLevel = errors.New("invalid level: must be one of jr, mid, sr, ssr, 1, 2, 3")
	// ErrInvalidQuotas indicates negative quotas or a total outside (0, max].
	ErrInvalidQuotas = errors.New("invalid quotas")
	// ErrInvalidAnswer indicates a blank value or an open-text answer outside its length bounds.
	ErrInvalidAnswer = errors.New("invalid answer value")

	// ErrTestNotFound is returned for unknown or inactive tests.
	ErrTestNotFound = errors.New("test not found")
	// ErrAttemptNotFound is returned for unknown attempts.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrTestQuestionNotFound is returned for unknown test questions.
	ErrTestQuestionNotFound = errors.New("test question not found")

	// ErrForbidden is returned when the caller does not own the attempt.
	ErrForbidden = errors.New("attempt belongs to another user")

	// ErrAttemptClosed is returned for operations on a finished or abandoned attempt.
	ErrAttemptClosed = errors.New("attempt is not in progress")
	// ErrAlreadyAnswered guards the one-answer-per-question contract.
	ErrAlreadyAnswered = errors.New("question already answered in this attempt")
	// ErrOutOfOrder is returned when a question is answered before its predecessors.
	ErrOutOfOrder = errors.New("question answered out of order")

	// ErrEmptyTest is returned when a test has no selectable questions.
	ErrEmptyTest = errors.New("test has no questions")
	// ErrMismatchedQuestion is returned when a test question is not part of the attempt's test.
	ErrMismatchedQuestion = errors.New("question does not belong to the attempt's test")
)

// Kind is the machine-readable error category surfaced to callers.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindInvalidState       Kind = "invalid_state"
	KindEmptyTest          Kind = "empty_test"
	KindMismatchedQuestion Kind = "mismatched_question"
	KindStorage            Kind = "storage_error"
)

// KindOf classifies err. Anything unrecognized is a storage failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidMode),
		errors.Is(err, ErrInvalidLevel), errors.Is(err, ErrInvalidQuotas),
		errors.Is(err, ErrInvalidAnswer):
		return KindInvalidInput
	case errors.Is(err, ErrTestNotFound), errors.Is(err, ErrAttemptNotFound),
		errors.Is(err, ErrTestQuestionNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrAttemptClosed), errors.Is(err, ErrAlreadyAnswered),
		errors.Is(err, ErrOutOfOrder):
		return KindInvalidState
	case errors.Is(err, ErrEmptyTest):
		return KindEmptyTest
	case errors.Is(err, ErrMismatchedQuestion):
		return KindMismatchedQuestion
	default:
		return KindStorage
	}
}

// CodeOf refines KindOf with sub-kinds such as already_answered or invalid_mode.
func CodeOf(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "missing_required_fields"
	case errors.Is(err, ErrInvalidMode):
		return "invalid_mode"
	case errors.Is(err, ErrInvalidQuotas):
		return "invalid_quotas"
	case errors.Is(err, ErrInvalidLevel):
		return "invalid_level"
	case errors.Is(err, ErrAlreadyAnswered):
		return "already_answered"
	case errors.Is(err, ErrOutOfOrder):
		return "out_of_order"
	default:
		return string(KindOf(err))
	}
}
