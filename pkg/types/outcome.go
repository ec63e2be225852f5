package types

import (
	"fmt"
	"strings"
)

// Values written to the ledger's result column.
const (
	ResultPending = "Pending"
	ResultPass    = "Pass"
	ResultFail    = "Fail"
)

// OutcomeKind tags an Outcome.
type OutcomeKind string

const (
	OutcomePending OutcomeKind = "Pending"
	OutcomePass    OutcomeKind = "Pass"
	OutcomeFail    OutcomeKind = "Fail"
	OutcomeFixed   OutcomeKind = "Fixed"
)

// Outcome is the test result of one serial. Fail and Fixed carry the
// operator's explanation; Pending and Pass carry none.
//
// A unit moves Pending -> Pass, or Pending -> Fail -> Fixed. Pass and Fixed
// are terminal.
type Outcome struct {
	kind        OutcomeKind
	explanation string
}

// Pending is the outcome of a freshly generated serial.
func Pending() Outcome { return Outcome{kind: OutcomePending} }

// Passed is a first-time pass.
func Passed() Outcome { return Outcome{kind: OutcomePass} }

// Failed records a failure with its explanation.
func Failed(explanation string) Outcome {
	return Outcome{kind: OutcomeFail, explanation: explanation}
}

// Fixed records a previously failed unit that passed after repair.
func Fixed(explanation string) Outcome {
	return Outcome{kind: OutcomeFixed, explanation: explanation}
}

// ParseOutcome builds an Outcome from a kind name (case-insensitive) and an
// optional explanation.
func ParseOutcome(kind, explanation string) (Outcome, error) {
	switch {
	case strings.EqualFold(kind, string(OutcomePass)):
		return Passed(), nil
	case strings.EqualFold(kind, string(OutcomeFail)):
		return Failed(explanation), nil
	case strings.EqualFold(kind, string(OutcomeFixed)):
		return Fixed(explanation), nil
	case strings.EqualFold(kind, string(OutcomePending)):
		return Pending(), nil
	default:
		return Outcome{}, fmt.Errorf("%w: unknown result %q", ErrValidation, kind)
	}
}

func (o Outcome) Kind() OutcomeKind   { return o.kind }
func (o Outcome) Explanation() string { return o.explanation }

func (o Outcome) String() string {
	if o.explanation == "" {
		return string(o.kind)
	}
	return fmt.Sprintf("%s(%s)", o.kind, o.explanation)
}

// CanTransitionTo returns nil if a row currently at o may be moved to next.
func (o Outcome) CanTransitionTo(next Outcome) error {
	if (next.kind == OutcomeFail || next.kind == OutcomeFixed) && strings.TrimSpace(next.explanation) == "" {
		return fmt.Errorf("%w for %s", ErrMissingExplanation, next.kind)
	}
	switch {
	case o.kind == OutcomePending && (next.kind == OutcomePass || next.kind == OutcomeFail):
		return nil
	case o.kind == OutcomeFail && next.kind == OutcomeFixed:
		return nil
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.kind, next.kind)
}
