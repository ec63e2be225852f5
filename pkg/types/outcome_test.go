package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    Outcome
		to      Outcome
		wantErr error
	}{
		{name: "pending to pass", from: Pending(), to: Passed()},
		{name: "pending to fail", from: Pending(), to: Failed("cold joint on U3")},
		{name: "fail to fixed", from: Failed("cold joint"), to: Fixed("reflowed U3, retested")},
		{name: "fail without explanation", from: Pending(), to: Failed("  "), wantErr: ErrMissingExplanation},
		{name: "fixed without explanation", from: Failed("x"), to: Fixed(""), wantErr: ErrMissingExplanation},
		{name: "fail straight to pass", from: Failed("x"), to: Passed(), wantErr: ErrInvalidTransition},
		{name: "pending to fixed", from: Pending(), to: Fixed("nothing to fix"), wantErr: ErrInvalidTransition},
		{name: "pass to fail", from: Passed(), to: Failed("late failure"), wantErr: ErrInvalidTransition},
		{name: "pass to pending", from: Passed(), to: Pending(), wantErr: ErrInvalidTransition},
		{name: "fail to fail", from: Failed("a"), to: Failed("b"), wantErr: ErrInvalidTransition},
		{name: "fixed is terminal", from: Fixed("done"), to: Passed(), wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.from.CanTransitionTo(tt.to)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrValidation, "transition errors are validation errors")
		})
	}
}

func TestLedgerRowOutcome(t *testing.T) {
	tests := []struct {
		name string
		row  LedgerRow
		want OutcomeKind
	}{
		{name: "pending", row: LedgerRow{Result: "Pending"}, want: OutcomePending},
		{name: "empty reads pending", row: LedgerRow{Result: ""}, want: OutcomePending},
		{name: "unknown reads pending", row: LedgerRow{Result: "retest"}, want: OutcomePending},
		{name: "pass lower case", row: LedgerRow{Result: "pass"}, want: OutcomePass},
		{name: "fail upper case", row: LedgerRow{Result: "FAIL", FailureExplanation: "x"}, want: OutcomeFail},
		{name: "pass with fix is fixed", row: LedgerRow{Result: "Pass", FailureExplanation: "x", FixExplanation: "y"}, want: OutcomeFixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.row.Outcome().Kind())
		})
	}
}

func TestLedgerRowApply(t *testing.T) {
	at := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	row := LedgerRow{Serial: "ACME-CTRL-1001-00001", Result: ResultPending}

	failed := row.Apply(Failed("no boot"), at, "jdoe")
	assert.Equal(t, ResultFail, failed.Result)
	assert.Equal(t, "no boot", failed.FailureExplanation)
	assert.Equal(t, "2026-03-04 10:30:00", failed.ResultTimestamp)
	assert.Equal(t, "jdoe", failed.Operator)

	fixed := failed.Apply(Fixed("replaced regulator"), at.Add(time.Hour), "asmith")
	assert.Equal(t, ResultPass, fixed.Result)
	assert.Equal(t, "no boot", fixed.FailureExplanation, "failure explanation is retained")
	assert.Equal(t, "replaced regulator", fixed.FixExplanation)
	assert.Equal(t, OutcomeFixed, fixed.Outcome().Kind())

	assert.Equal(t, ResultPending, row.Result, "Apply must not modify the receiver")
}

func TestParseOutcome(t *testing.T) {
	o, err := ParseOutcome("FAIL", "shorted")
	assert.NoError(t, err)
	assert.Equal(t, OutcomeFail, o.Kind())
	assert.Equal(t, "shorted", o.Explanation())

	_, err = ParseOutcome("maybe", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateOrderNumber(t *testing.T) {
	for _, ok := range []string{"ORD12345", "1001-A", "WO 77"} {
		assert.NoError(t, ValidateOrderNumber(ok), ok)
	}
	for _, bad := range []string{"", " ORD1", "..", "a/b", `a\b`, "ORD:1"} {
		assert.ErrorIs(t, ValidateOrderNumber(bad), ErrInvalidOrderNumber, bad)
	}
}

func TestErrorCategories(t *testing.T) {
	assert.ErrorIs(t, ErrDuplicateOrderNumber, ErrValidation)
	assert.ErrorIs(t, ErrSerialNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrLockHeld, ErrWriteFailure)
	assert.ErrorIs(t, ErrBadLayout, ErrReadFailure)
	assert.NotErrorIs(t, ErrUnknownCompany, ErrValidation)
}
