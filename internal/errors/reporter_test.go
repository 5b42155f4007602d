package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nyu-acsys/flowcert/internal/program"
)

func TestReporterFormatsLocationAndMessage(t *testing.T) {
	source := "fn push(x) {\n  atomic {\n    head->next = x;\n  }\n}"
	reporter := NewReporter("stack.flow", source)

	err := New(InvariantViolationKind, "push, line 3", "sortedness invariant does not hold at head")
	formatted := reporter.Format(err, program.Position{Line: 3, Column: 5})

	assert.Contains(t, formatted, "InvariantViolation")
	assert.Contains(t, formatted, "sortedness invariant does not hold at head")
	assert.Contains(t, formatted, "stack.flow:3:5")
	assert.Contains(t, formatted, "head->next = x;")
}

func TestReporterShowsPreAndPostStateForLinearizationFailure(t *testing.T) {
	source := "fn insert(k) {\n  atomic {\n    n->next = m;\n  }\n}"
	reporter := NewReporter("list.flow", source)

	err := Linearization("insert, line 3", "two keys changed in one step", "pre: keyset(n)={1,2}", "post: keyset(n)={}")
	formatted := reporter.Format(err, program.Position{Line: 3, Column: 5})

	assert.Contains(t, formatted, "pre-state:")
	assert.Contains(t, formatted, "keyset(n)={1,2}")
	assert.Contains(t, formatted, "computed post-state:")
	assert.Contains(t, formatted, "keyset(n)={}")
}

func TestFormatBannerByOutcome(t *testing.T) {
	assert.Contains(t, FormatBanner(Linearizable, ""), "linearizable")
	assert.Contains(t, FormatBanner(NotLinearizable, "multiple keys changed"), "multiple keys changed")
	assert.Contains(t, FormatBanner(UnknownOutcome, "SMT returned unknown"), "SMT returned unknown")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ConfigurationError", ConfigurationErrorKind.String())
	assert.Equal(t, "SolverUnknown", SolverUnknownKind.String())
}
