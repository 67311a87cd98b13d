package vgerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatsOpKindAndCause(t *testing.T) {
	err := New(Schema, "schema.CreateSpaceTables", errors.New("relation exists"))
	got := err.Error()
	want := "schema.CreateSpaceTables: schema: relation exists"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorFormatsWithoutCause(t *testing.T) {
	err := New(Conflict, "txn.Commit", nil)
	got := err.Error()
	want := "txn.Commit: conflict"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := New(Internal, "op", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
}

func TestIsComparesByKindNotOp(t *testing.T) {
	a := New(Conflict, "txn.Commit", errors.New("x"))
	b := New(Conflict, "space.Create", errors.New("y"))
	c := New(Validation, "parser.Parse", errors.New("z"))

	if !errors.Is(a, b) {
		t.Fatalf("expected two Conflict errors with different Op to compare equal via Is")
	}
	if errors.Is(a, c) {
		t.Fatalf("expected a Conflict error not to match a Validation error")
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != Internal {
		t.Fatalf("KindOf(plain error) = %v, want Internal", got)
	}
	if got := KindOf(New(SPARQL, "op", nil)); got != SPARQL {
		t.Fatalf("KindOf(*Error) = %v, want SPARQL", got)
	}
}

func TestRetryableOnlyForConflict(t *testing.T) {
	if !Retryable(New(Conflict, "op", nil)) {
		t.Fatalf("expected a Conflict error to be retryable")
	}
	if Retryable(New(Integrity, "op", nil)) {
		t.Fatalf("expected an Integrity error not to be retryable")
	}
}

func TestErrorfFormatsUnderlying(t *testing.T) {
	err := Errorf(Validation, "bulkload.ParseLine", "line %d: unexpected token %q", 3, "<<<")
	if err.Err.Error() != `line 3: unexpected token "<<<"` {
		t.Fatalf("unexpected formatted cause: %v", err.Err)
	}
}

func TestKindStringValues(t *testing.T) {
	cases := map[Kind]string{
		Internal:      "internal",
		Configuration: "configuration",
		Connectivity:  "connectivity",
		Schema:        "schema",
		Validation:    "validation",
		SPARQL:        "sparql",
		Integrity:     "integrity",
		Conflict:      "conflict",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestErrorsIsAgainstSentinels(t *testing.T) {
	wrapped := fmt.Errorf("lookup space s1: %w", ErrNoSuchSpace)
	if !errors.Is(wrapped, ErrNoSuchSpace) {
		t.Fatalf("expected errors.Is to find ErrNoSuchSpace through %%w wrapping")
	}
}
