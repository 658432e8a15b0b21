package testutil

import "testing"

// Given, When and Then run fn as a subtest labelled with its step keyword, so
// `go test -v` output reads as the scenario it verifies. Each returns whether
// the step passed, letting a scenario stop at the first broken step.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("when "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("then "+desc, fn)
}
