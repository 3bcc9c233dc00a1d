package validator

import (
	"strings"
	"testing"
)

func TestValidator(t *testing.T) {
	v := New()
	if !v.Valid() {
		t.Fatal("new validator should be valid")
	}

	v.Check(Matches("someone@example.com", EmailRX), "email", "must be a valid email address")
	v.Check(Matches("not-an-email", EmailRX), "email", "must be a valid email address")
	v.Check(false, "email", "second message")
	v.Check(MaxChars(strings.Repeat("é", 250), 250), "bio", "must not be more than 250 characters")
	v.Check(MaxChars(strings.Repeat("a", 251), 250), "caption", "too long")
	v.Check(NotBlank(" \t"), "text", "must be provided")

	if v.Valid() {
		t.Fatal("expected errors")
	}
	want := map[string]string{
		"email":   "must be a valid email address",
		"caption": "too long",
		"text":    "must be provided",
	}
	if len(v.Errors) != len(want) {
		t.Fatalf("got %v, want %v", v.Errors, want)
	}
	for k, msg := range want {
		if v.Errors[k] != msg {
			t.Errorf("Errors[%q] = %q, want %q", k, v.Errors[k], msg)
		}
	}
}
