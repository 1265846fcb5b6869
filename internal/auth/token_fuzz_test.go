package auth

import (
	"testing"
	"time"
)

// FuzzTokenServiceParse feeds arbitrary strings to the parser. It must never
// panic, and anything it accepts must carry a subject.
func FuzzTokenServiceParse(f *testing.F) {
	svc, err := NewTokenService(testKey, time.Hour)
	if err != nil {
		f.Fatal(err)
	}
	valid, _, err := svc.Issue("alice", "CUSTOMER")
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiJhbGljZSJ9.")
	f.Add("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJhbGljZSIsInJvbGUiOiJCQU5LX01BTkFHRVIifQ.invalid")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := svc.Parse(input)
		if err != nil {
			if FailureLabel(err) == "unknown" {
				t.Fatalf("unclassified error: %v", err)
			}
			return
		}
		if claims == nil || claims.Subject == "" {
			t.Fatal("Parse accepted a token without a subject")
		}
	})
}
