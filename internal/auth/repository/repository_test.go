package repository

import (
	"strings"
	"testing"
)

func TestUserLookupIsCaseInsensitive(t *testing.T) {
	if !strings.Contains(getUserByEmailQuery, "lower(email) = lower($1)") {
		t.Fatalf("email lookup must be case-insensitive: %s", getUserByEmailQuery)
	}
}

func TestUserQueriesSelectPasswordHash(t *testing.T) {
	for _, q := range []string{getUserByEmailQuery, getUserByIDQuery} {
		if !strings.Contains(q, "password_hash") {
			t.Fatalf("query must return password_hash for credential checks: %s", q)
		}
	}
}
