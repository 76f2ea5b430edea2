package repository

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestFindOpenCardQueryMatchesThePartialIndexPredicate(t *testing.T) {
	if !strings.Contains(findOpenCardQuery, "workspace_id = $1") {
		t.Fatal("open card lookup must be workspace scoped")
	}
	if !strings.Contains(findOpenCardQuery, "status = 'aberto'") {
		t.Fatal("open card lookup must filter on the open status")
	}
}

func TestFirstColumnQueryBreaksPositionTies(t *testing.T) {
	if !strings.Contains(firstColumnQuery, "ORDER BY position ASC, created_at ASC") {
		t.Fatal("entry column resolution must be deterministic under position collisions")
	}
}

// Both halves of a (contact, pipeline) pair must hash to the same lock key
// regardless of which caller computes it, and distinct pairs should not
// trivially collide.
func TestOpenCardLockKeyIsStable(t *testing.T) {
	contactID := uuid.New()
	pipelineID := uuid.New()

	if openCardLockKey(contactID, pipelineID) != openCardLockKey(contactID, pipelineID) {
		t.Fatal("lock key must be deterministic")
	}
	if openCardLockKey(contactID, pipelineID) == openCardLockKey(pipelineID, contactID) {
		t.Fatal("lock key must depend on argument order")
	}
}

func TestDuplicateOpenCardCarriesTheWireCode(t *testing.T) {
	if ErrDuplicateOpenCard.Code != "duplicate_open_card" {
		t.Fatalf("conflict code = %q, want duplicate_open_card", ErrDuplicateOpenCard.Code)
	}
}
