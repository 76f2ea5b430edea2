package repository

import (
	"strings"
	"testing"
)

// The conditional assignment write must match on the expected holder so
// concurrent writers cannot both win.
func TestCompareAndSetQueryIsConditional(t *testing.T) {
	if !strings.Contains(compareAndSetAssigneeQuery, "assigned_user_id IS NOT DISTINCT FROM $4") {
		t.Fatal("assignment update must compare against the expected holder")
	}
	if !strings.Contains(compareAndSetAssigneeQuery, "workspace_id = $2") {
		t.Fatal("assignment update must be workspace scoped")
	}
}

func TestGetConversationQueryIsWorkspaceScoped(t *testing.T) {
	if !strings.Contains(getConversationQuery, "c.workspace_id = $2") {
		t.Fatal("conversation lookup must be workspace scoped")
	}
	if !strings.Contains(getConversationQuery, "JOIN contacts") {
		t.Fatal("conversation lookup should carry the contact snapshot")
	}
}
