package repository

import (
	"strings"
	"testing"
)

func TestListContactsIsWorkspaceScoped(t *testing.T) {
	if !strings.Contains(listContactsQuery, "workspace_id = $1") {
		t.Fatalf("contact listing must be tenant scoped: %s", listContactsQuery)
	}
}

func TestUpsertKeepsExistingName(t *testing.T) {
	if !strings.Contains(upsertByPhoneQuery, "ON CONFLICT (workspace_id, phone)") {
		t.Fatalf("upsert must key on (workspace_id, phone): %s", upsertByPhoneQuery)
	}
	if !strings.Contains(upsertByPhoneQuery, "WHEN contacts.name = ''") {
		t.Fatalf("upsert must not overwrite a curated contact name: %s", upsertByPhoneQuery)
	}
}
