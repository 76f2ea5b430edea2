package repository

import (
	"strings"
	"testing"
)

func TestWindowStatsQueryIsWorkspaceScoped(t *testing.T) {
	if !strings.Contains(windowStatsQuery, "workspace_id = $1") {
		t.Fatal("window stats must be workspace scoped")
	}
}

// A config with provider 'all' aggregates every gateway; per-provider
// configs must only count their own rows.
func TestWindowStatsQueryTreatsAllAsWildcard(t *testing.T) {
	if !strings.Contains(windowStatsQuery, "$2 = 'all' OR provider = $2") {
		t.Fatal("window stats must serve both global and per-provider configs")
	}
	if !strings.Contains(windowStatsQuery, "FILTER (WHERE result = 'error')") {
		t.Fatal("window stats must count failures in the same pass")
	}
}
