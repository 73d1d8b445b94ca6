package repository

import (
	"strings"
	"testing"
)

// The upsert may refresh remote-owned fields but must never touch
// moderation state: a comment resolved or hidden locally has to stay
// that way across syncs.
func TestCommentUpsertLeavesModerationAlone(t *testing.T) {
	idx := strings.Index(commentUpsertQuery, "ON CONFLICT (platform, external_id) DO UPDATE SET")
	if idx < 0 {
		t.Fatal("upsert must key on (platform, external_id)")
	}

	updateClause := commentUpsertQuery[idx:]
	for _, column := range []string{"is_resolved", "is_hidden"} {
		if strings.Contains(updateClause, column) {
			t.Fatalf("conflict update must not write %s", column)
		}
	}
	for _, column := range []string{"content", "updated_at"} {
		if !strings.Contains(updateClause, column) {
			t.Fatalf("conflict update should refresh %s", column)
		}
	}
}
