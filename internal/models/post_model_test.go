package models

import "testing"

func TestValidPrivacy(t *testing.T) {
	for _, privacy := range []string{PrivacyPublic, PrivacyUnlisted, PrivacyPrivate, PrivacyMutual} {
		if !ValidPrivacy(privacy) {
			t.Fatalf("%s must be accepted", privacy)
		}
	}
	for _, privacy := range []string{"", "everyone", "PUBLIC", "friends"} {
		if ValidPrivacy(privacy) {
			t.Fatalf("%q must be rejected", privacy)
		}
	}
}
