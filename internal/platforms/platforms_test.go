package platforms

import (
	"testing"

	"github.com/publora/publora/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPrivacyMapping(t *testing.T) {
	assert.Equal(t, "private", mapYoutubePrivacy(models.PrivacyPrivate))
	assert.Equal(t, "unlisted", mapYoutubePrivacy(models.PrivacyUnlisted))
	assert.Equal(t, "public", mapYoutubePrivacy(models.PrivacyPublic))
	assert.Equal(t, "public", mapYoutubePrivacy(""))

	// TikTok has no unlisted tier; both restricted levels collapse,
	// and anything unrecognized stays creator-only.
	assert.Equal(t, "SELF_ONLY", mapTiktokPrivacy(models.PrivacyPrivate))
	assert.Equal(t, "SELF_ONLY", mapTiktokPrivacy(models.PrivacyUnlisted))
	assert.Equal(t, "SELF_ONLY", mapTiktokPrivacy(""))
	assert.Equal(t, "SELF_ONLY", mapTiktokPrivacy("followers"))
	assert.Equal(t, "PUBLIC_TO_EVERYONE", mapTiktokPrivacy(models.PrivacyPublic))
	assert.Equal(t, "MUTUAL_FOLLOW_FRIENDS", mapTiktokPrivacy(models.PrivacyMutual))

	assert.Equal(t, "nobody", mapVimeoPrivacy(models.PrivacyPrivate))
	assert.Equal(t, "nobody", mapVimeoPrivacy(models.PrivacyMutual))
	assert.Equal(t, "unlisted", mapVimeoPrivacy(models.PrivacyUnlisted))
	assert.Equal(t, "anybody", mapVimeoPrivacy(models.PrivacyPublic))

	assert.Equal(t, "private", mapYoutubePrivacy(models.PrivacyMutual))
	assert.Equal(t, "CONNECTIONS", mapLinkedinVisibility(models.PrivacyMutual))
}

func TestVimeoVideoID(t *testing.T) {
	assert.Equal(t, "12345", vimeoVideoID("/videos/12345"))
	assert.Equal(t, "12345", vimeoVideoID("12345"))
}

func TestLinkedinURNParsing(t *testing.T) {
	commentURN := "urn:li:comment:(urn:li:ugcPost:6874893,7000123)"

	thread, ok := linkedinThreadURN(commentURN)
	assert.True(t, ok)
	assert.Equal(t, "urn:li:ugcPost:6874893", thread)

	post, ok := linkedinThreadURN("urn:li:ugcPost:6874893")
	assert.False(t, ok)
	assert.Equal(t, "urn:li:ugcPost:6874893", post)

	assert.Equal(t, "7000123", linkedinCommentID(commentURN))
	assert.Equal(t, "plain", linkedinCommentID("plain"))
}

func TestLinkedinCommentary(t *testing.T) {
	text := linkedinCommentary(Metadata{
		Title:       "Launch day",
		Description: "It shipped.",
		Tags:        []string{"go lang", "release"},
	})
	assert.Equal(t, "Launch day\n\nIt shipped.\n\n#golang #release", text)

	assert.Equal(t, "Launch day", linkedinCommentary(Metadata{Title: "Launch day"}))
}

func TestChunkIDs(t *testing.T) {
	chunks := chunkIDs([]string{"a", "b", "c", "d", "e"}, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunks)

	assert.Nil(t, chunkIDs(nil, 2))
	assert.Equal(t, [][]string{{"a"}}, chunkIDs([]string{"a"}, 2))
}

func TestRegistryCapabilities(t *testing.T) {
	r := NewDefaultRegistry()

	assert.NotNil(t, r.Adapter(models.PlatformYoutube))
	assert.Nil(t, r.Adapter("instagram"))

	// Only YouTube and LinkedIn expose comments; only TikTok defers.
	assert.NotNil(t, r.CommentSource(models.PlatformYoutube))
	assert.NotNil(t, r.CommentSource(models.PlatformLinkedin))
	assert.Nil(t, r.CommentSource(models.PlatformTiktok))
	assert.Nil(t, r.CommentSource(models.PlatformVimeo))

	assert.NotNil(t, r.StatusPoller(models.PlatformTiktok))
	assert.Nil(t, r.StatusPoller(models.PlatformYoutube))
}

func TestNativelyScheduledMatchesAdapters(t *testing.T) {
	r := NewDefaultRegistry()

	for _, platform := range []string{
		models.PlatformYoutube,
		models.PlatformTiktok,
		models.PlatformVimeo,
		models.PlatformLinkedin,
	} {
		assert.Equal(t, r.Adapter(platform).NativeScheduling(), NativelyScheduled(platform), platform)
	}
}
