package transfer

import (
	"time"

	"github.com/publora/publora/internal/models"
)

type RequestUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

type RequestUploadResponse struct {
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
}

type ConfirmUploadRequest struct {
	StorageKey  string   `json:"storage_key"`
	PostType    string   `json:"post_type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Privacy     string   `json:"privacy"`
	FileSize    int64    `json:"file_size"`
}

type CreateTextPostRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Privacy     string   `json:"privacy"`
}

type UpdatePostRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Privacy     string   `json:"privacy"`
}

type CreatePublishRequest struct {
	PostID        int64    `json:"post_id"`
	ConnectionIDs []int64  `json:"connection_ids"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	Privacy       string   `json:"privacy"`

	// ScheduledFor publishes at an explicit instant; UseSchedule asks
	// the allocator for the connection's next free slot instead.
	ScheduledFor *time.Time `json:"scheduled_for"`
	UseSchedule  bool       `json:"use_schedule"`
}

type RescheduleRequest struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

type UpdateScheduleRequest struct {
	Timezone string                `json:"timezone"`
	Slots    []models.ScheduleSlot `json:"slots"`
}

type CommentReplyRequest struct {
	Text string `json:"text"`
}
