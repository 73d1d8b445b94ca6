package transfer

type VimeoUploadRequest struct {
	Upload      VimeoUploadSpec  `json:"upload"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Privacy     VimeoPrivacySpec `json:"privacy"`
}

type VimeoUploadSpec struct {
	Approach string `json:"approach"`
	Size     int64  `json:"size,omitempty"`
	Link     string `json:"link"`
}

type VimeoPrivacySpec struct {
	View string `json:"view"`
}

type VimeoVideoPatch struct {
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Privacy     *VimeoPrivacySpec `json:"privacy,omitempty"`
}

type VimeoVideoResponse struct {
	URI      string          `json:"uri"`
	Link     string          `json:"link"`
	Stats    VimeoVideoStats `json:"stats"`
	Metadata VimeoMetadata   `json:"metadata"`
}

type VimeoVideoStats struct {
	Plays int64 `json:"plays"`
}

type VimeoMetadata struct {
	Connections VimeoConnections `json:"connections"`
}

type VimeoConnections struct {
	Likes    VimeoConnectionTotal `json:"likes"`
	Comments VimeoConnectionTotal `json:"comments"`
}

type VimeoConnectionTotal struct {
	Total int64 `json:"total"`
}

type VimeoTokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Scope       string    `json:"scope"`
	User        VimeoUser `json:"user"`
}

type VimeoUser struct {
	URI      string        `json:"uri"`
	Name     string        `json:"name"`
	Link     string        `json:"link"`
	Pictures VimeoPictures `json:"pictures"`
}

type VimeoPictures struct {
	BaseLink string `json:"base_link"`
}

type VimeoErrorResponse struct {
	Error            string `json:"error"`
	DeveloperMessage string `json:"developer_message"`
}
