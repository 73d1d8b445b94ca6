package transfer

type LinkedinTokenResponse struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	Scope                 string `json:"scope"`
}

type LinkedinUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

type LinkedinInitUploadRequest struct {
	InitializeUploadRequest LinkedinInitUploadSpec `json:"initializeUploadRequest"`
}

type LinkedinInitUploadSpec struct {
	Owner           string `json:"owner"`
	FileSizeBytes   int64  `json:"fileSizeBytes"`
	UploadCaptions  bool   `json:"uploadCaptions"`
	UploadThumbnail bool   `json:"uploadThumbnail"`
}

type LinkedinInitUploadResponse struct {
	Value LinkedinInitUploadValue `json:"value"`
}

type LinkedinInitUploadValue struct {
	Video              string                      `json:"video"`
	UploadToken        string                      `json:"uploadToken"`
	UploadInstructions []LinkedinUploadInstruction `json:"uploadInstructions"`
}

type LinkedinUploadInstruction struct {
	UploadURL string `json:"uploadUrl"`
	FirstByte int64  `json:"firstByte"`
	LastByte  int64  `json:"lastByte"`
}

type LinkedinImageInitRequest struct {
	InitializeUploadRequest LinkedinImageInitSpec `json:"initializeUploadRequest"`
}

type LinkedinImageInitSpec struct {
	Owner string `json:"owner"`
}

type LinkedinImageInitResponse struct {
	Value LinkedinImageInitValue `json:"value"`
}

type LinkedinImageInitValue struct {
	Image     string `json:"image"`
	UploadURL string `json:"uploadUrl"`
}

type LinkedinFinalizeUploadRequest struct {
	FinalizeUploadRequest LinkedinFinalizeUploadSpec `json:"finalizeUploadRequest"`
}

type LinkedinFinalizeUploadSpec struct {
	Video           string   `json:"video"`
	UploadToken     string   `json:"uploadToken"`
	UploadedPartIds []string `json:"uploadedPartIds"`
}

type LinkedinPostRequest struct {
	Author                    string               `json:"author"`
	Commentary                string               `json:"commentary"`
	Visibility                string               `json:"visibility"`
	Distribution              LinkedinDistribution `json:"distribution"`
	Content                   *LinkedinPostContent `json:"content,omitempty"`
	LifecycleState            string               `json:"lifecycleState"`
	IsReshareDisabledByAuthor bool                 `json:"isReshareDisabledByAuthor"`
}

type LinkedinDistribution struct {
	FeedDistribution string `json:"feedDistribution"`
}

type LinkedinPostContent struct {
	Media LinkedinMediaContent `json:"media"`
}

type LinkedinMediaContent struct {
	Title string `json:"title,omitempty"`
	ID    string `json:"id"`
}

type LinkedinPostPatch struct {
	Patch LinkedinPatchSet `json:"patch"`
}

type LinkedinPatchSet struct {
	Set map[string]any `json:"$set"`
}

type LinkedinPostList struct {
	Elements []LinkedinPostElement `json:"elements"`
}

type LinkedinPostElement struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
}

type LinkedinSocialActions struct {
	LikesSummary    LinkedinLikesSummary    `json:"likesSummary"`
	CommentsSummary LinkedinCommentsSummary `json:"commentsSummary"`
}

type LinkedinLikesSummary struct {
	TotalLikes int64 `json:"totalLikes"`
}

type LinkedinCommentsSummary struct {
	AggregatedTotalComments int64 `json:"aggregatedTotalComments"`
}

type LinkedinCommentList struct {
	Elements []LinkedinComment `json:"elements"`
}

type LinkedinComment struct {
	CommentURN    string                 `json:"commentUrn"`
	ID            string                 `json:"id"`
	Actor         string                 `json:"actor"`
	Object        string                 `json:"object"`
	Message       LinkedinCommentMessage `json:"message"`
	ParentComment string                 `json:"parentComment"`
	Created       LinkedinCommentCreated `json:"created"`
}

type LinkedinCommentMessage struct {
	Text string `json:"text"`
}

type LinkedinCommentCreated struct {
	Time int64 `json:"time"`
}

type LinkedinCommentCreate struct {
	Actor         string                 `json:"actor"`
	Message       LinkedinCommentMessage `json:"message"`
	ParentComment string                 `json:"parentComment,omitempty"`
}

type LinkedinErrorResponse struct {
	Message          string `json:"message"`
	ServiceErrorCode int    `json:"serviceErrorCode"`
	Status           int    `json:"status"`
}
