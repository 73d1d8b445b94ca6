package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/publora/publora/configs"
	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/repository"
	"github.com/publora/publora/internal/transfer"
	"github.com/publora/publora/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	GOOGLE_AUTH_URL   = "https://accounts.google.com/o/oauth2/v2/auth"
	TIKTOK_AUTH_URL   = "https://www.tiktok.com/v2/auth/authorize"
	VIMEO_AUTH_URL    = "https://api.vimeo.com/oauth/authorize"
	LINKEDIN_AUTH_URL = "https://www.linkedin.com/oauth/v2/authorization"

	tiktokTokenURL   = "https://open.tiktokapis.com/v2/oauth/token/"
	tiktokUserURL    = "https://open.tiktokapis.com/v2/user/info/?fields=open_id,avatar_url,display_name,username"
	vimeoTokenURL    = "https://api.vimeo.com/oauth/access_token"
	linkedinTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedinUserURL  = "https://api.linkedin.com/v2/userinfo"
)

type PlatformService interface {
	GetAuthURL(ctx context.Context, platform, tokenString string) string
	Callback(ctx context.Context, platform, code string, userID int64) error
	List(ctx context.Context, userID int64) ([]*models.PlatformConnection, error)
	Disconnect(ctx context.Context, userID, connectionID int64) error
	RefreshConnection(ctx context.Context, conn *models.PlatformConnection) error
}

type platformService struct {
	cfg config.Config
	pc  repository.ConnectionRepository
}

func NewPlatformService(cfg config.Config, pc repository.ConnectionRepository) PlatformService {
	return &platformService{
		cfg: cfg,
		pc:  pc,
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, platform, tokenString string) string {
	switch platform {
	case models.PlatformYoutube:
		params := url.Values{}
		params.Add("client_id", s.cfg.GoogleClientID)
		params.Add("redirect_uri", s.cfg.GoogleRedirectURI)
		params.Add("response_type", "code")
		params.Add("scope", "https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/youtube.upload https://www.googleapis.com/auth/youtube.force-ssl")
		params.Add("state", tokenString)
		params.Add("access_type", "offline")
		params.Add("prompt", "consent")
		return fmt.Sprintf("%s?%s", GOOGLE_AUTH_URL, params.Encode())

	case models.PlatformTiktok:
		params := url.Values{}
		params.Add("client_key", s.cfg.TiktokClientKey)
		params.Add("scope", "user.info.basic,user.info.profile,video.publish,video.upload")
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.TiktokRedirectURI)
		params.Add("state", tokenString)
		return fmt.Sprintf("%s?%s", TIKTOK_AUTH_URL, params.Encode())

	case models.PlatformVimeo:
		params := url.Values{}
		params.Add("client_id", s.cfg.VimeoClientID)
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.VimeoRedirectURI)
		params.Add("scope", "public private upload edit delete video_files")
		params.Add("state", tokenString)
		return fmt.Sprintf("%s?%s", VIMEO_AUTH_URL, params.Encode())

	case models.PlatformLinkedin:
		params := url.Values{}
		params.Add("client_id", s.cfg.LinkedinClientID)
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.LinkedinRedirectURI)
		params.Add("scope", "openid profile email w_member_social r_member_social")
		params.Add("state", tokenString)
		return fmt.Sprintf("%s?%s", LINKEDIN_AUTH_URL, params.Encode())

	default:
		return ""
	}
}

func (s *platformService) Callback(ctx context.Context, platform, code string, userID int64) error {
	if code == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return err
	}

	var (
		conn *models.PlatformConnection
		err  error
	)
	switch platform {
	case models.PlatformYoutube:
		conn, err = s.youtubeCallback(ctx, code)
	case models.PlatformTiktok:
		conn, err = s.tiktokCallback(ctx, code)
	case models.PlatformVimeo:
		conn, err = s.vimeoCallback(ctx, code)
	case models.PlatformLinkedin:
		conn, err = s.linkedinCallback(ctx, code)
	default:
		return fmt.Errorf("unknown platform %q", platform)
	}
	if err != nil {
		return err
	}

	conn.UserID = userID
	conn.IsActive = true

	if _, err := s.pc.Create(ctx, nil, conn); err != nil {
		return err
	}
	return nil
}

func (s *platformService) googleOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		RedirectURL:  s.cfg.GoogleRedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/youtube.upload",
			"https://www.googleapis.com/auth/youtube.force-ssl",
		},
		Endpoint: google.Endpoint,
	}
}

func (s *platformService) youtubeCallback(ctx context.Context, code string) (*models.PlatformConnection, error) {
	oauth2Config := s.googleOAuthConfig()
	if oauth2Config.ClientID == "" || oauth2Config.ClientSecret == "" || oauth2Config.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return nil, err
	}

	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if token.RefreshToken == "" {
		err = errors.New("refresh token is empty")
		slog.Info(err.Error())
		return nil, err
	}

	client := oauth2Config.Client(ctx, token)
	userInfo, err := GetUserInfo(client)
	if err != nil {
		return nil, err
	}

	return s.newConnection(models.PlatformYoutube, userInfo.ID, userInfo.Name, userInfo.Email, userInfo.Picture,
		token.AccessToken, token.RefreshToken, token.Expiry)
}

func (s *platformService) tiktokCallback(ctx context.Context, code string) (*models.PlatformConnection, error) {
	form := url.Values{}
	form.Add("client_key", s.cfg.TiktokClientKey)
	form.Add("client_secret", s.cfg.TiktokClientSecret)
	form.Add("code", code)
	form.Add("grant_type", "authorization_code")
	form.Add("redirect_uri", s.cfg.TiktokRedirectURI)

	var token transfer.TiktokTokenResponse
	if err := postForm(ctx, tiktokTokenURL, form, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, errors.New("tiktok token exchange failed")
	}

	user, err := s.tiktokUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	expiry := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return s.newConnection(models.PlatformTiktok, token.OpenID, user.DisplayName, user.Username, user.AvatarURL,
		token.AccessToken, token.RefreshToken, expiry)
}

func (s *platformService) tiktokUserInfo(ctx context.Context, accessToken string) (*transfer.TiktokUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tiktokUserURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.TiktokResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tiktok user info: %s", result.Error.Message)
	}

	return &result.Data.User, nil
}

func (s *platformService) vimeoCallback(ctx context.Context, code string) (*models.PlatformConnection, error) {
	payload := map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": s.cfg.VimeoRedirectURI,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, vimeoTokenURL, strings.NewReader(string(raw)))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.cfg.VimeoClientID, s.cfg.VimeoClientSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.vimeo.*+json;version=3.4")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var token transfer.VimeoTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || token.AccessToken == "" {
		return nil, fmt.Errorf("vimeo token exchange failed (status %d)", resp.StatusCode)
	}

	accountID := strings.TrimPrefix(token.User.URI, "/users/")

	// Vimeo access tokens do not expire; park the expiry far out so
	// the refresh job never picks the connection up.
	expiry := time.Now().AddDate(10, 0, 0)
	return s.newConnection(models.PlatformVimeo, accountID, token.User.Name, token.User.Link, token.User.Pictures.BaseLink,
		token.AccessToken, "", expiry)
}

func (s *platformService) linkedinCallback(ctx context.Context, code string) (*models.PlatformConnection, error) {
	form := url.Values{}
	form.Add("grant_type", "authorization_code")
	form.Add("code", code)
	form.Add("client_id", s.cfg.LinkedinClientID)
	form.Add("client_secret", s.cfg.LinkedinClientSecret)
	form.Add("redirect_uri", s.cfg.LinkedinRedirectURI)

	var token transfer.LinkedinTokenResponse
	if err := postForm(ctx, linkedinTokenURL, form, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, errors.New("linkedin token exchange failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, linkedinUserURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var user transfer.LinkedinUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || user.Sub == "" {
		return nil, fmt.Errorf("linkedin user info failed (status %d)", resp.StatusCode)
	}

	expiry := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return s.newConnection(models.PlatformLinkedin, user.Sub, user.Name, user.Email, user.Picture,
		token.AccessToken, token.RefreshToken, expiry)
}

func (s *platformService) newConnection(platform, accountID, name, username, picture, accessToken, refreshToken string, expiry time.Time) (*models.PlatformConnection, error) {
	encryptedAccessToken, err := utils.Encrypt([]byte(accessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	encryptedRefreshToken := ""
	if refreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(refreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return nil, err
		}
	}

	return &models.PlatformConnection{
		Platform:        platform,
		AccountID:       accountID,
		AccountName:     name,
		AccountUsername: username,
		ProfilePicture:  picture,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  expiry,
	}, nil
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.PlatformConnection, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	return s.pc.ListByUserID(ctx, userID)
}

// Disconnect revokes the platform token best-effort and deactivates
// the connection. The row stays so the job history keeps resolving.
func (s *platformService) Disconnect(ctx context.Context, userID, connectionID int64) error {
	isValid, err := s.pc.CheckByUserID(ctx, connectionID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("connection doesn't exist")
		slog.Info(err.Error())
		return err
	}

	conn, err := s.pc.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}

	decryptedAccessToken, err := utils.Decrypt(conn.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	switch conn.Platform {
	case models.PlatformYoutube:
		if err := RevokeGoogleAccess(decryptedAccessToken); err != nil {
			slog.Info(err.Error())
		}
	case models.PlatformTiktok:
		if err := RevokeTiktokAccess(conn.AccountID, decryptedAccessToken); err != nil {
			slog.Info(err.Error())
		}
	case models.PlatformVimeo:
		if err := revokeVimeoAccess(ctx, decryptedAccessToken); err != nil {
			slog.Info(err.Error())
		}
		// LinkedIn exposes no revoke endpoint for member tokens.
	}

	return s.pc.SetInactive(ctx, connectionID)
}

func (s *platformService) RefreshConnection(ctx context.Context, conn *models.PlatformConnection) error {
	switch conn.Platform {
	case models.PlatformYoutube:
		return s.refreshYoutube(ctx, conn)
	case models.PlatformTiktok:
		return s.refreshTiktok(ctx, conn)
	case models.PlatformLinkedin:
		return s.refreshLinkedin(ctx, conn)
	}
	// Vimeo tokens never expire.
	return nil
}

func (s *platformService) refreshYoutube(ctx context.Context, conn *models.PlatformConnection) error {
	decryptedRefreshToken, err := utils.Decrypt(conn.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	tokenSource := s.googleOAuthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: decryptedRefreshToken})
	token, err := tokenSource.Token()
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return s.persistTokens(ctx, conn.ID, token.AccessToken, token.RefreshToken, token.Expiry)
}

func (s *platformService) refreshTiktok(ctx context.Context, conn *models.PlatformConnection) error {
	decryptedRefreshToken, err := utils.Decrypt(conn.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Add("client_key", s.cfg.TiktokClientKey)
	form.Add("client_secret", s.cfg.TiktokClientSecret)
	form.Add("grant_type", "refresh_token")
	form.Add("refresh_token", decryptedRefreshToken)

	var token transfer.TiktokTokenResponse
	if err := postForm(ctx, tiktokTokenURL, form, &token); err != nil {
		return err
	}
	if token.AccessToken == "" {
		return errors.New("tiktok token refresh failed")
	}

	expiry := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return s.persistTokens(ctx, conn.ID, token.AccessToken, token.RefreshToken, expiry)
}

func (s *platformService) refreshLinkedin(ctx context.Context, conn *models.PlatformConnection) error {
	decryptedRefreshToken, err := utils.Decrypt(conn.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Add("grant_type", "refresh_token")
	form.Add("refresh_token", decryptedRefreshToken)
	form.Add("client_id", s.cfg.LinkedinClientID)
	form.Add("client_secret", s.cfg.LinkedinClientSecret)

	var token transfer.LinkedinTokenResponse
	if err := postForm(ctx, linkedinTokenURL, form, &token); err != nil {
		return err
	}
	if token.AccessToken == "" {
		return errors.New("linkedin token refresh failed")
	}

	expiry := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return s.persistTokens(ctx, conn.ID, token.AccessToken, token.RefreshToken, expiry)
}

func (s *platformService) persistTokens(ctx context.Context, connectionID int64, accessToken, refreshToken string, expiry time.Time) error {
	encryptedAccessToken, err := utils.Encrypt([]byte(accessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken := ""
	if refreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(refreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	return s.pc.SetTokens(ctx, connectionID, encryptedAccessToken, encryptedRefreshToken, expiry)
}

func postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Info(err.Error())
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func revokeVimeoAccess(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, "https://api.vimeo.com/tokens", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}
