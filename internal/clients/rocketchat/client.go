package rocketchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/envutil"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

var (
	ErrRoomNotFound   = errors.New("rocketchat: room not found")
	ErrMemberNotFound = errors.New("rocketchat: user not in room")
)

type Client interface {
	AddUserToGroup(ctx context.Context, rcUserID, groupID string) error
	RemoveUserFromGroup(ctx context.Context, rcUserID, groupID string) error
	GetMembersOfGroup(ctx context.Context, groupID string) ([]types.ChatMember, error)
	RemoveSystemMessages(ctx context.Context, groupID string, oldest, latest time.Time) error
	DeleteGroup(ctx context.Context, groupID string) error
}

type Config struct {
	BaseURL         string
	TechnicalUserID string
	TechnicalToken  string
	SystemUsername  string
	Timeout         time.Duration
	MembersPageSize int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:         envutil.String("ROCKETCHAT_BASE_URL", ""),
		TechnicalUserID: envutil.String("ROCKETCHAT_TECHNICAL_USER_ID", ""),
		TechnicalToken:  envutil.String("ROCKETCHAT_TECHNICAL_TOKEN", ""),
		SystemUsername:  envutil.String("ROCKETCHAT_SYSTEM_USERNAME", "system"),
		Timeout:         envutil.Duration("ROCKETCHAT_TIMEOUT", 15*time.Second),
		MembersPageSize: envutil.Int("ROCKETCHAT_MEMBERS_PAGE_SIZE", 100),
	}
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing ROCKETCHAT_BASE_URL")
	}
	if strings.TrimSpace(cfg.TechnicalUserID) == "" || strings.TrimSpace(cfg.TechnicalToken) == "" {
		return nil, fmt.Errorf("missing Rocket.Chat technical user credentials")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MembersPageSize <= 0 {
		cfg.MembersPageSize = 100
	}
	return &client{
		log:        log.With("client", "RocketChatClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type roomUserRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type cleanHistoryRequest struct {
	RoomID        string   `json:"roomId"`
	Oldest        string   `json:"oldest"`
	Latest        string   `json:"latest"`
	Users         []string `json:"users,omitempty"`
	ExcludePinned bool     `json:"excludePinned"`
}

type membersResponse struct {
	Members []types.ChatMember `json:"members"`
	Count   int                `json:"count"`
	Offset  int                `json:"offset"`
	Total   int                `json:"total"`
}

type statusResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"errorType"`
}

func (c *client) AddUserToGroup(ctx context.Context, rcUserID, groupID string) error {
	return c.post(ctx, "/api/v1/groups.invite", roomUserRequest{RoomID: groupID, UserID: rcUserID}, nil)
}

func (c *client) RemoveUserFromGroup(ctx context.Context, rcUserID, groupID string) error {
	return c.post(ctx, "/api/v1/groups.kick", roomUserRequest{RoomID: groupID, UserID: rcUserID}, nil)
}

// GetMembersOfGroup pages through groups.members until total is reached.
func (c *client) GetMembersOfGroup(ctx context.Context, groupID string) ([]types.ChatMember, error) {
	var members []types.ChatMember
	offset := 0
	for {
		q := url.Values{}
		q.Set("roomId", groupID)
		q.Set("count", strconv.Itoa(c.cfg.MembersPageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page membersResponse
		if err := c.do(ctx, http.MethodGet, "/api/v1/groups.members?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		members = append(members, page.Members...)
		offset += len(page.Members)
		if len(page.Members) == 0 || offset >= page.Total {
			return members, nil
		}
	}
}

func (c *client) RemoveSystemMessages(ctx context.Context, groupID string, oldest, latest time.Time) error {
	body := cleanHistoryRequest{
		RoomID:        groupID,
		Oldest:        oldest.UTC().Format(time.RFC3339Nano),
		Latest:        latest.UTC().Format(time.RFC3339Nano),
		ExcludePinned: true,
	}
	if c.cfg.SystemUsername != "" {
		body.Users = []string{c.cfg.SystemUsername}
	}
	return c.post(ctx, "/api/v1/rooms.cleanHistory", body, nil)
}

func (c *client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.post(ctx, "/api/v1/groups.delete", map[string]string{"roomId": groupID}, nil)
}

// HTTPError is a non-2xx Rocket.Chat response.
type HTTPError struct {
	StatusCode int
	ErrorType  string
	Message    string
	cause      error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "rocketchat: <nil error>"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	if e.ErrorType != "" {
		return fmt.Sprintf("rocketchat http %d (%s): %s", e.StatusCode, e.ErrorType, msg)
	}
	return fmt.Sprintf("rocketchat http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) Unwrap() error { return e.cause }

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		reader = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-Auth-Token", c.cfg.TechnicalToken)
	req.Header.Set("X-User-Id", c.cfg.TechnicalUserID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rocketchat %s %s: %w", method, path, err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	c.log.Debug("rocketchat call",
		"method", method,
		"path", strings.SplitN(path, "?", 2)[0],
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	var status statusResponse
	_ = json.Unmarshal(raw, &status)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (len(raw) > 0 && !status.Success && status.ErrorType != "") {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			ErrorType:  status.ErrorType,
			Message:    firstNonEmpty(status.Error, string(raw)),
			cause:      classify(resp.StatusCode, status.ErrorType, status.Error),
		}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("rocketchat decode %s: %w", path, err)
		}
	}
	return nil
}

// classify maps Rocket.Chat error types onto the package sentinels.
func classify(status int, errorType, message string) error {
	et := strings.ToLower(errorType)
	msg := strings.ToLower(message)
	switch {
	case et == "error-room-not-found",
		et == "error-invalid-room",
		strings.Contains(msg, "room not found"),
		strings.Contains(msg, "room-not-found"):
		return ErrRoomNotFound
	case et == "error-user-not-in-room",
		et == "error-invalid-user",
		strings.Contains(msg, "not in this room"),
		strings.Contains(msg, "user-not-in-room"):
		return ErrMemberNotFound
	}
	if status == http.StatusNotFound {
		return ErrRoomNotFound
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
