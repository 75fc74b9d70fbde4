package controlid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alan-neves/fechaduras/config"
	"github.com/alan-neves/fechaduras/internal/model"
)

var (
	// ErrUnreachable marks a network-level failure talking to the device.
	ErrUnreachable = errors.New("device unreachable")
	// ErrRejected marks a request the device refused (validation, bad payload).
	ErrRejected = errors.New("device rejected request")
)

// User is a device-side enrolled user. Photo and password presence are
// resolved here at the boundary; the raw image timestamp never leaves
// this package.
type User struct {
	ID           int64  `json:"id"`
	Registration string `json:"registration"`
	Name         string `json:"name"`
	HasPhoto     bool   `json:"has_photo"`
	HasPassword  bool   `json:"has_password"`
}

// AccessLog is one row of the device's onboard access log.
type AccessLog struct {
	ID     int64
	UserID int64
	Event  int
	Time   time.Time
}

// PhotoSource supplies enrollment photos for institutional users during
// photo backfill. External users have no directory photo and are skipped.
type PhotoSource interface {
	Photo(ctx context.Context, codpes int) ([]byte, error)
}

// Client talks to one lock's onboard HTTP API.
// All calls go through a session obtained from login.fcgi; the session is
// cached and re-established once when the device reports it invalid.
type Client struct {
	base     string
	login    string
	password string
	offset   int64
	http     *http.Client
	photos   PhotoSource
	logger   *zap.Logger

	mu      sync.Mutex
	session string
}

// NewClient creates a device client for one lock.
func NewClient(lock *model.Lock, cfg *config.DeviceConfig, photos PhotoSource, logger *zap.Logger) *Client {
	return &Client{
		base:     fmt.Sprintf("http://%s:%d", lock.IP, lock.Port),
		login:    lock.APIUser,
		password: lock.APIPassword,
		offset:   cfg.ExternalIDOffset,
		http:     &http.Client{Timeout: cfg.Timeout},
		photos:   photos,
		logger:   logger.With(zap.String("device", lock.IP)),
	}
}

// ── wire types ──

type rawUser struct {
	ID             int64  `json:"id"`
	Registration   string `json:"registration"`
	Name           string `json:"name"`
	Password       string `json:"password"`
	ImageTimestamp int64  `json:"image_timestamp"`
}

type rawAccessLog struct {
	ID     int64 `json:"id"`
	Time   int64 `json:"time"`
	Event  int   `json:"event"`
	UserID int64 `json:"user_id"`
}

type deviceError struct {
	Error string `json:"error"`
}

// ── operations ──

// ListUsers loads every user enrolled on the device.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out struct {
		Users []rawUser `json:"users"`
	}
	if err := c.call(ctx, "load_objects", map[string]interface{}{"object": "users"}, &out); err != nil {
		return nil, err
	}

	users := make([]User, 0, len(out.Users))
	for _, u := range out.Users {
		users = append(users, User{
			ID:           u.ID,
			Registration: u.Registration,
			Name:         u.Name,
			HasPhoto:     u.ImageTimestamp != 0,
			HasPassword:  u.Password != "",
		})
	}
	return users, nil
}

// CreateUsers enrolls the given roster entries on the device in one batch.
// The missing-set diff matches both device id and registration, so an entry
// here may already exist under one of the two fields; when the batch is
// refused for that reason the entries are retried one by one and duplicates
// are skipped, keeping the call an upsert.
func (c *Client) CreateUsers(ctx context.Context, entries []model.RosterEntry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		values = append(values, map[string]interface{}{
			"id":           int64(e.Key),
			"registration": strconv.Itoa(e.Key),
			"name":         e.Name,
		})
	}

	payload := map[string]interface{}{"object": "users", "values": values}
	err := c.call(ctx, "create_objects", payload, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrRejected) || !isDuplicate(err) {
		return err
	}

	// batch refused on a duplicate: retry per entry, skipping pre-existing ones
	for _, v := range values {
		one := map[string]interface{}{"object": "users", "values": []map[string]interface{}{v}}
		if err := c.call(ctx, "create_objects", one, nil); err != nil {
			if errors.Is(err, ErrRejected) && isDuplicate(err) {
				c.logger.Debug("user already enrolled, skipping", zap.Any("id", v["id"]))
				continue
			}
			return err
		}
	}
	return nil
}

// UpdateUsers refreshes the display data of every roster entry on the device
// and backfills photos for the device users listed in needingPhoto.
// Photo fetch failures are logged and skipped (a person without a directory
// photo must not fail the whole synchronization); device-side failures abort.
func (c *Client) UpdateUsers(ctx context.Context, entries []model.RosterEntry, needingPhoto []string) error {
	for _, e := range entries {
		payload := map[string]interface{}{
			"object": "users",
			"values": map[string]interface{}{
				"name":         e.Name,
				"registration": strconv.Itoa(e.Key),
			},
			"where": map[string]interface{}{
				"users": map[string]interface{}{"id": int64(e.Key)},
			},
		}
		if err := c.call(ctx, "modify_objects", payload, nil); err != nil {
			return err
		}
	}

	for _, id := range needingPhoto {
		key, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			c.logger.Warn("non-numeric device user id in photo backfill", zap.String("id", id))
			continue
		}
		if key >= c.offset {
			// external user: photos come from manual upload, not the directory
			continue
		}
		jpeg, err := c.photos.Photo(ctx, int(key))
		if err != nil {
			c.logger.Warn("photo fetch failed, skipping backfill",
				zap.Int64("codpes", key), zap.Error(err))
			continue
		}
		if err := c.SetPhoto(ctx, key, jpeg); err != nil {
			return err
		}
	}
	return nil
}

// SetPassword sets the keypad password of one device user.
func (c *Client) SetPassword(ctx context.Context, userID int64, password string) error {
	payload := map[string]interface{}{
		"object": "users",
		"values": map[string]interface{}{"password": password},
		"where": map[string]interface{}{
			"users": map[string]interface{}{"id": userID},
		},
	}
	return c.call(ctx, "modify_objects", payload, nil)
}

// SetPhoto pushes a JPEG as the face-recognition image of one device user.
func (c *Client) SetPhoto(ctx context.Context, userID int64, jpeg []byte) error {
	session, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/user_set_image.fcgi?user_id=%d&timestamp=%d&match=0&session=%s",
		c.base, userID, time.Now().Unix(), session)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(jpeg))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: user_set_image status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}

// LoadAccessLogs pulls the device access log rows with id greater than afterID.
func (c *Client) LoadAccessLogs(ctx context.Context, afterID int64) ([]AccessLog, error) {
	payload := map[string]interface{}{
		"object": "access_logs",
		"where": map[string]interface{}{
			"access_logs": map[string]interface{}{"id": map[string]interface{}{">": afterID}},
		},
	}
	var out struct {
		AccessLogs []rawAccessLog `json:"access_logs"`
	}
	if err := c.call(ctx, "load_objects", payload, &out); err != nil {
		return nil, err
	}

	logs := make([]AccessLog, 0, len(out.AccessLogs))
	for _, l := range out.AccessLogs {
		logs = append(logs, AccessLog{
			ID:     l.ID,
			UserID: l.UserID,
			Event:  l.Event,
			Time:   time.Unix(l.Time, 0),
		})
	}
	return logs, nil
}

// ── session and transport ──

// ensureSession returns the cached session, logging in when there is none.
func (c *Client) ensureSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != "" {
		return c.session, nil
	}

	var out struct {
		Session string `json:"session"`
	}
	err := c.post(ctx, c.base+"/login.fcgi",
		map[string]string{"login": c.login, "password": c.password}, &out)
	if err != nil {
		return "", err
	}
	if out.Session == "" {
		return "", fmt.Errorf("%w: login returned empty session", ErrRejected)
	}
	c.session = out.Session
	return c.session, nil
}

// call posts a JSON payload to one .fcgi endpoint, re-authenticating once
// when the device reports the cached session invalid.
func (c *Client) call(ctx context.Context, endpoint string, payload, out interface{}) error {
	session, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/%s.fcgi?session=%s", c.base, endpoint, session)
	err = c.post(ctx, u, payload, out)
	if err != nil && errors.Is(err, ErrRejected) && strings.Contains(err.Error(), "session") {
		c.mu.Lock()
		c.session = ""
		c.mu.Unlock()
		session, serr := c.ensureSession(ctx)
		if serr != nil {
			return serr
		}
		u = fmt.Sprintf("%s/%s.fcgi?session=%s", c.base, endpoint, session)
		err = c.post(ctx, u, payload, out)
	}
	return err
}

func (c *Client) post(ctx context.Context, u string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %v", ErrRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, truncate(raw))
	}

	var devErr deviceError
	if json.Unmarshal(raw, &devErr) == nil && devErr.Error != "" {
		return fmt.Errorf("%w: %s", ErrRejected, devErr.Error)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrRejected, err)
		}
	}
	return nil
}

// isDuplicate guesses whether a rejection means the user already exists.
func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "exists") ||
		strings.Contains(msg, "duplicate")
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
