package controlid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/alan-neves/fechaduras/config"
	"github.com/alan-neves/fechaduras/internal/model"
)

// fakeDevice emulates the lock's onboard .fcgi API for tests.
type fakeDevice struct {
	session      string
	logins       int
	users        []rawUser
	accessLogs   []rawAccessLog
	createCalls  [][]map[string]interface{}
	modifyCalls  []map[string]interface{}
	photoUploads map[string][]byte

	// rejectNextWith makes the next non-login call fail with this message
	rejectNextWith string
	// duplicateOnBatch rejects multi-entry creates with a duplicate error
	duplicateOnBatch bool
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	return &fakeDevice{session: "sess-1", photoUploads: make(map[string][]byte)}
}

func (d *fakeDevice) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/login.fcgi", func(w http.ResponseWriter, r *http.Request) {
		d.logins++
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["login"] != "admin" || creds["password"] != "pass" {
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"session": d.session})
	})

	mux.HandleFunc("/load_objects.fcgi", func(w http.ResponseWriter, r *http.Request) {
		if d.rejectCall(w, r) {
			return
		}
		var payload struct {
			Object string `json:"object"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		switch payload.Object {
		case "users":
			json.NewEncoder(w).Encode(map[string]interface{}{"users": d.users})
		case "access_logs":
			json.NewEncoder(w).Encode(map[string]interface{}{"access_logs": d.accessLogs})
		default:
			json.NewEncoder(w).Encode(map[string]string{"error": "unknown object"})
		}
	})

	mux.HandleFunc("/create_objects.fcgi", func(w http.ResponseWriter, r *http.Request) {
		if d.rejectCall(w, r) {
			return
		}
		var payload struct {
			Values []map[string]interface{} `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if d.duplicateOnBatch && len(payload.Values) > 1 {
			json.NewEncoder(w).Encode(map[string]string{"error": "UNIQUE constraint failed"})
			return
		}
		for _, v := range payload.Values {
			id := int64(v["id"].(float64))
			for _, u := range d.users {
				if u.ID == id {
					json.NewEncoder(w).Encode(map[string]string{"error": "UNIQUE constraint failed"})
					return
				}
			}
		}
		d.createCalls = append(d.createCalls, payload.Values)
		for _, v := range payload.Values {
			d.users = append(d.users, rawUser{
				ID:           int64(v["id"].(float64)),
				Registration: v["registration"].(string),
				Name:         v["name"].(string),
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ids": []int{}})
	})

	mux.HandleFunc("/modify_objects.fcgi", func(w http.ResponseWriter, r *http.Request) {
		if d.rejectCall(w, r) {
			return
		}
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		d.modifyCalls = append(d.modifyCalls, payload)
		json.NewEncoder(w).Encode(map[string]interface{}{"changes": 1})
	})

	mux.HandleFunc("/user_set_image.fcgi", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("session") != d.session {
			json.NewEncoder(w).Encode(map[string]string{"error": "session invalid"})
			return
		}
		body, _ := io.ReadAll(r.Body)
		d.photoUploads[r.URL.Query().Get("user_id")] = body
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	return mux
}

// rejectCall enforces the session and the scripted one-shot rejection.
func (d *fakeDevice) rejectCall(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("session") != d.session {
		json.NewEncoder(w).Encode(map[string]string{"error": "session invalid"})
		return true
	}
	if d.rejectNextWith != "" {
		msg := d.rejectNextWith
		d.rejectNextWith = ""
		json.NewEncoder(w).Encode(map[string]string{"error": msg})
		return true
	}
	return false
}

type fakePhotoSource struct {
	photos map[int][]byte
}

func (f *fakePhotoSource) Photo(_ context.Context, codpes int) ([]byte, error) {
	if p, ok := f.photos[codpes]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no photo for %d", codpes)
}

func newTestDeviceClient(t *testing.T, device *fakeDevice, photos PhotoSource) *Client {
	t.Helper()
	srv := httptest.NewServer(device.handler())
	t.Cleanup(srv.Close)

	lock := &model.Lock{IP: "127.0.0.1", Port: 80, APIUser: "admin", APIPassword: "pass"}
	c := NewClient(lock, &config.DeviceConfig{
		Timeout:          5 * time.Second,
		ExternalIDOffset: 10000,
	}, photos, zap.NewNop())
	c.base = srv.URL
	return c
}

func TestListUsersMapsPhotoAndPassword(t *testing.T) {
	device := newFakeDevice(t)
	device.users = []rawUser{
		{ID: 100, Registration: "100", Name: "Ana", ImageTimestamp: 1700000000, Password: "1234"},
		{ID: 200, Registration: "200", Name: "Bruno", ImageTimestamp: 0, Password: ""},
	}

	c := newTestDeviceClient(t, device, &fakePhotoSource{})
	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}

	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if !users[0].HasPhoto || !users[0].HasPassword {
		t.Errorf("user 100 should have photo and password: %+v", users[0])
	}
	if users[1].HasPhoto || users[1].HasPassword {
		t.Errorf("user 200 should have neither: %+v", users[1])
	}
	if device.logins != 1 {
		t.Errorf("expected exactly one login, got %d", device.logins)
	}
}

func TestSessionCachedAcrossCalls(t *testing.T) {
	device := newFakeDevice(t)
	c := newTestDeviceClient(t, device, &fakePhotoSource{})

	for i := 0; i < 3; i++ {
		if _, err := c.ListUsers(context.Background()); err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
	}
	if device.logins != 1 {
		t.Errorf("expected one login for three calls, got %d", device.logins)
	}
}

func TestSessionRetriedOnceWhenInvalidated(t *testing.T) {
	device := newFakeDevice(t)
	c := newTestDeviceClient(t, device, &fakePhotoSource{})

	// prime the session, then invalidate it device-side
	if _, err := c.ListUsers(context.Background()); err != nil {
		t.Fatalf("priming call failed: %v", err)
	}
	device.session = "sess-2"

	if _, err := c.ListUsers(context.Background()); err != nil {
		t.Fatalf("call after session invalidation failed: %v", err)
	}
	if device.logins != 2 {
		t.Errorf("expected re-login, got %d logins", device.logins)
	}
}

func TestCreateUsersBatch(t *testing.T) {
	device := newFakeDevice(t)
	c := newTestDeviceClient(t, device, &fakePhotoSource{})

	entries := []model.RosterEntry{
		{Key: 100, Name: "Ana"},
		{Key: 200, Name: "Bruno"},
	}
	if err := c.CreateUsers(context.Background(), entries); err != nil {
		t.Fatalf("CreateUsers failed: %v", err)
	}

	if len(device.createCalls) != 1 || len(device.createCalls[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %v", device.createCalls)
	}
	if device.users[0].Registration != "100" {
		t.Errorf("registration not derived from key: %+v", device.users[0])
	}
}

func TestCreateUsersDuplicateFallback(t *testing.T) {
	device := newFakeDevice(t)
	device.duplicateOnBatch = true
	// 100 already enrolled, so its per-entry retry is a duplicate too
	device.users = []rawUser{{ID: 100, Registration: "100", Name: "Ana"}}

	c := newTestDeviceClient(t, device, &fakePhotoSource{})
	entries := []model.RosterEntry{
		{Key: 100, Name: "Ana"},
		{Key: 200, Name: "Bruno"},
	}
	if err := c.CreateUsers(context.Background(), entries); err != nil {
		t.Fatalf("CreateUsers failed: %v", err)
	}

	// only the genuinely new entry went through
	if len(device.createCalls) != 1 || len(device.createCalls[0]) != 1 {
		t.Fatalf("expected one single-entry create, got %v", device.createCalls)
	}
	if int64(device.createCalls[0][0]["id"].(float64)) != 200 {
		t.Errorf("expected only 200 to be created, got %v", device.createCalls[0])
	}
}

func TestCreateUsersEmptySet(t *testing.T) {
	device := newFakeDevice(t)
	c := newTestDeviceClient(t, device, &fakePhotoSource{})

	if err := c.CreateUsers(context.Background(), nil); err != nil {
		t.Fatalf("CreateUsers failed: %v", err)
	}
	if device.logins != 0 {
		t.Error("empty create should not touch the device at all")
	}
}

func TestUpdateUsersBackfillsPhotos(t *testing.T) {
	device := newFakeDevice(t)
	photos := &fakePhotoSource{photos: map[int][]byte{
		100: {0xFF, 0xD8, 0x01},
	}}
	c := newTestDeviceClient(t, device, photos)

	entries := []model.RosterEntry{{Key: 100, Name: "Ana"}}
	// 100 has a directory photo, 300 does not, 10005 is external
	err := c.UpdateUsers(context.Background(), entries, []string{"100", "300", "10005"})
	if err != nil {
		t.Fatalf("UpdateUsers failed: %v", err)
	}

	if len(device.modifyCalls) != 1 {
		t.Errorf("expected 1 modify call, got %d", len(device.modifyCalls))
	}
	if !bytes.Equal(device.photoUploads["100"], photos.photos[100]) {
		t.Errorf("photo for 100 not uploaded: %v", device.photoUploads)
	}
	// missing directory photo is skipped, not fatal; externals are never fetched
	if _, ok := device.photoUploads["300"]; ok {
		t.Error("photo uploaded for person without directory photo")
	}
	if _, ok := device.photoUploads["10005"]; ok {
		t.Error("photo backfill attempted for external user")
	}
}

func TestSetPassword(t *testing.T) {
	device := newFakeDevice(t)
	c := newTestDeviceClient(t, device, &fakePhotoSource{})

	if err := c.SetPassword(context.Background(), 100, "4321"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if len(device.modifyCalls) != 1 {
		t.Fatalf("expected 1 modify call, got %d", len(device.modifyCalls))
	}
	values := device.modifyCalls[0]["values"].(map[string]interface{})
	if values["password"] != "4321" {
		t.Errorf("unexpected modify payload: %v", device.modifyCalls[0])
	}
}

func TestLoadAccessLogsAfterID(t *testing.T) {
	device := newFakeDevice(t)
	device.accessLogs = []rawAccessLog{
		{ID: 1, Time: 1700000000, Event: 7, UserID: 100},
		{ID: 2, Time: 1700000060, Event: 7, UserID: 200},
	}

	c := newTestDeviceClient(t, device, &fakePhotoSource{})
	logs, err := c.LoadAccessLogs(context.Background(), 0)
	if err != nil {
		t.Fatalf("LoadAccessLogs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if !logs[0].Time.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("epoch not converted: %v", logs[0].Time)
	}
}

func TestDeviceRejectionMapsToErrRejected(t *testing.T) {
	device := newFakeDevice(t)
	device.rejectNextWith = "invalid value"

	c := newTestDeviceClient(t, device, &fakePhotoSource{})
	if _, err := c.ListUsers(context.Background()); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestUnreachableDevice(t *testing.T) {
	lock := &model.Lock{IP: "127.0.0.1", Port: 1, APIUser: "admin", APIPassword: "pass"}
	c := NewClient(lock, &config.DeviceConfig{
		Timeout:          time.Second,
		ExternalIDOffset: 10000,
	}, &fakePhotoSource{}, zap.NewNop())

	if _, err := c.ListUsers(context.Background()); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}
