package replicado

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/alan-neves/fechaduras/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.ReplicadoConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestFindPersonnelByUnits(t *testing.T) {
	var gotQuery, gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pessoas/setores" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("setores")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"codpes":100,"nompes":"Ana"},{"codpes":200,"nompes":"Bruno"}]`))
	}))

	people, err := client.FindPersonnelByUnits(context.Background(), []string{"42", "43"})
	if err != nil {
		t.Fatalf("FindPersonnelByUnits failed: %v", err)
	}
	if gotQuery != "42,43" {
		t.Errorf("expected batched codes 42,43, got %q", gotQuery)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("missing bearer token, got %q", gotAuth)
	}
	if len(people) != 2 || people[0].Codpes != 100 || people[0].Name != "Ana" {
		t.Errorf("unexpected people: %+v", people)
	}
}

func TestFindPersonnelByUnitsEmptyCodes(t *testing.T) {
	called := false
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	people, err := client.FindPersonnelByUnits(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected nil error for empty codes, got %v", err)
	}
	if people != nil {
		t.Errorf("expected nil result, got %v", people)
	}
	if called {
		t.Error("request sent despite empty code list")
	}
}

func TestFindStudentsByPrograms(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/posgraduacao/alunos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("areas"); got != "7" {
			t.Errorf("expected areas=7, got %q", got)
		}
		w.Write([]byte(`[{"codpes":300,"nompes":"Carla"}]`))
	}))

	people, err := client.FindStudentsByPrograms(context.Background(), []string{"7"})
	if err != nil {
		t.Fatalf("FindStudentsByPrograms failed: %v", err)
	}
	if len(people) != 1 || people[0].Codpes != 300 {
		t.Errorf("unexpected people: %+v", people)
	}
}

func TestValidatePersons(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("codpes"); got != "100,999" {
			t.Errorf("expected codpes=100,999, got %q", got)
		}
		// directory only knows 100
		w.Write([]byte(`[{"codpes":100,"nompes":"Ana"}]`))
	}))

	people, err := client.ValidatePersons(context.Background(), []int{100, 999})
	if err != nil {
		t.Fatalf("ValidatePersons failed: %v", err)
	}
	if len(people) != 1 || people[0].Codpes != 100 {
		t.Errorf("unexpected people: %+v", people)
	}
}

func TestListActivePrograms(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/posgraduacao/programas" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"codare":"7","nomare":"Computação"}]`))
	}))

	programs, err := client.ListActivePrograms(context.Background())
	if err != nil {
		t.Fatalf("ListActivePrograms failed: %v", err)
	}
	if len(programs) != 1 || programs[0].Codare != "7" {
		t.Errorf("unexpected programs: %+v", programs)
	}
}

func TestPhoto(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wsfoto/100" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write(jpeg)
	}))

	got, err := client.Photo(context.Background(), 100)
	if err != nil {
		t.Fatalf("Photo failed: %v", err)
	}
	if !bytes.Equal(got, jpeg) {
		t.Errorf("photo bytes differ: %v", got)
	}
}

func TestServerErrorMapsToUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	if _, err := client.FindPersonnelByUnits(context.Background(), []string{"42"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := client.Photo(context.Background(), 100); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNetworkErrorMapsToUnavailable(t *testing.T) {
	client := NewClient(&config.ReplicadoConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: time.Second,
	}, zap.NewNop())

	if _, err := client.ListActivePrograms(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
