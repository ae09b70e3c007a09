package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/everstacklabs/librarian/internal/config"
)

func TestOpenPR(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/everstacklabs/models/pulls" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number": 7, "html_url": "https://github.com/everstacklabs/models/pull/7"}`))
	}))
	defer srv.Close()

	gh := config.GitHubConfig{Owner: "everstacklabs", Repo: "models", BaseBranch: "main"}
	pub := newGitHubPublisher(gh, t.TempDir(), srv.Client())
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	pub.client.BaseURL = base

	num, err := pub.openPR(context.Background(), PublishRequest{
		Branch: "librarian/ollama-models-20260505-120000",
		Title:  "chore(data): update ollama-models snapshot 2026-05-05",
		Body:   "body",
		Draft:  true,
	})
	if err != nil {
		t.Fatalf("openPR: %v", err)
	}
	if num != 7 {
		t.Errorf("number = %d, want 7", num)
	}
	if got["head"] != "librarian/ollama-models-20260505-120000" || got["base"] != "main" {
		t.Errorf("head/base = %v / %v", got["head"], got["base"])
	}
	if got["draft"] != true {
		t.Errorf("draft = %v", got["draft"])
	}
}

func TestOpenPRError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Validation Failed"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	pub := newGitHubPublisher(config.GitHubConfig{Owner: "o", Repo: "r", BaseBranch: "main"}, t.TempDir(), srv.Client())
	base, _ := url.Parse(srv.URL + "/")
	pub.client.BaseURL = base

	if _, err := pub.openPR(context.Background(), PublishRequest{Branch: "b", Title: "t"}); err == nil {
		t.Error("expected an error from a rejected pull request")
	}
}
