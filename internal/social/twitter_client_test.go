package social

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"log/slog"
)

func testCredentials() Credentials {
	return Credentials{
		APIKey:            "key",
		APISecret:         "secret",
		AccessToken:       "token",
		AccessTokenSecret: "token-secret",
	}
}

func newTestClient(serverURL string) *Client {
	client := NewClient(testCredentials(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	client.baseURL = serverURL
	return client
}

func TestCredentialsComplete(t *testing.T) {
	if !testCredentials().Complete() {
		t.Error("expected complete credentials")
	}

	partial := testCredentials()
	partial.AccessTokenSecret = ""
	if partial.Complete() {
		t.Error("expected incomplete credentials")
	}
}

func TestPostTweetTopLevel(t *testing.T) {
	var gotBody tweetRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"data":{"id":"1234567890","text":"hello"}}`)
	}))
	defer server.Close()

	id, err := newTestClient(server.URL).PostTweet(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("PostTweet returned error: %v", err)
	}

	if id != "1234567890" {
		t.Errorf("expected tweet id 1234567890, got %q", id)
	}
	if gotBody.Text != "hello" {
		t.Errorf("expected text %q, got %q", "hello", gotBody.Text)
	}
	if gotBody.Reply != nil {
		t.Errorf("expected no reply field for a top-level post, got %+v", gotBody.Reply)
	}
	if !strings.HasPrefix(gotAuth, "OAuth ") {
		t.Errorf("expected OAuth authorization header, got %q", gotAuth)
	}
	if !strings.Contains(gotAuth, "oauth_signature=") {
		t.Errorf("authorization header missing signature: %q", gotAuth)
	}
}

func TestPostTweetThreadsReply(t *testing.T) {
	var gotBody tweetRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"data":{"id":"2","text":"a reply"}}`)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).PostTweet(context.Background(), "a reply", "1"); err != nil {
		t.Fatalf("PostTweet returned error: %v", err)
	}

	if gotBody.Reply == nil || gotBody.Reply.InReplyToTweetID != "1" {
		t.Errorf("expected reply threading to tweet 1, got %+v", gotBody.Reply)
	}
}

func TestPostTweetAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"errors":[{"message":"duplicate content","type":"about:blank"}]}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).PostTweet(context.Background(), "hello again", "")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
	if !strings.Contains(err.Error(), "duplicate content") {
		t.Errorf("expected platform error message, got: %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/users/me" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, `{"data":{"id":"99","username":"someone"}}`)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).ValidateCredentials(context.Background()); err != nil {
		t.Fatalf("ValidateCredentials returned error: %v", err)
	}
}

func TestValidateCredentialsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).ValidateCredentials(context.Background()); err == nil {
		t.Fatal("expected error for rejected credentials")
	}
}
