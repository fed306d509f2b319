package github_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/m-mizutani/gt"

	githubinfra "github.com/m-mizutani/bumprisk/pkg/infra/github"
)

const sampleDiff = `diff --git a/build.gradle b/build.gradle
--- a/build.gradle
+++ b/build.gradle
@@ -1 +1 @@
-implementation 'joda-time:joda-time:2.10.13'
+implementation 'joda-time:joda-time:2.12.7'
`

func TestClient_GetPullRequestDiff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Path, "/repos/owner/repo/pulls/42")
		gt.Equal(t, r.Header.Get("Accept"), "application/vnd.github.v3.diff")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(sampleDiff))
	}))
	defer server.Close()

	client, err := githubinfra.NewClientWithHTTP(server.Client(), server.URL)
	gt.NoError(t, err)

	diff, err := client.GetPullRequestDiff(context.Background(), "owner", "repo", 42)
	gt.NoError(t, err)
	gt.Equal(t, diff, sampleDiff)
}

func TestClient_CreateComment(t *testing.T) {
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.Method, http.MethodPost)
		gt.Equal(t, r.URL.Path, "/repos/owner/repo/issues/42/comments")
		raw, err := io.ReadAll(r.Body)
		gt.NoError(t, err)
		gt.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	client, err := githubinfra.NewClientWithHTTP(server.Client(), server.URL)
	gt.NoError(t, err)

	gt.NoError(t, client.CreateComment(context.Background(), "owner", "repo", 42, "risk: Low"))
	gt.Equal(t, body["body"], "risk: Low")
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	}))
	defer server.Close()

	client, err := githubinfra.NewClientWithHTTP(server.Client(), server.URL)
	gt.NoError(t, err)

	_, err = client.GetPullRequestDiff(context.Background(), "owner", "repo", 1)
	gt.Error(t, err)
}

func TestClient_WithAppCredentials(t *testing.T) {
	appID := os.Getenv("TEST_GITHUB_APP_ID")
	installationID := os.Getenv("TEST_GITHUB_INSTALLATION_ID")
	privateKey := os.Getenv("TEST_GITHUB_PRIVATE_KEY")

	if appID == "" || installationID == "" || privateKey == "" {
		t.Skip("Test GitHub App credentials not provided via environment variables")
	}

	appIDInt, err := strconv.ParseInt(appID, 10, 64)
	gt.NoError(t, err)

	installationIDInt, err := strconv.ParseInt(installationID, 10, 64)
	gt.NoError(t, err)

	client, err := githubinfra.NewClient(appIDInt, installationIDInt, []byte(privateKey))
	gt.NoError(t, err)
	gt.Value(t, client).NotNil()
}
