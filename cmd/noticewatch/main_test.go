package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/noticecast/pkg/db/models"
	"github.com/angelmondragon/noticecast/pkg/enums"
	"github.com/angelmondragon/noticecast/pkg/session"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func writeData(t *testing.T, w http.ResponseWriter, status int, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": data}))
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"watch", "recent", "create", "delete", "history"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestCommandsRequireToken(t *testing.T) {
	t.Setenv(envWatchToken, "")
	_, err := executeCommand(newRootCmd(), "recent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing access token")
}

func TestCreateSendsIdempotencyKeyAndUppercasesCategory(t *testing.T) {
	var gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/admin/v1/notices", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		gotKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeData(t, w, http.StatusCreated, models.Notice{ID: 7, Title: "Down", Category: enums.NoticeCategoryUrgent})
	}))
	defer srv.Close()

	out, err := executeCommand(newRootCmd(),
		"create", "--url", srv.URL, "--token", "tok",
		"--title", "Down", "--body", "Back soon", "--category", "urgent",
		"--idempotency-key", "key-1",
	)
	require.NoError(t, err)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "URGENT", gotBody["category"])
	assert.Contains(t, out, `"id": 7`)
}

func TestDeleteReportsMissingNotice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/admin/v1/notices/9", r.URL.Path)
		writeData(t, w, http.StatusOK, map[string]bool{"deleted": false})
	}))
	defer srv.Close()

	out, err := executeCommand(newRootCmd(), "delete", "9", "--url", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Contains(t, out, "notice 9 was already gone")
}

func TestDeleteRejectsInvalidID(t *testing.T) {
	_, err := executeCommand(newRootCmd(), "delete", "abc", "--token", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid notice id")
}

func TestHistoryPassesCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		writeData(t, w, http.StatusOK, map[string]any{
			"items":  []models.Notice{{ID: 3, Title: "Old", Category: enums.NoticeCategoryInfo}},
			"cursor": "next",
		})
	}))
	defer srv.Close()

	out, err := executeCommand(newRootCmd(), "history", "-n", "5", "--cursor", "abc", "--url", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Contains(t, out, `"cursor": "next"`)
}

func TestFormatAction(t *testing.T) {
	promo := &models.Notice{ID: 1, Title: "Sale", Category: enums.NoticeCategoryPromo}
	popup := &models.Notice{ID: 2, Title: "Terms", Category: enums.NoticeCategoryInfo, ForcedPopup: true}
	urgent := &models.Notice{ID: 3, Title: "Down", Body: "line one\nline two", Category: enums.NoticeCategoryUrgent}

	assert.True(t, strings.HasPrefix(formatAction(session.Action{Kind: session.ActionInterstitial, Notice: promo}), "[promotion] #1"))
	assert.True(t, strings.HasPrefix(formatAction(session.Action{Kind: session.ActionInterstitial, Notice: popup}), "[popup] #2"))
	assert.Equal(t, "[LOCKED] #3 URGENT: Down\n    line one\n    line two", formatAction(session.Action{Kind: session.ActionLock, Notice: urgent}))
	assert.Equal(t, "clear", formatAction(session.Action{Kind: session.ActionClear}))
	assert.Empty(t, formatAction(session.Action{Kind: session.ActionPull}))
}
