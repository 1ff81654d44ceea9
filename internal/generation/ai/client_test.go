package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/canopus-software/aoede-backend/config"
	"github.com/canopus-software/aoede-backend/internal/generation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func completionResponse(content string) map[string]any {
	return map[string]any{
		"id":     "cmpl-test",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func testClient(srv *httptest.Server) *Client {
	return NewClient(config.AIConfig{
		BaseURL:       srv.URL,
		Token:         "test-token",
		FrontendModel: "gpt-4o",
		BackendModel:  "codestral-2501",
		DatabaseModel: "gpt-4o",
		APIModel:      "gpt-4o",
	})
}

func TestClient_Generate(t *testing.T) {
	t.Run("parses a file map response", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-4o", req["model"])

			json.NewEncoder(w).Encode(completionResponse(`{"index.html":"<html></html>","app.js":"console.log('hi')"}`))
		})

		files, err := testClient(srv).Generate(context.Background(), domain.ComponentFrontend, &domain.ProjectSpec{
			Name:        "shop",
			Description: "a small web shop",
		})
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"index.html": "<html></html>",
			"app.js":     "console.log('hi')",
		}, files)
	})

	t.Run("rejects an empty file map", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(completionResponse(`{}`))
		})

		_, err := testClient(srv).Generate(context.Background(), domain.ComponentBackend, &domain.ProjectSpec{Name: "shop"})
		assert.ErrorContains(t, err, "no files")
	})

	t.Run("retries transient API errors", func(t *testing.T) {
		var attempts atomic.Int32
		srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				http.Error(w, "upstream overloaded", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(completionResponse(`{"main.py":"app = 1"}`))
		})

		files, err := testClient(srv).Generate(context.Background(), domain.ComponentBackend, &domain.ProjectSpec{Name: "shop"})
		require.NoError(t, err)
		assert.Equal(t, int32(2), attempts.Load())
		assert.Contains(t, files, "main.py")
	})
}

func TestClient_Fix(t *testing.T) {
	fullArtifact := domain.CodeArtifact{
		domain.ComponentFrontend: {"index.html": "<html></html>"},
		domain.ComponentBackend:  {"main.py": "app = 1"},
		domain.ComponentDatabase: {"schema.sql": "CREATE TABLE t (id INT);"},
		domain.ComponentAPI:      {"openapi.yaml": "openapi: 3.0.0"},
	}

	t.Run("returns the full replacement artifact", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
			fixedB, _ := json.Marshal(fullArtifact)
			json.NewEncoder(w).Encode(completionResponse(string(fixedB)))
		})

		fixed, err := testClient(srv).Fix(context.Background(), fullArtifact, []domain.ValidationError{
			{Component: domain.ComponentBackend, Message: "undefined name 'foo'", Location: "main.py:10"},
		})
		require.NoError(t, err)
		assert.Equal(t, fullArtifact, fixed)
	})

	t.Run("rejects partial artifacts", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(completionResponse(`{"backend":{"main.py":"app = 2"}}`))
		})

		_, err := testClient(srv).Fix(context.Background(), fullArtifact, nil)
		assert.ErrorContains(t, err, "missing")
	})
}
