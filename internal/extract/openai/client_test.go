package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snaptext/snaptext/constants"
	"github.com/snaptext/snaptext/internal/common"
	"github.com/snaptext/snaptext/internal/extract"
)

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4o-mini"}, nil)
}

func TestExtractSuccess(t *testing.T) {
	var gotBody map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(chatResponse("  Hello World\n")))
	})

	res, err := c.Extract(context.Background(), extract.Request{
		Bytes:    []byte{0xFF, 0xD8, 0xFF},
		MimeType: "image/jpeg",
		FileName: "photo.jpg",
		Mode:     constants.ModePlainText,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello World", res.Text)
	assert.Equal(t, "openai", res.Provider)

	// Request must carry the instruction and the image as a data URL part.
	msgs := gotBody["messages"].([]any)
	content := msgs[0].(map[string]any)["content"].([]any)
	text := content[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "Extract all text from this image")
	imageURL := content[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(imageURL, "data:image/jpeg;base64,"), "image url %q", imageURL)
}

func TestExtractHTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	})

	_, err := c.Extract(context.Background(), extract.Request{
		Bytes: []byte("img"), MimeType: "image/png", Mode: constants.ModePlainText,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtractionFailed), "err = %v", err)
}

func TestExtractNoChoices(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Extract(context.Background(), extract.Request{
		Bytes: []byte("img"), MimeType: "image/png", Mode: constants.ModeTabular,
	})
	assert.True(t, errors.Is(err, common.ErrExtractionFailed), "err = %v", err)
}

func TestExtractEmptyImage(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil)
	_, err := c.Extract(context.Background(), extract.Request{Mode: constants.ModePlainText})
	assert.True(t, errors.Is(err, common.ErrInvalidInput), "err = %v", err)
}

// The backend is trusted to honor the no-markdown instruction; the client does
// not strip fences itself.
func TestExtractFencePassThrough(t *testing.T) {
	fenced := "```csv\na,b\n```"
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatResponse(fenced)))
	})

	res, err := c.Extract(context.Background(), extract.Request{
		Bytes: []byte("img"), MimeType: "image/png", Mode: constants.ModeTabular,
	})
	require.NoError(t, err)
	assert.Equal(t, fenced, res.Text)
}
