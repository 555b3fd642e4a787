package conform

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputFromRequest(t *testing.T) {
	t.Run("QueryOnly", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users?name=bob&tag=a&tag=b", nil)
		in, err := InputFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "bob", "tag": "a"}, in.Map())
	})

	t.Run("JSONQueryKeyIsMerged", func(t *testing.T) {
		q := url.Values{}
		q.Set("name", "bob")
		q.Set(JSONQueryKey, `{"age":30,"name":"json"}`)
		req := httptest.NewRequest(http.MethodGet, "/users?"+q.Encode(), nil)

		in, err := InputFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "json", "age": 30.0}, in.Map())
	})

	t.Run("BadJSONQueryKey", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users?"+JSONQueryKey+"=%5B1%5D", nil)
		_, err := InputFromRequest(req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("JSONBodyWinsOverQuery", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name":"posted","nested":{"a":1}}`)
		req := httptest.NewRequest(http.MethodPost, "/users?name=query&page=2", body)
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

		in, err := InputFromRequest(req)
		require.NoError(t, err)

		v, _ := in.Get("name")
		assert.Equal(t, "posted", v)
		v, _ = in.Get("page")
		assert.Equal(t, "2", v)
		v, _ = in.Get("nested.a")
		assert.Equal(t, 1.0, v)
	})

	t.Run("EmptyJSONBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users?a=1", strings.NewReader("  "))
		req.Header.Set("Content-Type", ContentTypeApplicationJSON)

		in, err := InputFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": "1"}, in.Map())
	})

	t.Run("MalformedJSONBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"a":`))
		req.Header.Set("Content-Type", ContentTypeApplicationJSON)

		_, err := InputFromRequest(req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("FormBodyWinsOverQuery", func(t *testing.T) {
		form := url.Values{"name": {"posted"}, "email": {"bob@bob.com"}}
		req := httptest.NewRequest(http.MethodPost, "/users?name=query", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", ContentTypeForm)

		in, err := InputFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "posted", "email": "bob@bob.com"}, in.Map())
	})

	t.Run("MultipartForm", func(t *testing.T) {
		body := &bytes.Buffer{}
		w := multipart.NewWriter(body)
		require.NoError(t, w.WriteField("name", "multi"))
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", w.FormDataContentType())

		in, err := InputFromRequest(req)
		require.NoError(t, err)
		v, _ := in.Get("name")
		assert.Equal(t, "multi", v)
	})

	t.Run("NilRequest", func(t *testing.T) {
		_, err := InputFromRequest(nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
