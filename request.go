package conform

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

// maxMemory bounds the memory used for multipart form parsing; the rest
// spills to temporary files.
const maxMemory = 32 << 20

// InputFromRequest builds an Input from an HTTP request.
//
// Sources, lowest priority first:
//   - query parameters (first value of each key)
//   - the "_json" query parameter, a JSON object merged key by key
//   - url encoded or multipart form values
//   - a JSON object body, when the content type is application/json
//
// Later sources overwrite earlier ones, so posted values win over the query
// string. The request body is consumed.
func InputFromRequest(r *http.Request) (*Input, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidInput)
	}

	in := NewInput(nil)

	if r.URL != nil {
		query := r.URL.Query()
		in.Merge(firstValues(query))
		if raw := query.Get(JSONQueryKey); raw != "" {
			obj, err := decodeJSONObject([]byte(raw))
			if err != nil {
				return nil, fmt.Errorf("%s query parameter: %w", JSONQueryKey, err)
			}
			in.Delete(JSONQueryKey)
			in.Merge(obj)
		}
	}

	switch mediaType(r) {
	case ContentTypeApplicationJSON:
		body, err := readBody(r)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(body)) == 0 {
			break
		}
		obj, err := decodeJSONObject(body)
		if err != nil {
			return nil, fmt.Errorf("request body: %w", err)
		}
		in.Merge(obj)
	case ContentTypeForm:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		in.Merge(firstValues(r.PostForm))
	case ContentTypeMultipartForm:
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		if r.MultipartForm != nil {
			in.Merge(firstValues(r.MultipartForm.Value))
		}
	}

	return in, nil
}

func mediaType(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		// Fall back to the part before any parameters
		mt, _, _ = strings.Cut(ct, ContentTypeDelimiter)
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

func decodeJSONObject(data []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: JSON must be an object", ErrInvalidInput)
	}
	return obj, nil
}

func firstValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vs := range values {
		if len(vs) > 0 {
			out[key] = vs[0]
		}
	}
	return out
}
