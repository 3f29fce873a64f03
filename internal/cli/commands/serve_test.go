package commands

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logtest "github.com/leapstack-labs/leapbind/internal/testutil"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewServeCommand()
	assert.Equal(t, "serve", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("addr"))
	assert.Equal(t, "w", cmd.Flags().Lookup("watch").Shorthand)
}

func TestBindHandler_Bind(t *testing.T) {
	h := NewBindHandler(newTestSession(t, testConfig(t)), logtest.NewTestLogger(t))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		check      func(t *testing.T, body []byte)
	}{
		{
			name:       "expression",
			body:       `{"expr": "o.total * 2", "from": ["o=orders"]}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var got bindJSON
				require.NoError(t, json.Unmarshal(body, &got))
				assert.Equal(t, "numeric", got.Type)
				assert.Equal(t, "o.total * 2", got.Input)
			},
		},
		{
			name:       "expected type",
			body:       `{"expr": "c.id", "expect": "int8"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var got bindJSON
				require.NoError(t, json.Unmarshal(body, &got))
				assert.Equal(t, "int8", got.Type)
			},
		},
		{
			name:       "bind error",
			body:       `{"expr": "c.id + no_such_column"}`,
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body []byte) {
				var got errorJSON
				require.NoError(t, json.Unmarshal(body, &got))
				assert.Equal(t, string(core.ErrAmbiguousOrUnknownName), got.Kind)
				assert.Equal(t, "no_such_column", got.Name)
				assert.Equal(t, 1, got.Line)
				assert.Equal(t, 8, got.Column)
			},
		},
		{
			name:       "parse error",
			body:       `{"expr": "1 +"}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body []byte) {
				var got errorJSON
				require.NoError(t, json.Unmarshal(body, &got))
				assert.Empty(t, got.Kind)
				assert.Equal(t, 1, got.Line)
			},
		},
		{
			name:       "malformed body",
			body:       `{"expr": `,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"expression": "1"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/bind", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.check != nil {
				tt.check(t, rec.Body.Bytes())
			}
		})
	}
}

func TestBindHandler_Relations(t *testing.T) {
	h := NewBindHandler(newTestSession(t, testConfig(t)), nil)

	rec := doRequest(t, h, http.MethodGet, "/relations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rels []relationJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rels))
	assert.Len(t, rels, 2)

	rec = doRequest(t, h, http.MethodGet, "/relations/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rel relationJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rel))
	assert.Equal(t, "orders", rel.Name)
	assert.Equal(t, columnJSON{Name: "total", Type: "numeric(12,2)"}, rel.Columns[2])

	rec = doRequest(t, h, http.MethodGet, "/relations/invoices", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBindHandler_HealthAndReload(t *testing.T) {
	cfg := testConfig(t)
	h := NewBindHandler(newTestSession(t, cfg), nil)

	rec := doRequest(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doRequest(t, h, http.MethodPost, "/reload", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog.yaml")

	rec = doRequest(t, h, http.MethodGet, "/bind", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
