package httputil

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Level string `json:"level" validate:"omitempty,oneof=low high"`
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"kent","level":"low"}`, ""},
		{"missing name", `{"level":"low"}`, "Name failed on 'required'"},
		{"bad level", `{"name":"kent","level":"mid"}`, "Level failed on 'oneof'"},
		{"empty body", ``, "Name failed on 'required'"},
		{"malformed", `{"name":`, "invalid request payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			var dst sample
			err := DecodeAndValidate(w, r, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "kent", dst.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeMalformedIsInvalidPayload(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`[`))
	var dst sample
	err := DecodeJSON(httptest.NewRecorder(), r, &dst)
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestRespondFailure(t *testing.T) {
	w := httptest.NewRecorder()
	RespondFailure(w, 500, "Failed", "Try later", "2024-01-01T00:00:00.000Z")

	assert.Equal(t, 500, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Failed","message":"Try later","success":false,"timestamp":"2024-01-01T00:00:00.000Z"}`, w.Body.String())
}
