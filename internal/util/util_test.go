package util

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/hypechain/backend/internal/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, target string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.GET("/x", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondErrorMapsAPIError(t *testing.T) {
	w := serve(t, "/x", func(c *gin.Context) {
		RespondError(c, errors.ValidationError("amount_lamports", "must be positive"))
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "amount_lamports", body.Field)
}

func TestRespondErrorHidesCause(t *testing.T) {
	w := serve(t, "/x", func(c *gin.Context) {
		RespondError(c, errors.Dependency("load shares", stderrors.New("dial tcp: refused")))
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")
}

func TestRespondErrorPlain(t *testing.T) {
	w := serve(t, "/x", func(c *gin.Context) {
		RespondError(c, stderrors.New("boom"))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, w).Code)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query         string
		limit, offset int
	}{
		{"", 20, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=0&offset=-3", 20, 0},
		{"?limit=5000", 100, 0},
		{"?limit=abc&offset=xyz", 20, 0},
	}
	for _, tt := range tests {
		var limit, offset int
		serve(t, "/x"+tt.query, func(c *gin.Context) {
			limit, offset = Pagination(c, 20, 100)
			c.Status(http.StatusNoContent)
		})
		assert.Equal(t, tt.limit, limit, tt.query)
		assert.Equal(t, tt.offset, offset, tt.query)
	}
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 42, ParseInt(" 42 ", 0))
	assert.Equal(t, 7, ParseInt("nope", 7))
	_, err := ParseIntParam("x")
	assert.Error(t, err)
}
