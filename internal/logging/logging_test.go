package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFallsBackToInfo(t *testing.T) {
	logger := New("nonsense", "json", &bytes.Buffer{})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger = New("DEBUG", "json", &bytes.Buffer{})
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestMiddlewareWritesRequestLine(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := New("info", "json", &buf)

	r := gin.New()
	r.Use(Middleware(logger))
	r.GET("/missing", func(c *gin.Context) {
		l := FromContext(c, zerolog.Nop())
		l.Debug().Msg("not printed")
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "/missing", line["path"])
	assert.Equal(t, float64(http.StatusNotFound), line["status"])
}
