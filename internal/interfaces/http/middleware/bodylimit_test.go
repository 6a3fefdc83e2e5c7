package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restorecommerce/ordering-srv-sub000/internal/interfaces/http/dto"
)

func submitBody(t *testing.T, n int) []byte {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("order-%04d", i)
	}
	body, err := json.Marshal(dto.IDsRequest{IDs: ids})
	require.NoError(t, err)
	return body
}

func submitRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.POST("/orders/submit", func(c *gin.Context) {
		var req dto.IDsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ids": len(req.IDs)})
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("accepts a batch within the limit", func(t *testing.T) {
		body := submitBody(t, 10)
		req := httptest.NewRequest(http.MethodPost, "/orders/submit", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		submitRouter(1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ids":10}`, w.Body.String())
	})

	t.Run("refuses a declared size over the limit", func(t *testing.T) {
		body := submitBody(t, 200)
		req := httptest.NewRequest(http.MethodPost, "/orders/submit", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		submitRouter(1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeRequestTooLarge)
	})

	t.Run("cuts off a chunked batch while decoding", func(t *testing.T) {
		body := submitBody(t, 200)
		// io.MultiReader hides the length so ContentLength stays unknown
		req := httptest.NewRequest(http.MethodPost, "/orders/submit", io.MultiReader(bytes.NewReader(body)))
		req.ContentLength = -1
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		submitRouter(1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeRequestTooLarge)
	})

	t.Run("malformed small body stays a bad request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders/submit", strings.NewReader(`{"ids":`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		submitRouter(1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("listing without body passes", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(10))
		router.GET("/orders", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestIsBodyTooLarge(t *testing.T) {
	assert.True(t, IsBodyTooLarge(fmt.Errorf("decode: %w", &http.MaxBytesError{Limit: 10})))
	assert.False(t, IsBodyTooLarge(io.ErrUnexpectedEOF))
}
