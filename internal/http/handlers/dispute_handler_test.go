package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDisputeHandler_Open_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &DisputeHandler{disputes: nil}
	r.POST("/projects/:id/disputes", handler.Open)

	req, _ := http.NewRequest("POST", "/projects/00000000-0000-0000-0000-000000000001/disputes", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDisputeHandler_Get_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &DisputeHandler{disputes: nil}
	r.GET("/disputes/:id", func(c *gin.Context) {
		c.Set("userID", uuid.New())
		c.Set("role", "client")
		handler.Get(c)
	})

	req, _ := http.NewRequest("GET", "/disputes/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDisputeHandler_UploadEvidence_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &DisputeHandler{disputes: nil}
	r.POST("/disputes/:id/evidence", handler.UploadEvidence)

	req, _ := http.NewRequest("POST", "/disputes/00000000-0000-0000-0000-000000000001/evidence", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDisputeHandler_AddMessage_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &DisputeHandler{disputes: nil}
	r.POST("/disputes/:id/messages", handler.AddMessage)

	req, _ := http.NewRequest("POST", "/disputes/00000000-0000-0000-0000-000000000001/messages", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDisputeHandler_Close_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &DisputeHandler{disputes: nil}
	r.POST("/disputes/:id/close", handler.Close)

	req, _ := http.NewRequest("POST", "/disputes/00000000-0000-0000-0000-000000000001/close", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
