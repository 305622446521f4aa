package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupReservationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	handler := NewHandler(nil, nil, nil, nil)
	r.POST("/api/reservations", handler.CreateReservation)
	return r
}

func TestCreateReservationRequiresUserHeader(t *testing.T) {
	router := setupReservationRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/reservations", strings.NewReader(`{"lot_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"X-User-ID header is required"}`, w.Body.String())
}

func TestCreateReservationRejectsBadUserHeader(t *testing.T) {
	router := setupReservationRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/reservations", strings.NewReader(`{"lot_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "not-a-number")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"X-User-ID must be a positive integer"}`, w.Body.String())
}
