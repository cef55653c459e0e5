package handlers_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/robe-lope/bookbuddy-swapper/internal/api/handlers"
	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/services"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

func setupUserRouter() (*gin.Engine, *MockUserService, *MockMatchService) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	mockMatchSvc := new(MockMatchService)
	handler := handlers.NewRestUserHandler(mockUserSvc, mockMatchSvc)

	r := gin.New()
	r.GET("/v1/user/:id", handler.GetUserByID)
	return r, mockUserSvc, mockMatchSvc
}

func TestRestUserHandler_GetUserByID_Success(t *testing.T) {
	r, mockUserSvc, mockMatchSvc := setupUserRouter()

	userID := utils.NewSixID()
	expectedUser := &models.User{
		Base:      models.Base{ID: userID},
		Username:  "reader42",
		Location:  "Leeds",
		CreatedAt: time.Now().Add(-24 * time.Hour),
	}
	mockUserSvc.On("FindByID", mock.Anything, userID).Return(expectedUser, nil)
	mockMatchSvc.On("GetUserSwapStats", mock.Anything, userID).
		Return(&models.UserSwapStats{UserID: userID, ActiveMatches: 2, CompletedSwaps: 5}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/"+userID.String(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody handlers.PublicUser
	err := json.Unmarshal(w.Body.Bytes(), &respBody)
	assert.NoError(t, err)
	assert.Equal(t, userID.String(), respBody.ID)
	assert.Equal(t, "reader42", respBody.Username)
	assert.Equal(t, "Leeds", respBody.Location)
	assert.Equal(t, expectedUser.CreatedAt.Format("2006-01-02"), respBody.DateJoined)
	assert.Equal(t, 2, respBody.ActiveMatches)
	assert.Equal(t, 5, respBody.CompletedSwaps)
	mockUserSvc.AssertExpectations(t)
	mockMatchSvc.AssertExpectations(t)
}

func TestRestUserHandler_GetUserByID_StatsFailureStillServesProfile(t *testing.T) {
	r, mockUserSvc, mockMatchSvc := setupUserRouter()

	userID := utils.NewSixID()
	mockUserSvc.On("FindByID", mock.Anything, userID).
		Return(&models.User{Base: models.Base{ID: userID}, Username: "reader42"}, nil)
	mockMatchSvc.On("GetUserSwapStats", mock.Anything, userID).Return(nil, errors.New("db down"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/"+userID.String(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody handlers.PublicUser
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, 0, respBody.CompletedSwaps)
}

func TestRestUserHandler_GetUserByID_NotFound(t *testing.T) {
	r, mockUserSvc, mockMatchSvc := setupUserRouter()

	userID := utils.NewSixID()
	mockUserSvc.On("FindByID", mock.Anything, userID).Return(nil, services.ErrNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/"+userID.String(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var respBody map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &respBody)
	assert.NoError(t, err)
	assert.Contains(t, respBody["error"], "User not found")
	mockUserSvc.AssertExpectations(t)
	mockMatchSvc.AssertNotCalled(t, "GetUserSwapStats", mock.Anything, mock.Anything)
}

func TestRestUserHandler_GetUserByID_DirectoryUnavailable(t *testing.T) {
	r, mockUserSvc, _ := setupUserRouter()

	userID := utils.NewSixID()
	mockUserSvc.On("FindByID", mock.Anything, userID).
		Return(nil, fmt.Errorf("%w: user directory: timeout", services.ErrDependencyUnavailable))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/"+userID.String(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRestUserHandler_GetUserByID_InvalidID(t *testing.T) {
	r, mockUserSvc, _ := setupUserRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/not-a-valid-id", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var respBody map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &respBody)
	assert.NoError(t, err)
	assert.Contains(t, respBody["error"], "Invalid user ID format")
	mockUserSvc.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}
