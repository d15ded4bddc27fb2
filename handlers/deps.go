package handlers

import (
	"errors"
	"net/http"

	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/services"
	"github.com/lawweapons/bevisdrive/utils"

	"github.com/gin-gonic/gin"
)

var appServices *services.Container

func SetServices(container *services.Container) {
	appServices = container
}

func getServices() *services.Container {
	if appServices == nil {
		panic("services container is not initialized")
	}
	return appServices
}

// ownerID is set by middleware.AuthMiddleware.
func ownerID(c *gin.Context) string {
	return c.GetString("owner_id")
}

func respondServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPCode >= http.StatusInternalServerError {
			logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		}
		if appErr.Data != nil {
			utils.ErrorWithData(c, appErr.HTTPCode, appErr.Message, appErr.Data)
		} else {
			utils.Error(c, appErr.HTTPCode, appErr.Message)
		}
		return true
	}
	logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	utils.Error(c, http.StatusInternalServerError, "internal error")
	return true
}

// respondBatch answers 207 when at least one item failed so clients can tell
// a partial result from a clean one without parsing the body.
func respondBatch(c *gin.Context, result services.BatchResult) {
	if result.Failed > 0 {
		utils.SuccessWithStatus(c, http.StatusMultiStatus, result)
		return
	}
	utils.Success(c, result)
}

// publicError is the body shape of the unauthenticated share endpoints.
func publicError(c *gin.Context, err error) {
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPCode >= http.StatusInternalServerError {
			logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		}
		c.JSON(appErr.HTTPCode, gin.H{"error": appErr.Message})
		return
	}
	logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
