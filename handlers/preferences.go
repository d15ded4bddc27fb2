package handlers

import (
	"net/http"

	"github.com/lawweapons/bevisdrive/services"
	"github.com/lawweapons/bevisdrive/utils"

	"github.com/gin-gonic/gin"
)

func GetPreferences(c *gin.Context) {
	prefs, err := getServices().Preferences.Load(c.Request.Context(), ownerID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, prefs)
}

// UpdatePreferences merges the given fields into the stored preferences.
// Omitted fields keep their current value.
func UpdatePreferences(c *gin.Context) {
	var req services.PreferencesInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	prefs, err := getServices().Preferences.Save(c.Request.Context(), ownerID(c), req)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, prefs)
}
