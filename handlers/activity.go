package handlers

import (
	"strconv"

	"github.com/lawweapons/bevisdrive/utils"

	"github.com/gin-gonic/gin"
)

func ListActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	entries, err := getServices().Activity.List(c.Request.Context(), ownerID(c), limit)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, entries)
}
