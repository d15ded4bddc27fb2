package handlers

import (
	"net/http"

	"github.com/lawweapons/bevisdrive/services"
	"github.com/lawweapons/bevisdrive/utils"

	"github.com/gin-gonic/gin"
)

type FolderShareRequest struct {
	Path string `json:"path" binding:"required,max=1024"`
	services.ShareSettings
}

type RecipientRequest struct {
	Email string `json:"email" binding:"required,max=320"`
}

// ResolveShareRequest is the body of the public resolution endpoints. A
// missing token is reported as 400 before any lookup.
type ResolveShareRequest struct {
	Token    string  `json:"token"`
	Password *string `json:"password"`
	FileID   string  `json:"file_id"`
}

func GetFileShare(c *gin.Context) {
	info, err := getServices().Share.GetFileShare(c.Request.Context(), ownerID(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, info)
}

func UpdateFileShare(c *gin.Context) {
	var req services.ShareSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	info, err := getServices().Share.UpsertFileShare(c.Request.Context(), ownerID(c), c.Param("id"), req)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, info)
}

func GetFolderShare(c *gin.Context) {
	info, err := getServices().Share.GetFolderShare(c.Request.Context(), ownerID(c), c.Query("path"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, info)
}

func UpdateFolderShare(c *gin.Context) {
	var req FolderShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	info, err := getServices().Share.UpsertFolderShare(c.Request.Context(), ownerID(c), req.Path, req.ShareSettings)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, info)
}

func ListRecipients(c *gin.Context) {
	recipients, err := getServices().Share.ListUserShares(c.Request.Context(), ownerID(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, recipients)
}

func AddRecipient(c *gin.Context) {
	var req RecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	recipient, err := getServices().Share.AddUserShare(c.Request.Context(), ownerID(c), c.Param("id"), req.Email)
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithStatus(c, http.StatusCreated, recipient)
}

func RemoveRecipient(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		utils.Error(c, http.StatusBadRequest, "email is required")
		return
	}

	if err := getServices().Share.RemoveUserShare(c.Request.Context(), ownerID(c), c.Param("id"), email); respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "recipient removed", nil)
}

func bindResolveRequest(c *gin.Context) (ResolveShareRequest, bool) {
	var req ResolveShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return req, false
	}
	if req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return req, false
	}
	return req, true
}

// ResolveShare exchanges a file share token (and password when set) for a
// signed download URL. Unauthenticated.
func ResolveShare(c *gin.Context) {
	req, ok := bindResolveRequest(c)
	if !ok {
		return
	}

	resolved, err := getServices().Share.ResolveShare(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		publicError(c, err)
		return
	}
	c.JSON(http.StatusOK, resolved)
}

func ResolveFolderShare(c *gin.Context) {
	req, ok := bindResolveRequest(c)
	if !ok {
		return
	}

	view, err := getServices().Share.ResolveFolderShare(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		publicError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func DownloadFolderShareFile(c *gin.Context) {
	req, ok := bindResolveRequest(c)
	if !ok {
		return
	}
	if req.FileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_id is required"})
		return
	}

	resolved, err := getServices().Share.ResolveFolderShareFile(c.Request.Context(), req.Token, req.FileID, req.Password)
	if err != nil {
		publicError(c, err)
		return
	}
	c.JSON(http.StatusOK, resolved)
}
