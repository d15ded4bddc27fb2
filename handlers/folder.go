package handlers

import (
	"net/http"

	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/pathtree"
	"github.com/lawweapons/bevisdrive/storage"
	"github.com/lawweapons/bevisdrive/utils"

	"github.com/gin-gonic/gin"
)

type CreateFolderRequest struct {
	Path string `json:"path" binding:"required,max=1024"`
}

type RenameFolderRequest struct {
	From string `json:"from" binding:"required,max=1024"`
	To   string `json:"to" binding:"required,max=1024"`
}

// ListFolders returns the folder forest with saved icons and colors applied.
func ListFolders(c *gin.Context) {
	tree, err := getServices().Folder.ListFolders(c.Request.Context(), ownerID(c))
	if respondServiceError(c, err) {
		return
	}
	if tree == nil {
		tree = []*pathtree.Node{}
	}
	utils.Success(c, tree)
}

func CreateFolder(c *gin.Context) {
	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	folder, err := getServices().Folder.CreateFolder(c.Request.Context(), ownerID(c), req.Path)
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithStatus(c, http.StatusCreated, folder)
}

func DeleteFolder(c *gin.Context) {
	folderPath := c.Query("path")
	if folderPath == "" {
		utils.Error(c, http.StatusBadRequest, "path is required")
		return
	}

	if err := getServices().Folder.DeleteFolder(c.Request.Context(), ownerID(c), folderPath); respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "folder deleted", nil)
}

// RenameFolder rewrites the folder prefix of every file below From. Files
// that could not be moved are reported per item.
func RenameFolder(c *gin.Context) {
	var req RenameFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := getServices().Folder.RenameFolder(c.Request.Context(), ownerID(c), req.From, req.To)
	if respondServiceError(c, err) {
		return
	}
	respondBatch(c, result)
}

// DownloadFolderArchive streams the direct children of a folder as a zip.
// Entries that fail to download are skipped and logged.
func DownloadFolderArchive(c *gin.Context) {
	folderPath := c.Query("path")
	svc := getServices().File

	files, err := svc.ListArchiveEntries(c.Request.Context(), ownerID(c), folderPath)
	if respondServiceError(c, err) {
		return
	}

	name := pathtree.Base(pathtree.Normalize(folderPath))
	if name == "" {
		name = "drive"
	}
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", storage.ContentDisposition(name+".zip"))
	c.Status(http.StatusOK)

	result, err := svc.WriteArchive(c.Request.Context(), files, c.Writer)
	if err != nil {
		logger.Errorf("write folder archive failed: owner=%s folder=%s err=%v", ownerID(c), folderPath, err)
		return
	}
	if len(result.Skipped) > 0 {
		logger.Warnf("folder archive skipped %d entries: owner=%s folder=%s", len(result.Skipped), ownerID(c), folderPath)
	}
}
