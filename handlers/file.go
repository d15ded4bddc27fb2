package handlers

import (
	"net/http"
	"strconv"

	"github.com/lawweapons/bevisdrive/config"
	"github.com/lawweapons/bevisdrive/services"
	"github.com/lawweapons/bevisdrive/utils"

	"github.com/gin-gonic/gin"
)

type RenameFileRequest struct {
	Name string `json:"name" binding:"max=255"`
}

type MoveFileRequest struct {
	Folder string `json:"folder"`
}

type UpdateTagsRequest struct {
	Tags []string `json:"tags" binding:"max=50"`
}

type BatchRequest struct {
	FileIDs []string `json:"file_ids" binding:"required,min=1,max=500"`
}

type BatchMoveRequest struct {
	FileIDs []string `json:"file_ids" binding:"required,min=1,max=500"`
	Folder  string   `json:"folder"`
}

// ListFiles serves every file view. folder is optional; an absent folder
// lists across folders, an empty one means the root.
func ListFiles(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	req := services.ListFilesRequest{
		View:     c.DefaultQuery("view", services.ViewAll),
		Query:    c.Query("q"),
		Type:     c.Query("type"),
		SortBy:   c.Query("sort_by"),
		Order:    c.Query("order"),
		Page:     page,
		PageSize: pageSize,
	}
	if folder, ok := c.GetQuery("folder"); ok {
		req.Folder = &folder
	}

	out, err := getServices().File.ListFiles(c.Request.Context(), ownerID(c), req)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

func SearchFiles(c *gin.Context) {
	files, err := getServices().File.QuickSearch(c.Request.Context(), ownerID(c), c.Query("q"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, files)
}

func GetFile(c *gin.Context) {
	file, err := getServices().File.GetFile(c.Request.Context(), ownerID(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, file)
}

func UploadFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "missing upload file")
		return
	}
	defer file.Close()

	if limit := maxUploadSize(); limit > 0 && header.Size > limit {
		utils.Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	replace, _ := strconv.ParseBool(c.DefaultPostForm("replace", "false"))
	uploaded, err := getServices().File.UploadFile(c.Request.Context(), ownerID(c), services.UploadFileInput{
		Folder:   c.PostForm("folder"),
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Content:  file,
		Replace:  replace,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithStatus(c, http.StatusCreated, uploaded)
}

func maxUploadSize() int64 {
	if config.AppConfig == nil {
		return 0
	}
	return config.AppConfig.Storage.MaxFileSize
}

// DownloadFile issues a short-lived signed URL. With redirect=1 the client is
// sent straight to it.
func DownloadFile(c *gin.Context) {
	link, err := getServices().File.GetDownloadURL(c.Request.Context(), ownerID(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	if redirect, _ := strconv.ParseBool(c.Query("redirect")); redirect {
		c.Redirect(http.StatusFound, link.URL)
		return
	}
	utils.Success(c, link)
}

func DownloadFileVersion(c *gin.Context) {
	link, err := getServices().File.GetVersionDownloadURL(c.Request.Context(), ownerID(c), c.Param("id"), c.Param("version_id"))
	if respondServiceError(c, err) {
		return
	}
	if redirect, _ := strconv.ParseBool(c.Query("redirect")); redirect {
		c.Redirect(http.StatusFound, link.URL)
		return
	}
	utils.Success(c, link)
}

func RenameFile(c *gin.Context) {
	var req RenameFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	file, err := getServices().Lifecycle.Rename(c.Request.Context(), ownerID(c), c.Param("id"), req.Name)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, file)
}

func UpdateFileTags(c *gin.Context) {
	var req UpdateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	file, err := getServices().Lifecycle.UpdateTags(c.Request.Context(), ownerID(c), c.Param("id"), req.Tags)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, file)
}

func MoveFile(c *gin.Context) {
	var req MoveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	file, err := getServices().Move.MoveFile(c.Request.Context(), ownerID(c), c.Param("id"), req.Folder)
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "file moved", file)
}

func TrashFile(c *gin.Context) {
	file, err := getServices().Lifecycle.Trash(c.Request.Context(), ownerID(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "file moved to trash", file)
}

func RestoreFile(c *gin.Context) {
	file, err := getServices().Lifecycle.Restore(c.Request.Context(), ownerID(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "file restored", file)
}

func StarFile(c *gin.Context) {
	file, err := getServices().Lifecycle.Star(c.Request.Context(), ownerID(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, file)
}

func UnstarFile(c *gin.Context) {
	file, err := getServices().Lifecycle.Unstar(c.Request.Context(), ownerID(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, file)
}

func DeleteFile(c *gin.Context) {
	err := getServices().Lifecycle.Delete(c.Request.Context(), ownerID(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "file deleted", nil)
}

func EmptyTrash(c *gin.Context) {
	result, err := getServices().Lifecycle.EmptyTrash(c.Request.Context(), ownerID(c))
	if respondServiceError(c, err) {
		return
	}
	respondBatch(c, result)
}

func BatchMoveFiles(c *gin.Context) {
	var req BatchMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := getServices().Move.MoveBulk(c.Request.Context(), ownerID(c), req.FileIDs, req.Folder)
	if respondServiceError(c, err) {
		return
	}
	respondBatch(c, result)
}

type bulkOperation func(svc services.LifecycleService, c *gin.Context, ids []string) services.BatchResult

// batchHandler adapts a lifecycle bulk call to a JSON endpoint.
func batchHandler(op bulkOperation) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
		respondBatch(c, op(getServices().Lifecycle, c, req.FileIDs))
	}
}

var (
	BatchTrashFiles = batchHandler(func(svc services.LifecycleService, c *gin.Context, ids []string) services.BatchResult {
		return svc.TrashBulk(c.Request.Context(), ownerID(c), ids)
	})
	BatchRestoreFiles = batchHandler(func(svc services.LifecycleService, c *gin.Context, ids []string) services.BatchResult {
		return svc.RestoreBulk(c.Request.Context(), ownerID(c), ids)
	})
	BatchDeleteFiles = batchHandler(func(svc services.LifecycleService, c *gin.Context, ids []string) services.BatchResult {
		return svc.DeleteBulk(c.Request.Context(), ownerID(c), ids)
	})
	BatchStarFiles = batchHandler(func(svc services.LifecycleService, c *gin.Context, ids []string) services.BatchResult {
		return svc.StarBulk(c.Request.Context(), ownerID(c), ids)
	})
	BatchUnstarFiles = batchHandler(func(svc services.LifecycleService, c *gin.Context, ids []string) services.BatchResult {
		return svc.UnstarBulk(c.Request.Context(), ownerID(c), ids)
	})
)

func ListFileVersions(c *gin.Context) {
	versions, err := getServices().File.ListVersions(c.Request.Context(), ownerID(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, versions)
}

func RestoreFileVersion(c *gin.Context) {
	file, err := getServices().File.RestoreVersion(c.Request.Context(), ownerID(c), c.Param("id"), c.Param("version_id"))
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "version restored", file)
}

func GetStorageUsage(c *gin.Context) {
	usage, err := getServices().File.StorageUsage(c.Request.Context(), ownerID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, usage)
}
