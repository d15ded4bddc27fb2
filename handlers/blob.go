package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/storage"
	"github.com/lawweapons/bevisdrive/utils"

	"github.com/gin-gonic/gin"
)

// ServeBlob answers signed URLs issued by the local blob store. S3 URLs point
// at the bucket directly and never reach this route.
func ServeBlob(c *gin.Context) {
	local, ok := getServices().Blobs.(*storage.LocalStore)
	if !ok {
		utils.Error(c, http.StatusNotFound, "not found")
		return
	}

	blobPath := strings.TrimPrefix(c.Param("path"), "/")
	name := c.Query("name")
	if err := local.Verify(blobPath, c.Query("expires"), name, c.Query("sig")); err != nil {
		utils.Error(c, http.StatusForbidden, "link is invalid or has expired")
		return
	}

	f, info, err := local.Open(blobPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			utils.Error(c, http.StatusNotFound, "file not found")
			return
		}
		logger.Errorf("open blob failed: path=%s err=%v", blobPath, err)
		utils.Error(c, http.StatusInternalServerError, "read file failed")
		return
	}
	defer f.Close()

	if name != "" {
		c.Header("Content-Disposition", storage.ContentDisposition(name))
	}
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}
