package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lawweapons/bevisdrive/models"
	"github.com/lawweapons/bevisdrive/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Stubs embed the service interface so each test only provides the calls it
// exercises.
type stubShareService struct {
	services.ShareService
	resolve func(token string, password *string) (services.ResolvedShare, error)
}

func (s *stubShareService) ResolveShare(_ context.Context, token string, password *string) (services.ResolvedShare, error) {
	return s.resolve(token, password)
}

type stubLifecycleService struct {
	services.LifecycleService
	trashBulk func(ownerID string, ids []string) services.BatchResult
	deleteErr error
	renamedTo *string
}

func (s *stubLifecycleService) Rename(_ context.Context, _ string, fileID string, name string) (models.File, error) {
	s.renamedTo = &name
	return models.File{ID: fileID, OriginalName: "kept.txt"}, nil
}

func (s *stubLifecycleService) TrashBulk(_ context.Context, ownerID string, ids []string) services.BatchResult {
	return s.trashBulk(ownerID, ids)
}

func (s *stubLifecycleService) Delete(_ context.Context, _ string, _ string) error {
	return s.deleteErr
}

type stubFileService struct {
	services.FileService
	lastList  services.ListFilesRequest
	lastOwner string
	versionID string
}

func (s *stubFileService) GetVersionDownloadURL(_ context.Context, ownerID string, fileID string, versionID string) (services.DownloadLink, error) {
	s.lastOwner = ownerID
	s.versionID = versionID
	if versionID == "missing" {
		return services.DownloadLink{}, appErr(services.KindNotFound, http.StatusNotFound, "version not found")
	}
	return services.DownloadLink{URL: "https://blobs.test/" + fileID + "?v=" + versionID, FileName: "a (v1).txt", ExpiresIn: 300}, nil
}

func (s *stubFileService) ListFiles(_ context.Context, ownerID string, req services.ListFilesRequest) (services.FileListOutput, error) {
	s.lastOwner = ownerID
	s.lastList = req
	return services.FileListOutput{Files: []models.File{}}, nil
}

// newTestRouter mounts handlers behind a fake authentication step.
func newTestRouter(container *services.Container) *gin.Engine {
	SetServices(container)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if owner := c.GetHeader("X-Test-Owner"); owner != "" {
			c.Set("owner_id", owner)
		}
		c.Next()
	})
	return r
}

func doJSON(r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Owner", "owner-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func appErr(kind services.ErrorKind, code int, msg string) error {
	return &services.AppError{HTTPCode: code, Kind: kind, Message: msg}
}

func TestResolveShareWireContract(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		err        error
		wantStatus int
		wantKey    string
	}{
		{name: "missing token", body: map[string]any{}, wantStatus: http.StatusBadRequest, wantKey: "error"},
		{name: "malformed body", body: "nope", wantStatus: http.StatusBadRequest, wantKey: "error"},
		{name: "unknown token", body: map[string]any{"token": "t"}, err: appErr(services.KindNotFound, 404, "share not found"), wantStatus: http.StatusNotFound, wantKey: "error"},
		{name: "expired", body: map[string]any{"token": "t"}, err: appErr(services.KindExpired, 410, "share expired"), wantStatus: http.StatusGone, wantKey: "error"},
		{name: "password required", body: map[string]any{"token": "t"}, err: appErr(services.KindAuthRequired, 401, "password required"), wantStatus: http.StatusUnauthorized, wantKey: "error"},
		{name: "rate limited", body: map[string]any{"token": "t", "password": "x"}, err: appErr(services.KindRateLimited, 429, "too many attempts"), wantStatus: http.StatusTooManyRequests, wantKey: "error"},
		{name: "unexpected failure", body: map[string]any{"token": "t"}, err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantKey: "error"},
		{name: "resolved", body: map[string]any{"token": "t", "password": "pw"}, wantStatus: http.StatusOK, wantKey: "signedUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPassword *string
			share := &stubShareService{resolve: func(token string, password *string) (services.ResolvedShare, error) {
				gotPassword = password
				if tt.err != nil {
					return services.ResolvedShare{}, tt.err
				}
				return services.ResolvedShare{SignedURL: "https://blobs.test/x", FileName: "a.txt"}, nil
			}}
			r := newTestRouter(&services.Container{Share: share})
			r.POST("/api/share/download", ResolveShare)

			w := doJSON(r, http.MethodPost, "/api/share/download", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body, tt.wantKey)
			if tt.name == "resolved" {
				require.NotNil(t, gotPassword)
				assert.Equal(t, "pw", *gotPassword)
			}
		})
	}
}

func TestBatchEndpointReportsPartialFailure(t *testing.T) {
	lifecycle := &stubLifecycleService{trashBulk: func(_ string, ids []string) services.BatchResult {
		result := services.BatchResult{}
		for i, id := range ids {
			ok := i != 1
			result.Items = append(result.Items, services.BatchItemResult{ID: id, Success: ok})
			if ok {
				result.Succeeded++
			} else {
				result.Failed++
			}
		}
		return result
	}}
	r := newTestRouter(&services.Container{Lifecycle: lifecycle})
	r.POST("/api/files/batch/trash", BatchTrashFiles)

	w := doJSON(r, http.MethodPost, "/api/files/batch/trash", map[string]any{"file_ids": []string{"a", "b", "c"}})
	assert.Equal(t, http.StatusMultiStatus, w.Code)

	var body struct {
		Data services.BatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data.Items, 3)
	assert.Equal(t, 1, body.Data.Failed)

	w = doJSON(r, http.MethodPost, "/api/files/batch/trash", map[string]any{"file_ids": []string{"a"}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/files/batch/trash", map[string]any{"file_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsistencyErrorCarriesIntent(t *testing.T) {
	lifecycle := &stubLifecycleService{deleteErr: &services.AppError{
		HTTPCode: http.StatusInternalServerError,
		Kind:     services.KindConsistency,
		Message:  "blob store and metadata are out of sync",
		Data:     services.ConsistencyData{IntentID: "intent-1", FileID: "f1"},
	}}
	r := newTestRouter(&services.Container{Lifecycle: lifecycle})
	r.DELETE("/api/files/:id", DeleteFile)

	w := doJSON(r, http.MethodDelete, "/api/files/f1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body struct {
		Data services.ConsistencyData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "intent-1", body.Data.IntentID)
}

func TestListFilesFolderFilterPresence(t *testing.T) {
	files := &stubFileService{}
	r := newTestRouter(&services.Container{File: files})
	r.GET("/api/files", ListFiles)

	w := doJSON(r, http.MethodGet, "/api/files?view=folder&folder=&page=2&sort_by=size", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner-1", files.lastOwner)
	require.NotNil(t, files.lastList.Folder)
	assert.Equal(t, "", *files.lastList.Folder)
	assert.Equal(t, services.ViewFolder, files.lastList.View)
	assert.Equal(t, 2, files.lastList.Page)
	assert.Equal(t, "size", files.lastList.SortBy)

	w = doJSON(r, http.MethodGet, "/api/files?q=report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, files.lastList.Folder)
	assert.Equal(t, services.ViewAll, files.lastList.View)
	assert.Equal(t, "report", files.lastList.Query)
}

func TestDownloadFileVersion(t *testing.T) {
	files := &stubFileService{}
	r := newTestRouter(&services.Container{File: files})
	r.GET("/api/files/:id/versions/:version_id/download", DownloadFileVersion)

	w := doJSON(r, http.MethodGet, "/api/files/f1/versions/v1/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner-1", files.lastOwner)
	assert.Equal(t, "v1", files.versionID)

	var body struct {
		Data services.DownloadLink `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "a (v1).txt", body.Data.FileName)

	w = doJSON(r, http.MethodGet, "/api/files/f1/versions/v1/download?redirect=1", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://blobs.test/f1?v=v1", w.Header().Get("Location"))

	w = doJSON(r, http.MethodGet, "/api/files/f1/versions/missing/download", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenameFileAcceptsEmptyName(t *testing.T) {
	lifecycle := &stubLifecycleService{}
	r := newTestRouter(&services.Container{Lifecycle: lifecycle})
	r.PATCH("/api/files/:id", RenameFile)

	w := doJSON(r, http.MethodPatch, "/api/files/f1", map[string]any{"name": ""})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, lifecycle.renamedTo)
	assert.Equal(t, "", *lifecycle.renamedTo)

	long := string(bytes.Repeat([]byte("a"), 256))
	w = doJSON(r, http.MethodPatch, "/api/files/f1", map[string]any{"name": long})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
