package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/lawweapons/bevisdrive/models"
	"github.com/lawweapons/bevisdrive/repositories"
	"github.com/lawweapons/bevisdrive/storage"

	"gorm.io/gorm"
)

type fakeTxManager struct {
	calls int
	err   error
}

func (m *fakeTxManager) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return fn(nil)
}

type fakeFileRepo struct {
	files     map[string]models.File
	order     []string
	nextID    int
	createErr error
	updateErr map[string]error
	deleteErr error
	listErr   error
	clock     time.Time
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{
		files:     map[string]models.File{},
		updateErr: map[string]error{},
		clock:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// add stores a file as-is, giving it an id and a creation time when missing.
func (r *fakeFileRepo) add(file models.File) models.File {
	r.nextID++
	if file.ID == "" {
		file.ID = fmt.Sprintf("file-%d", r.nextID)
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = r.clock.Add(time.Duration(r.nextID) * time.Minute)
	}
	if _, ok := r.files[file.ID]; !ok {
		r.order = append(r.order, file.ID)
	}
	r.files[file.ID] = file
	return file
}

func (r *fakeFileRepo) Create(_ context.Context, _ *gorm.DB, file *models.File) error {
	if r.createErr != nil {
		return r.createErr
	}
	*file = r.add(*file)
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, _ *gorm.DB, fileID string) (models.File, error) {
	file, ok := r.files[fileID]
	if !ok {
		return models.File{}, gorm.ErrRecordNotFound
	}
	return file, nil
}

func (r *fakeFileRepo) GetByIDAndOwner(_ context.Context, _ *gorm.DB, fileID string, ownerID string) (models.File, error) {
	file, ok := r.files[fileID]
	if !ok || file.OwnerID != ownerID {
		return models.File{}, gorm.ErrRecordNotFound
	}
	return file, nil
}

func (r *fakeFileRepo) GetByIDsAndOwner(ctx context.Context, tx *gorm.DB, ownerID string, fileIDs []string) ([]models.File, error) {
	var out []models.File
	for _, id := range fileIDs {
		if file, err := r.GetByIDAndOwner(ctx, tx, id, ownerID); err == nil {
			out = append(out, file)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) FindActiveByName(_ context.Context, _ *gorm.DB, ownerID string, folder string, originalName string) (models.File, error) {
	for _, id := range r.order {
		file, ok := r.files[id]
		if ok && file.OwnerID == ownerID && file.Folder == folder && file.OriginalName == originalName && !file.IsTrashed {
			return file, nil
		}
	}
	return models.File{}, gorm.ErrRecordNotFound
}

func (r *fakeFileRepo) matches(file models.File, in repositories.ListFilesInput) bool {
	if file.OwnerID != in.OwnerID || file.IsTrashed != in.Trashed {
		return false
	}
	if in.Folder != nil && file.Folder != *in.Folder {
		return false
	}
	if in.StarredOnly && !file.IsStarred {
		return false
	}
	if in.PublicOnly && !file.IsPublic {
		return false
	}
	if in.CreatedAfter != nil && file.CreatedAt.Before(*in.CreatedAfter) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(in.Query)); q != "" &&
		!strings.Contains(strings.ToLower(file.OriginalName), q) &&
		!strings.Contains(strings.ToLower(file.Description), q) {
		return false
	}
	if n := strings.ToLower(strings.TrimSpace(in.NameQuery)); n != "" && !strings.Contains(strings.ToLower(file.OriginalName), n) {
		return false
	}
	if m := strings.ToLower(strings.TrimSpace(in.MimeQuery)); m != "" && !strings.Contains(strings.ToLower(file.MimeType), m) {
		return false
	}
	return true
}

func (r *fakeFileRepo) filtered(in repositories.ListFilesInput) []models.File {
	out := []models.File{}
	for _, id := range r.order {
		if file, ok := r.files[id]; ok && r.matches(file, in) {
			out = append(out, file)
		}
	}
	return out
}

func (r *fakeFileRepo) List(_ context.Context, _ *gorm.DB, in repositories.ListFilesInput) ([]models.File, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := r.filtered(in)
	less := func(a, b models.File) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch in.SortBy {
	case "name":
		less = func(a, b models.File) bool { return a.OriginalName < b.OriginalName }
	case "size":
		less = func(a, b models.File) bool { return a.Size < b.Size }
	}
	desc := !strings.EqualFold(in.Order, "asc")
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})

	if in.Offset > 0 {
		if in.Offset >= len(out) {
			return []models.File{}, nil
		}
		out = out[in.Offset:]
	}
	if in.Limit > 0 && len(out) > in.Limit {
		out = out[:in.Limit]
	}
	return out, nil
}

func (r *fakeFileRepo) Count(_ context.Context, _ *gorm.DB, in repositories.ListFilesInput) (int64, error) {
	return int64(len(r.filtered(in))), nil
}

func (r *fakeFileRepo) ListByFolderPrefix(_ context.Context, _ *gorm.DB, ownerID string, folder string) ([]models.File, error) {
	var out []models.File
	for _, id := range r.order {
		file, ok := r.files[id]
		if !ok || file.OwnerID != ownerID {
			continue
		}
		if file.Folder == folder || strings.HasPrefix(file.Folder, folder+"/") {
			out = append(out, file)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) ListDistinctFolders(_ context.Context, _ *gorm.DB, ownerID string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, id := range r.order {
		file, ok := r.files[id]
		if !ok || file.OwnerID != ownerID || file.IsTrashed || file.Folder == "" || seen[file.Folder] {
			continue
		}
		seen[file.Folder] = true
		out = append(out, file.Folder)
	}
	return out, nil
}

func (r *fakeFileRepo) ListTrashedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, limit int) ([]models.File, error) {
	var out []models.File
	for _, id := range r.order {
		file, ok := r.files[id]
		if ok && file.IsTrashed && file.TrashedAt != nil && file.TrashedAt.Before(cutoff) {
			out = append(out, file)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeFileRepo) SumSizeByOwner(_ context.Context, _ *gorm.DB, ownerID string) (int64, error) {
	var total int64
	for _, file := range r.files {
		if file.OwnerID == ownerID {
			total += file.Size
		}
	}
	return total, nil
}

func (r *fakeFileRepo) UpdateByIDAndOwner(_ context.Context, _ *gorm.DB, fileID string, ownerID string, updates map[string]interface{}) error {
	if err := r.updateErr[fileID]; err != nil {
		return err
	}
	file, ok := r.files[fileID]
	if !ok || file.OwnerID != ownerID {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "path":
			file.Path = value.(string)
		case "folder":
			file.Folder = value.(string)
		case "bucket":
			file.Bucket = value.(string)
		case "original_name":
			file.OriginalName = value.(string)
		case "mime_type":
			file.MimeType = value.(string)
		case "size":
			file.Size = value.(int64)
		case "is_trashed":
			file.IsTrashed = value.(bool)
		case "is_starred":
			file.IsStarred = value.(bool)
		case "is_public":
			file.IsPublic = value.(bool)
		case "trashed_at":
			if value == nil {
				file.TrashedAt = nil
			} else {
				at := value.(time.Time)
				file.TrashedAt = &at
			}
		case "tags":
			var tags []string
			if err := json.Unmarshal([]byte(value.(string)), &tags); err != nil {
				return err
			}
			file.Tags = tags
		default:
			return fmt.Errorf("fake file repo: unsupported column %q", key)
		}
	}
	r.files[fileID] = file
	return nil
}

func (r *fakeFileRepo) DeleteByIDAndOwner(_ context.Context, _ *gorm.DB, fileID string, ownerID string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	file, ok := r.files[fileID]
	if !ok || file.OwnerID != ownerID {
		return gorm.ErrRecordNotFound
	}
	delete(r.files, fileID)
	return nil
}

type fakeFolderRepo struct {
	rows   []models.Folder
	nextID uint
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{}
}

func (r *fakeFolderRepo) ListPaths(_ context.Context, _ *gorm.DB, ownerID string) ([]string, error) {
	var out []string
	for _, row := range r.rows {
		if row.OwnerID == ownerID {
			out = append(out, row.Path)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) ListByPathPrefix(_ context.Context, _ *gorm.DB, ownerID string, path string) ([]models.Folder, error) {
	var out []models.Folder
	for _, row := range r.rows {
		if row.OwnerID == ownerID && (row.Path == path || strings.HasPrefix(row.Path, path+"/")) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) Ensure(_ context.Context, _ *gorm.DB, ownerID string, path string) (models.Folder, error) {
	for _, row := range r.rows {
		if row.OwnerID == ownerID && row.Path == path {
			return row, nil
		}
	}
	r.nextID++
	row := models.Folder{ID: r.nextID, OwnerID: ownerID, Path: path}
	r.rows = append(r.rows, row)
	return row, nil
}

func (r *fakeFolderRepo) UpdatePath(_ context.Context, _ *gorm.DB, folderID uint, path string) error {
	for i := range r.rows {
		if r.rows[i].ID == folderID {
			r.rows[i].Path = path
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeFolderRepo) DeleteByPathPrefix(_ context.Context, _ *gorm.DB, ownerID string, path string) error {
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.OwnerID == ownerID && (row.Path == path || strings.HasPrefix(row.Path, path+"/")) {
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return nil
}

type fakeVersionRepo struct {
	versions []models.FileVersion
	nextID   int
}

func newFakeVersionRepo() *fakeVersionRepo {
	return &fakeVersionRepo{}
}

func (r *fakeVersionRepo) Create(_ context.Context, _ *gorm.DB, version *models.FileVersion) error {
	r.nextID++
	if version.ID == "" {
		version.ID = fmt.Sprintf("version-%d", r.nextID)
	}
	r.versions = append(r.versions, *version)
	return nil
}

func (r *fakeVersionRepo) ListByFile(_ context.Context, _ *gorm.DB, fileID string) ([]models.FileVersion, error) {
	var out []models.FileVersion
	for _, v := range r.versions {
		if v.FileID == fileID {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (r *fakeVersionRepo) GetByIDAndFile(_ context.Context, _ *gorm.DB, versionID string, fileID string) (models.FileVersion, error) {
	for _, v := range r.versions {
		if v.ID == versionID && v.FileID == fileID {
			return v, nil
		}
	}
	return models.FileVersion{}, gorm.ErrRecordNotFound
}

func (r *fakeVersionRepo) MaxVersionNumber(_ context.Context, _ *gorm.DB, fileID string) (int, error) {
	max := 0
	for _, v := range r.versions {
		if v.FileID == fileID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (r *fakeVersionRepo) UpdatePath(_ context.Context, _ *gorm.DB, versionID string, path string) error {
	for i := range r.versions {
		if r.versions[i].ID == versionID {
			r.versions[i].Path = path
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeVersionRepo) DeleteByID(_ context.Context, _ *gorm.DB, versionID string) error {
	for i, v := range r.versions {
		if v.ID == versionID {
			r.versions = append(r.versions[:i], r.versions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeVersionRepo) DeleteByFile(_ context.Context, _ *gorm.DB, fileID string) error {
	kept := r.versions[:0]
	for _, v := range r.versions {
		if v.FileID != fileID {
			kept = append(kept, v)
		}
	}
	r.versions = kept
	return nil
}

type fakeFileShareRepo struct {
	shares map[string]models.FileShare
	nextID int
}

func newFakeFileShareRepo() *fakeFileShareRepo {
	return &fakeFileShareRepo{shares: map[string]models.FileShare{}}
}

func (r *fakeFileShareRepo) GetByFileID(_ context.Context, _ *gorm.DB, fileID string) (models.FileShare, error) {
	share, ok := r.shares[fileID]
	if !ok {
		return models.FileShare{}, gorm.ErrRecordNotFound
	}
	return share, nil
}

func (r *fakeFileShareRepo) GetByToken(_ context.Context, _ *gorm.DB, token string) (models.FileShare, error) {
	for _, share := range r.shares {
		if share.LinkToken == token {
			return share, nil
		}
	}
	return models.FileShare{}, gorm.ErrRecordNotFound
}

func (r *fakeFileShareRepo) Upsert(_ context.Context, _ *gorm.DB, share *models.FileShare) error {
	if share.ID == "" {
		r.nextID++
		share.ID = fmt.Sprintf("share-%d", r.nextID)
	}
	r.shares[share.FileID] = *share
	return nil
}

func (r *fakeFileShareRepo) DeleteByFileID(_ context.Context, _ *gorm.DB, fileID string) error {
	delete(r.shares, fileID)
	return nil
}

func (r *fakeFileShareRepo) IncrementViewCount(_ context.Context, _ *gorm.DB, shareID string) error {
	for fileID, share := range r.shares {
		if share.ID == shareID {
			share.ViewCount++
			r.shares[fileID] = share
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeFileShareRepo) DeleteExpired(_ context.Context, _ *gorm.DB, now time.Time) (int64, error) {
	var n int64
	for fileID, share := range r.shares {
		if share.ExpiresAt != nil && share.ExpiresAt.Before(now) {
			delete(r.shares, fileID)
			n++
		}
	}
	return n, nil
}

type fakeFolderShareRepo struct {
	shares []models.FolderShare
	nextID int
}

func newFakeFolderShareRepo() *fakeFolderShareRepo {
	return &fakeFolderShareRepo{}
}

func (r *fakeFolderShareRepo) GetByOwnerAndPath(_ context.Context, _ *gorm.DB, ownerID string, folderPath string) (models.FolderShare, error) {
	for _, share := range r.shares {
		if share.OwnerID == ownerID && share.FolderPath == folderPath {
			return share, nil
		}
	}
	return models.FolderShare{}, gorm.ErrRecordNotFound
}

func (r *fakeFolderShareRepo) GetByToken(_ context.Context, _ *gorm.DB, token string) (models.FolderShare, error) {
	for _, share := range r.shares {
		if share.LinkToken == token {
			return share, nil
		}
	}
	return models.FolderShare{}, gorm.ErrRecordNotFound
}

func (r *fakeFolderShareRepo) Upsert(_ context.Context, _ *gorm.DB, share *models.FolderShare) error {
	for i, existing := range r.shares {
		if existing.OwnerID == share.OwnerID && existing.FolderPath == share.FolderPath {
			share.ID = existing.ID
			r.shares[i] = *share
			return nil
		}
	}
	r.nextID++
	share.ID = fmt.Sprintf("folder-share-%d", r.nextID)
	r.shares = append(r.shares, *share)
	return nil
}

func (r *fakeFolderShareRepo) DeleteByOwnerAndPath(_ context.Context, _ *gorm.DB, ownerID string, folderPath string) error {
	for i, share := range r.shares {
		if share.OwnerID == ownerID && share.FolderPath == folderPath {
			r.shares = append(r.shares[:i], r.shares[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeFolderShareRepo) ListByPathPrefix(_ context.Context, _ *gorm.DB, ownerID string, folderPath string) ([]models.FolderShare, error) {
	var out []models.FolderShare
	for _, share := range r.shares {
		if share.OwnerID == ownerID && (share.FolderPath == folderPath || strings.HasPrefix(share.FolderPath, folderPath+"/")) {
			out = append(out, share)
		}
	}
	return out, nil
}

func (r *fakeFolderShareRepo) UpdatePath(_ context.Context, _ *gorm.DB, shareID string, folderPath string) error {
	for i := range r.shares {
		if r.shares[i].ID == shareID {
			r.shares[i].FolderPath = folderPath
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeFolderShareRepo) IncrementViewCount(_ context.Context, _ *gorm.DB, shareID string) error {
	for i := range r.shares {
		if r.shares[i].ID == shareID {
			r.shares[i].ViewCount++
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeFolderShareRepo) DeleteExpired(_ context.Context, _ *gorm.DB, now time.Time) (int64, error) {
	var n int64
	kept := r.shares[:0]
	for _, share := range r.shares {
		if share.ExpiresAt != nil && share.ExpiresAt.Before(now) {
			n++
			continue
		}
		kept = append(kept, share)
	}
	r.shares = kept
	return n, nil
}

type fakeUserShareRepo struct {
	shares []models.FileUserShare
}

func newFakeUserShareRepo() *fakeUserShareRepo {
	return &fakeUserShareRepo{}
}

func (r *fakeUserShareRepo) ListByFile(_ context.Context, _ *gorm.DB, fileID string) ([]models.FileUserShare, error) {
	var out []models.FileUserShare
	for _, share := range r.shares {
		if share.FileID == fileID {
			out = append(out, share)
		}
	}
	return out, nil
}

func (r *fakeUserShareRepo) Create(_ context.Context, _ *gorm.DB, share *models.FileUserShare) error {
	for _, existing := range r.shares {
		if existing.FileID == share.FileID && existing.Email == share.Email {
			return nil
		}
	}
	share.ID = uint(len(r.shares) + 1)
	r.shares = append(r.shares, *share)
	return nil
}

func (r *fakeUserShareRepo) Delete(_ context.Context, _ *gorm.DB, fileID string, email string) error {
	for i, share := range r.shares {
		if share.FileID == fileID && share.Email == email {
			r.shares = append(r.shares[:i], r.shares[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeUserShareRepo) DeleteByFile(_ context.Context, _ *gorm.DB, fileID string) error {
	kept := r.shares[:0]
	for _, share := range r.shares {
		if share.FileID != fileID {
			kept = append(kept, share)
		}
	}
	r.shares = kept
	return nil
}

type fakeActivityRepo struct {
	entries   []models.ActivityLog
	createErr error
}

func (r *fakeActivityRepo) Create(_ context.Context, _ *gorm.DB, entry *models.ActivityLog) error {
	if r.createErr != nil {
		return r.createErr
	}
	entry.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeActivityRepo) ListByUser(_ context.Context, _ *gorm.DB, userID string, limit int) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].UserID == userID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) actions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeIntentRepo struct {
	intents map[string]models.MoveIntent
	order   []string
	nextID  int
}

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{intents: map[string]models.MoveIntent{}}
}

func (r *fakeIntentRepo) Create(_ context.Context, _ *gorm.DB, intent *models.MoveIntent) error {
	r.nextID++
	if intent.ID == "" {
		intent.ID = fmt.Sprintf("intent-%d", r.nextID)
	}
	r.intents[intent.ID] = *intent
	r.order = append(r.order, intent.ID)
	return nil
}

func (r *fakeIntentRepo) GetByID(_ context.Context, _ *gorm.DB, intentID string) (models.MoveIntent, error) {
	intent, ok := r.intents[intentID]
	if !ok {
		return models.MoveIntent{}, gorm.ErrRecordNotFound
	}
	return intent, nil
}

func (r *fakeIntentRepo) Update(_ context.Context, _ *gorm.DB, intentID string, updates map[string]interface{}) error {
	intent, ok := r.intents[intentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "status":
			intent.Status = value.(string)
		case "last_error":
			intent.LastError = value.(string)
		case "attempts":
			intent.Attempts = value.(int)
		}
	}
	r.intents[intentID] = intent
	return nil
}

func (r *fakeIntentRepo) ListStale(_ context.Context, _ *gorm.DB, before time.Time, limit int) ([]models.MoveIntent, error) {
	var out []models.MoveIntent
	for _, id := range r.order {
		intent := r.intents[id]
		if intent.Status != models.IntentStatusPending && intent.Status != models.IntentStatusBlobDone {
			continue
		}
		if intent.UpdatedAt.Before(before) {
			out = append(out, intent)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeIntentRepo) last() models.MoveIntent {
	if len(r.order) == 0 {
		return models.MoveIntent{}
	}
	return r.intents[r.order[len(r.order)-1]]
}

type fakePreferenceRepo struct {
	prefs map[string]models.UserPreference
	gets  int
	saves int
}

func newFakePreferenceRepo() *fakePreferenceRepo {
	return &fakePreferenceRepo{prefs: map[string]models.UserPreference{}}
}

func (r *fakePreferenceRepo) GetByOwner(_ context.Context, _ *gorm.DB, ownerID string) (models.UserPreference, error) {
	r.gets++
	pref, ok := r.prefs[ownerID]
	if !ok {
		return models.UserPreference{}, gorm.ErrRecordNotFound
	}
	return pref, nil
}

func (r *fakePreferenceRepo) Save(_ context.Context, _ *gorm.DB, pref *models.UserPreference) error {
	r.saves++
	r.prefs[pref.OwnerID] = *pref
	return nil
}

type fakeShareAttempts struct {
	failures map[string]int64
	err      error
}

func newFakeShareAttempts() *fakeShareAttempts {
	return &fakeShareAttempts{failures: map[string]int64{}}
}

func (r *fakeShareAttempts) Failures(_ context.Context, token string) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.failures[token], nil
}

func (r *fakeShareAttempts) RecordFailure(_ context.Context, token string, _ int) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.failures[token]++
	return r.failures[token], nil
}

func (r *fakeShareAttempts) Reset(_ context.Context, token string) error {
	delete(r.failures, token)
	return nil
}

type fakeBlobStore struct {
	objects     map[string][]byte
	moveErr     map[string]error
	downloadErr map[string]error
	uploadErr   error
	removeErr   error
	signErr     error
	existsErr   error
	moves       []string
	removed     []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		objects:     map[string][]byte{},
		moveErr:     map[string]error{},
		downloadErr: map[string]error{},
	}
}

func (b *fakeBlobStore) Bucket() string {
	return "test-bucket"
}

func (b *fakeBlobStore) Upload(_ context.Context, path string, r io.Reader, _ int64, _ string) error {
	if b.uploadErr != nil {
		return b.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[path] = data
	return nil
}

func (b *fakeBlobStore) Move(_ context.Context, oldPath, newPath string) error {
	if err := b.moveErr[oldPath]; err != nil {
		return err
	}
	data, ok := b.objects[oldPath]
	if !ok {
		return storage.ErrObjectNotFound
	}
	b.objects[newPath] = data
	delete(b.objects, oldPath)
	b.moves = append(b.moves, oldPath+"->"+newPath)
	return nil
}

func (b *fakeBlobStore) Remove(_ context.Context, paths []string) error {
	if b.removeErr != nil {
		return b.removeErr
	}
	for _, p := range paths {
		delete(b.objects, p)
		b.removed = append(b.removed, p)
	}
	return nil
}

func (b *fakeBlobStore) Download(_ context.Context, path string) (io.ReadCloser, error) {
	if err := b.downloadErr[path]; err != nil {
		return nil, err
	}
	data, ok := b.objects[path]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBlobStore) CreateSignedURL(_ context.Context, path string, ttl time.Duration, opts storage.SignedURLOptions) (string, error) {
	if b.signErr != nil {
		return "", b.signErr
	}
	q := url.Values{}
	q.Set("ttl", fmt.Sprintf("%d", int(ttl/time.Second)))
	q.Set("name", opts.DownloadName)
	return "https://blobs.test/" + path + "?" + q.Encode(), nil
}

func (b *fakeBlobStore) Exists(_ context.Context, path string) (bool, error) {
	if b.existsErr != nil {
		return false, b.existsErr
	}
	_, ok := b.objects[path]
	return ok, nil
}

var errBoom = errors.New("boom")

// fixture wires every service against the in-memory fakes.
type fixture struct {
	tx           *fakeTxManager
	files        *fakeFileRepo
	folders      *fakeFolderRepo
	versions     *fakeVersionRepo
	fileShares   *fakeFileShareRepo
	folderShares *fakeFolderShareRepo
	userShares   *fakeUserShareRepo
	activity     *fakeActivityRepo
	intents      *fakeIntentRepo
	prefs        *fakePreferenceRepo
	attempts     *fakeShareAttempts
	blobs        *fakeBlobStore
}

func newFixture() *fixture {
	return &fixture{
		tx:           &fakeTxManager{},
		files:        newFakeFileRepo(),
		folders:      newFakeFolderRepo(),
		versions:     newFakeVersionRepo(),
		fileShares:   newFakeFileShareRepo(),
		folderShares: newFakeFolderShareRepo(),
		userShares:   newFakeUserShareRepo(),
		activity:     &fakeActivityRepo{},
		intents:      newFakeIntentRepo(),
		prefs:        newFakePreferenceRepo(),
		attempts:     newFakeShareAttempts(),
		blobs:        newFakeBlobStore(),
	}
}

func (f *fixture) repos() repositories.Container {
	return repositories.Container{
		TxManager:     f.tx,
		Files:         f.files,
		Folders:       f.folders,
		Versions:      f.versions,
		FileShares:    f.fileShares,
		FolderShares:  f.folderShares,
		UserShares:    f.userShares,
		Activity:      f.activity,
		Intents:       f.intents,
		Preferences:   f.prefs,
		ShareAttempts: f.attempts,
	}
}

// storeFile adds a file row together with its blob.
func (f *fixture) storeFile(ownerID, folder, name string, size int64) models.File {
	path := BuildStoragePath(ownerID, folder, name)
	f.blobs.objects[path] = bytes.Repeat([]byte("x"), int(size))
	return f.files.add(models.File{
		OwnerID:      ownerID,
		Bucket:       "test-bucket",
		Path:         path,
		OriginalName: name,
		Size:         size,
		MimeType:     getMimeType(name),
		Folder:       folder,
	})
}
