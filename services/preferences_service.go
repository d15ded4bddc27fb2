package services

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lawweapons/bevisdrive/models"
	"github.com/lawweapons/bevisdrive/pathtree"
	"github.com/lawweapons/bevisdrive/repositories"

	"gorm.io/gorm"
)

// PreferencesInput is a partial update. Empty fields keep the stored value; a
// non-nil FolderAppearance replaces the whole map.
type PreferencesInput struct {
	Theme            string                             `json:"theme" validate:"omitempty,oneof=dark light"`
	ViewMode         string                             `json:"view_mode" validate:"omitempty,oneof=list grid"`
	SortBy           string                             `json:"sort_by" validate:"omitempty,oneof=name size created_at"`
	SortDirection    string                             `json:"sort_direction" validate:"omitempty,oneof=asc desc"`
	FolderAppearance map[string]models.FolderAppearance `json:"folder_appearance"`
}

type PreferencesService interface {
	Load(ctx context.Context, ownerID string) (models.UserPreference, error)
	Save(ctx context.Context, ownerID string, in PreferencesInput) (models.UserPreference, error)
}

type preferencesService struct {
	prefs    repositories.PreferenceRepository
	cache    *expirable.LRU[string, models.UserPreference]
	validate *validator.Validate
}

func NewPreferencesService(prefs repositories.PreferenceRepository, cacheSize int, cacheTTL time.Duration) PreferencesService {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &preferencesService{
		prefs:    prefs,
		cache:    expirable.NewLRU[string, models.UserPreference](cacheSize, nil, cacheTTL),
		validate: validator.New(),
	}
}

func defaultPreferences(ownerID string) models.UserPreference {
	return models.UserPreference{
		OwnerID:          ownerID,
		Theme:            "dark",
		ViewMode:         "list",
		SortBy:           "created_at",
		SortDirection:    "desc",
		FolderAppearance: map[string]models.FolderAppearance{},
	}
}

func (s *preferencesService) Load(ctx context.Context, ownerID string) (models.UserPreference, error) {
	if cached, ok := s.cache.Get(ownerID); ok {
		return clonePreference(cached), nil
	}

	pref, err := s.prefs.GetByOwner(ctx, nil, ownerID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.UserPreference{}, newAppError(KindInternal, "failed to load preferences", err)
		}
		pref = defaultPreferences(ownerID)
	}
	if pref.FolderAppearance == nil {
		pref.FolderAppearance = map[string]models.FolderAppearance{}
	}

	s.cache.Add(ownerID, pref)
	return clonePreference(pref), nil
}

func (s *preferencesService) Save(ctx context.Context, ownerID string, in PreferencesInput) (models.UserPreference, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.UserPreference{}, newAppError(KindValidation, "invalid preferences", err)
	}

	pref, err := s.Load(ctx, ownerID)
	if err != nil {
		return models.UserPreference{}, err
	}

	if in.Theme != "" {
		pref.Theme = in.Theme
	}
	if in.ViewMode != "" {
		pref.ViewMode = in.ViewMode
	}
	if in.SortBy != "" {
		pref.SortBy = in.SortBy
	}
	if in.SortDirection != "" {
		pref.SortDirection = in.SortDirection
	}
	if in.FolderAppearance != nil {
		appearance := make(map[string]models.FolderAppearance, len(in.FolderAppearance))
		for folder, look := range in.FolderAppearance {
			cleaned, err := pathtree.Clean(folder)
			if err != nil || cleaned == "" {
				return models.UserPreference{}, newAppError(KindValidation, "invalid folder path in folder appearance", err)
			}
			appearance[cleaned] = look
		}
		pref.FolderAppearance = appearance
	}

	s.cache.Remove(ownerID)
	if err := s.prefs.Save(ctx, nil, &pref); err != nil {
		return models.UserPreference{}, newAppError(KindInternal, "failed to save preferences", err)
	}
	s.cache.Add(ownerID, pref)
	return clonePreference(pref), nil
}

func clonePreference(pref models.UserPreference) models.UserPreference {
	pref.FolderAppearance = maps.Clone(pref.FolderAppearance)
	if pref.FolderAppearance == nil {
		pref.FolderAppearance = map[string]models.FolderAppearance{}
	}
	return pref
}
