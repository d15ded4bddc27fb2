package services

import (
	"context"
	"testing"
	"time"

	"github.com/lawweapons/bevisdrive/models"
)

func TestPreferencesLoadReturnsDefaults(t *testing.T) {
	repo := newFakePreferenceRepo()
	svc := NewPreferencesService(repo, 8, time.Minute)

	pref, err := svc.Load(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if pref.Theme != "dark" || pref.ViewMode != "list" || pref.SortBy != "created_at" || pref.SortDirection != "desc" {
		t.Fatalf("unexpected defaults: %+v", pref)
	}
	if pref.FolderAppearance == nil {
		t.Fatalf("expected non-nil folder appearance")
	}
}

func TestPreferencesLoadIsCached(t *testing.T) {
	repo := newFakePreferenceRepo()
	repo.prefs["owner-1"] = models.UserPreference{OwnerID: "owner-1", Theme: "light"}
	svc := NewPreferencesService(repo, 8, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		pref, err := svc.Load(ctx, "owner-1")
		if err != nil || pref.Theme != "light" {
			t.Fatalf("unexpected load: %+v %v", pref, err)
		}
	}
	if repo.gets != 1 {
		t.Fatalf("expected one repository read, got %d", repo.gets)
	}
}

func TestPreferencesSaveMergesAndRefreshesCache(t *testing.T) {
	repo := newFakePreferenceRepo()
	svc := NewPreferencesService(repo, 8, time.Minute)
	ctx := context.Background()

	saved, err := svc.Save(ctx, "owner-1", PreferencesInput{
		Theme:            "light",
		FolderAppearance: map[string]models.FolderAppearance{"/Docs/": {Icon: "book"}},
	})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if saved.Theme != "light" || saved.ViewMode != "list" {
		t.Fatalf("unexpected merge: %+v", saved)
	}
	if saved.FolderAppearance["Docs"].Icon != "book" {
		t.Fatalf("expected cleaned folder key, got %+v", saved.FolderAppearance)
	}

	saved.FolderAppearance["Docs"] = models.FolderAppearance{Icon: "mutated"}
	loaded, _ := svc.Load(ctx, "owner-1")
	if loaded.FolderAppearance["Docs"].Icon != "book" {
		t.Fatalf("cached preferences were mutated through a returned value")
	}
	if repo.saves != 1 || repo.prefs["owner-1"].Theme != "light" {
		t.Fatalf("expected stored preferences")
	}
}

func TestPreferencesSaveValidates(t *testing.T) {
	svc := NewPreferencesService(newFakePreferenceRepo(), 8, time.Minute)
	ctx := context.Background()

	bad := []PreferencesInput{
		{Theme: "neon"},
		{ViewMode: "tiles"},
		{SortBy: "owner"},
		{SortDirection: "up"},
		{FolderAppearance: map[string]models.FolderAppearance{"a//b": {}}},
		{FolderAppearance: map[string]models.FolderAppearance{"": {}}},
	}
	for i, in := range bad {
		if _, err := svc.Save(ctx, "owner-1", in); !IsKind(err, KindValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}
