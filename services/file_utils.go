package services

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lawweapons/bevisdrive/pathtree"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeName keeps [A-Za-z0-9._-] and replaces everything else with "_".
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// ComputeTargetPath is the single place a storage path is assembled:
// {ownerID}/{folder}/{nameComponent}, with the folder segment omitted at root.
func ComputeTargetPath(ownerID, folder, nameComponent string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return ownerID + "/" + nameComponent
	}
	return ownerID + "/" + folder + "/" + nameComponent
}

// BuildStoragePath derives a fresh, never reused storage path for an upload.
func BuildStoragePath(ownerID, folder, originalName string) string {
	return ComputeTargetPath(ownerID, folder, uuid.NewString()+"-"+SanitizeName(originalName))
}

// nameComponent is the last segment of a storage path. A move keeps it so the
// object stays recognisable.
func nameComponent(storagePath string) string {
	return storagePath[strings.LastIndex(storagePath, "/")+1:]
}

func cleanFolder(folder string) (string, error) {
	cleaned, err := pathtree.Clean(folder)
	if err != nil {
		return "", newAppError(KindValidation, "invalid folder path", err)
	}
	return cleaned, nil
}

func cleanDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", newAppError(KindValidation, "file name is required", nil)
	}
	if len(name) > 255 {
		return "", newAppError(KindValidation, "file name is too long", nil)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return "", newAppError(KindValidation, "file name must not contain path separators", nil)
	}
	return name, nil
}

func getMimeType(fileName string) string {
	mimeTypes := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".bmp":  "image/bmp",
		".webp": "image/webp",
		".svg":  "image/svg+xml",
		".pdf":  "application/pdf",
		".txt":  "text/plain",
		".md":   "text/markdown",
		".csv":  "text/csv",
		".json": "application/json",
		".mp4":  "video/mp4",
		".mov":  "video/quicktime",
		".mp3":  "audio/mpeg",
		".wav":  "audio/wav",
		".zip":  "application/zip",
		".doc":  "application/msword",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return mt
	}
	return "application/octet-stream"
}
