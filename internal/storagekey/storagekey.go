// Package storagekey holds the blob key conventions shared by the gateway, the worker and the reconciler.
//
// Originals live at <userId>/<uuid>-<filename>, thumbnails next to them at
// <dir>/<basename>-thumb.<ext>. The thumbnail key is a pure function of the
// original key; the worker never asks the metadata store where to write.
package storagekey

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	thumbSuffix     = "-thumb"
	defaultFilename = "file"
)

const (
	ContentTypeJPEG   = "image/jpeg"
	ContentTypePNG    = "image/png"
	ContentTypeGIF    = "image/gif"
	ContentTypeBinary = "application/octet-stream"
)

// ValidUserID reports whether userID can be used as the first key segment.
func ValidUserID(userID string) bool {
	if userID == "" || userID == "." || userID == ".." {
		return false
	}

	return !strings.ContainsAny(userID, `/\`)
}

// Original builds a fresh key for an uploaded file.
func Original(userID string, id uuid.UUID, filename string) string {
	return userID + "/" + id.String() + "-" + cleanFilename(filename)
}

// Thumbnail derives the thumbnail key from an original key. The extension is kept
// even when the encoder cannot write that format: a .webp original gets PNG bytes
// under a -thumb.webp key, and readers go by the bytes, not the extension.
func Thumbnail(original string) string {
	dir, base := path.Split(original)

	ext := path.Ext(base)
	if ext == "" || ext == base {
		return original + thumbSuffix
	}

	return dir + strings.TrimSuffix(base, ext) + thumbSuffix + ext
}

// ContentType classifies a key by its extension.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return ContentTypeJPEG
	case ".png":
		return ContentTypePNG
	case ".gif":
		return ContentTypeGIF
	default:
		return ContentTypeBinary
	}
}

func cleanFilename(filename string) string {
	name := strings.ReplaceAll(filename, `\`, "/")
	name = path.Base(strings.TrimSpace(name))

	if name == "." || name == "/" || name == ".." || name == "" {
		return defaultFilename
	}

	return name
}
