// Package storage persists lead attachments. Disk writes files under a
// local directory and generates JPEG thumbnails for photos.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrEmpty is returned for zero-length uploads.
var ErrEmpty = errors.New("storage: empty object")

// Object describes a stored file.
type Object struct {
	Key          string
	URL          string
	ThumbnailURL string
	Size         int64
}

// Disk stores objects on the local filesystem.
type Disk struct {
	dir        string
	baseURL    string
	thumbWidth int
}

// NewDisk creates dir (and its thumb/ subdirectory) if needed. baseURL is
// the public prefix the files are served under.
func NewDisk(dir, baseURL string, thumbWidth int) (*Disk, error) {
	if err := os.MkdirAll(filepath.Join(dir, "thumb"), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if thumbWidth <= 0 {
		thumbWidth = 480
	}
	return &Disk{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), thumbWidth: thumbWidth}, nil
}

// Dir returns the root directory.
func (d *Disk) Dir() string { return d.dir }

// Put writes data under a fresh key derived from filename. Photos also get a
// thumbnail; a thumbnail failure is logged and does not fail the upload.
func (d *Disk) Put(ctx context.Context, filename, contentType string, data []byte) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	if len(data) == 0 {
		return Object{}, ErrEmpty
	}

	id := uuid.NewString()
	key := id + extension(filename, contentType)
	if err := os.WriteFile(filepath.Join(d.dir, key), data, 0o644); err != nil {
		return Object{}, fmt.Errorf("write object: %w", err)
	}
	obj := Object{Key: key, URL: d.baseURL + "/" + key, Size: int64(len(data))}

	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		thumbKey := path.Join("thumb", id+".jpg")
		if err := d.thumbnail(data, filepath.Join(d.dir, filepath.FromSlash(thumbKey))); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("thumbnail skipped")
		} else {
			obj.ThumbnailURL = d.baseURL + "/" + thumbKey
		}
	}
	return obj, nil
}

func (d *Disk) thumbnail(data []byte, dst string) error {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	thumb := imaging.Resize(img, d.thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, dst, imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}
	return nil
}

var mimeExt = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
	"application/pdf": ".pdf",
}

// allowedExt lists the extensions a stored key may carry. Anything else,
// markup and SVG included, is stored as .bin.
var allowedExt = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".gif":  ".gif",
	".webp": ".webp",
	".heic": ".heic",
	".mp4":  ".mp4",
	".mov":  ".mov",
	".webm": ".webm",
	".pdf":  ".pdf",
}

// extension derives the stored extension from the declared MIME type, then
// from an allowlisted filename extension.
func extension(filename, contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if e, ok := mimeExt[ct]; ok {
		return e
	}
	if e, ok := allowedExt[strings.ToLower(filepath.Ext(filepath.Base(filename)))]; ok {
		return e
	}
	return ".bin"
}
