package imagestore

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	// Decoders for the formats accepted on upload.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/mankai/mankai-server/pkg/config"
	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

const (
	// Ext is the extension of every stored image.
	Ext = ".jpg"

	stagingDir = ".staging"

	// URLPrefix is where the server exposes the image directory.
	URLPrefix = "/api/images/"

	// DefaultMaxPixels caps the decoded size of an upload at roughly 160MB
	// of RGBA.
	DefaultMaxPixels = 40_000_000
)

var supportedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

// Store keeps normalized JPEG files named after the id of their image row.
type Store struct {
	dir          string
	maxDimension int
	maxPixels    int
	quality      int
}

func New(cfg *config.Config) (*Store, error) {
	return NewStore(cfg.ImageDir, cfg.ImageMaxDimension, cfg.ImageMaxPixels, cfg.ImageQuality)
}

// NewStore creates the image and staging directories if needed. A
// maxDimension of zero disables downscaling. Uploads whose declared
// width*height exceeds maxPixels are rejected before decoding; zero means
// DefaultMaxPixels.
func NewStore(dir string, maxDimension, maxPixels, quality int) (*Store, error) {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if err := os.MkdirAll(filepath.Join(dir, stagingDir), 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create image directory: %s", dir)
	}
	return &Store{dir: dir, maxDimension: maxDimension, maxPixels: maxPixels, quality: quality}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns where the image with the given id is stored.
func (s *Store) Path(id int) string {
	return filepath.Join(s.dir, Filename(id))
}

// URL returns the public URL of the image with the given id.
func (s *Store) URL(id int) string {
	return URLPrefix + Filename(id)
}

func Filename(id int) string {
	return strconv.Itoa(id) + Ext
}

// ParseFilename is the inverse of Filename. Anything that isn't exactly a
// positive id followed by Ext is rejected, so the result is always safe to
// join onto the image directory.
func ParseFilename(name string) (int, bool) {
	base, ok := strings.CutSuffix(name, Ext)
	if !ok || base == "" || base[0] == '0' {
		return 0, false
	}
	id, err := strconv.Atoi(base)
	if err != nil || id <= 0 || strconv.Itoa(id) != base {
		return 0, false
	}
	return id, true
}

// Staged is a transcoded image waiting for its row id. Exactly one of Promote
// or Discard should win; calling Discard after a successful Promote is a
// no-op so it can always be deferred.
type Staged struct {
	store    *Store
	path     string
	promoted bool
}

// Stage validates and transcodes raw, then writes the result to the staging
// directory and syncs it. Nothing is visible under the image directory until
// Promote.
func (s *Store) Stage(raw []byte) (*Staged, error) {
	data, err := s.transcode(raw)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	path := filepath.Join(s.dir, stagingDir, id.String()+Ext)

	if err := writeSynced(path, data); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return &Staged{store: s, path: path}, nil
}

// Promote moves the staged file to the final path of the given image id,
// replacing whatever is there.
func (st *Staged) Promote(id int) error {
	if st.promoted {
		return errors.New("staged image already promoted")
	}
	if err := os.Rename(st.path, st.store.Path(id)); err != nil {
		return errors.WithStack(err)
	}
	st.promoted = true
	return nil
}

// Discard removes the staged file if it hasn't been promoted.
func (st *Staged) Discard() error {
	if st == nil || st.promoted {
		return nil
	}
	if err := os.Remove(st.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.WithStack(err)
	}
	return nil
}

// Materialize transcodes raw straight into the file for id.
func (s *Store) Materialize(id int, raw []byte) error {
	staged, err := s.Stage(raw)
	if err != nil {
		return err
	}
	if err := staged.Promote(id); err != nil {
		_ = staged.Discard()
		return err
	}
	return nil
}

// Delete removes the file for id. A file that's already gone is not an error.
func (s *Store) Delete(id int) error {
	err := os.Remove(s.Path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.WithStack(err)
	}
	return nil
}

// Exists reports whether the file for id is present.
func (s *Store) Exists(id int) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// PruneStaging removes staged files older than maxAge, which are left behind
// when the process dies between Stage and Promote/Discard.
func (s *Store) PruneStaging(maxAge time.Duration) (int, error) {
	dir := filepath.Join(s.dir, stagingDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, errors.WithStack(err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) transcode(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, errcodes.InvalidImage("empty payload")
	}

	mtype := mimetype.Detect(raw)
	if !mimetype.EqualsAny(mtype.String(), supportedTypes...) {
		return nil, errcodes.InvalidImage(fmt.Sprintf("unsupported type %s", mtype.String()))
	}

	// Check the header before decoding so a small file can't claim a huge
	// canvas.
	header, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, errcodes.InvalidImage("can't decode " + mtype.String())
	}
	if header.Width <= 0 || header.Height <= 0 {
		return nil, errcodes.InvalidImage("image has no pixels")
	}
	if int64(header.Width)*int64(header.Height) > int64(s.maxPixels) {
		return nil, errcodes.InvalidImage(fmt.Sprintf("image is %dx%d, larger than %d pixels", header.Width, header.Height, s.maxPixels))
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errcodes.InvalidImage("can't decode " + mtype.String())
	}

	bounds := src.Bounds()
	width, height := fit(bounds.Dx(), bounds.Dy(), s.maxDimension)
	if width == 0 || height == 0 {
		return nil, errcodes.InvalidImage("image has no pixels")
	}

	// JPEG has no alpha, so transparent regions are flattened onto white.
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// fit scales w x h down so that the longest edge is at most limit, keeping
// the aspect ratio. Images that already fit are left alone.
func fit(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.WithStack(err)
	}
	// Sync to ensure data is written to disk before the row can reference it.
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(f.Close())
}

// DecodeBase64 decodes an uploaded image, accepting an optional data URL
// prefix such as "data:image/png;base64,".
func DecodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		_, after, ok := strings.Cut(s, ",")
		if !ok {
			return nil, errcodes.InvalidImage("malformed data URL")
		}
		s = after
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errcodes.InvalidImage("payload isn't valid base64")
	}
	return raw, nil
}
