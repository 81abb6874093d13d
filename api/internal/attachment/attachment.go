// Package attachment loads textbook photos and prepares them for upload.
package attachment

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// Image is one inline attachment of a generation request.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Loader reads and normalises images. MaxSide > 0 downscales anything
// larger so that the longest edge fits.
type Loader struct {
	MaxSide int
}

func NewLoader(maxSide int) *Loader {
	return &Loader{MaxSide: maxSide}
}

// LoadFunc produces the raw bytes of the i-th attachment.
type LoadFunc func(ctx context.Context, i int) (name string, data []byte, mimeHint string, err error)

// LoadAll runs load for every index concurrently and waits for all of them.
// The result keeps index order. The first failure cancels the rest.
func (l *Loader) LoadAll(ctx context.Context, n int, load LoadFunc) ([]Image, error) {
	out := make([]Image, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			name, data, hint, err := load(gctx, i)
			if err != nil {
				return err
			}
			img, err := l.Prepare(name, data, hint)
			if err != nil {
				return err
			}
			out[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FromFiles reads image files from disk.
func (l *Loader) FromFiles(ctx context.Context, paths []string) ([]Image, error) {
	return l.LoadAll(ctx, len(paths), func(ctx context.Context, i int) (string, []byte, string, error) {
		if err := ctx.Err(); err != nil {
			return "", nil, "", err
		}
		b, err := os.ReadFile(paths[i])
		if err != nil {
			return "", nil, "", fmt.Errorf("attachment: read %s: %w", paths[i], err)
		}
		return filepath.Base(paths[i]), b, "", nil
	})
}

// FromBase64 decodes base64 payloads or data URLs.
func (l *Loader) FromBase64(ctx context.Context, payloads []string) ([]Image, error) {
	return l.LoadAll(ctx, len(payloads), func(ctx context.Context, i int) (string, []byte, string, error) {
		b, hint, err := DecodeBase64MaybeDataURL(payloads[i])
		if err != nil {
			return "", nil, "", fmt.Errorf("attachment: image %d: bad base64: %w", i+1, err)
		}
		return fmt.Sprintf("image-%d", i+1), b, hint, nil
	})
}

// Prepare checks that data is an image and shrinks it when it exceeds
// MaxSide. Formats the decoder does not know (webp, heic) pass through.
func (l *Loader) Prepare(name string, data []byte, mimeHint string) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("attachment: %s is empty", name)
	}
	mime := PickMIME(mimeHint, data)
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("attachment: %s is %s, not an image", name, mime)
	}
	img := Image{Name: name, MIMEType: mime, Data: data}
	if l.MaxSide <= 0 {
		return img, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (cfg.Width <= l.MaxSide && cfg.Height <= l.MaxSide) {
		return img, nil
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return img, nil
	}
	resized := imaging.Fit(src, l.MaxSide, l.MaxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 90}); err != nil {
		return Image{}, fmt.Errorf("attachment: re-encode %s: %w", name, err)
	}
	return Image{Name: name, MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}

// PickMIME prefers a usable hint and otherwise sniffs the bytes.
func PickMIME(hint string, data []byte) string {
	if h := strings.ToLower(strings.TrimSpace(hint)); strings.HasPrefix(h, "image/") {
		return h
	}
	return mimetype.Detect(data).String()
}
