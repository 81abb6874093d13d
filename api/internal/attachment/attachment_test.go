package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepareKeepsSmallImages(t *testing.T) {
	data := pngBytes(t, 40, 20)
	img, err := NewLoader(100).Prepare("p.png", data, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, data, img.Data)
}

func TestPrepareDownscales(t *testing.T) {
	img, err := NewLoader(50).Prepare("big.png", pngBytes(t, 200, 100), "")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 25, cfg.Height)
}

func TestPrepareRejectsNonImages(t *testing.T) {
	_, err := NewLoader(0).Prepare("notes.txt", []byte("xin chào, đây không phải ảnh"), "")
	assert.Error(t, err)

	_, err = NewLoader(0).Prepare("empty", nil, "")
	assert.Error(t, err)
}

func TestPrepareTrustsImageHint(t *testing.T) {
	img, err := NewLoader(0).Prepare("x", []byte{0x00, 0x01, 0x02}, "IMAGE/WEBP")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", img.MIMEType)
}

func TestLoadAllKeepsOrderAndRunsConcurrently(t *testing.T) {
	data := pngBytes(t, 4, 4)
	var calls atomic.Int32

	imgs, err := NewLoader(0).LoadAll(context.Background(), 5, func(ctx context.Context, i int) (string, []byte, string, error) {
		calls.Add(1)
		return fmt.Sprintf("img-%d", i), data, "", nil
	})
	require.NoError(t, err)
	require.Len(t, imgs, 5)
	assert.Equal(t, int32(5), calls.Load())
	for i, img := range imgs {
		assert.Equal(t, fmt.Sprintf("img-%d", i), img.Name)
	}
}

func TestLoadAllFailsAsAWhole(t *testing.T) {
	boom := errors.New("unreadable")
	imgs, err := NewLoader(0).LoadAll(context.Background(), 3, func(ctx context.Context, i int) (string, []byte, string, error) {
		if i == 1 {
			return "", nil, "", boom
		}
		return "ok", pngBytes(t, 2, 2), "", nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, imgs)
}

func TestFromFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "trang1.png")
	b := filepath.Join(dir, "trang2.png")
	require.NoError(t, os.WriteFile(a, pngBytes(t, 3, 3), 0o600))
	require.NoError(t, os.WriteFile(b, pngBytes(t, 5, 5), 0o600))

	imgs, err := NewLoader(0).FromFiles(context.Background(), []string{a, b})
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "trang1.png", imgs[0].Name)
	assert.Equal(t, "trang2.png", imgs[1].Name)

	_, err = NewLoader(0).FromFiles(context.Background(), []string{filepath.Join(dir, "missing.png")})
	assert.Error(t, err)
}

func TestFromBase64(t *testing.T) {
	data := pngBytes(t, 3, 3)
	imgs, err := NewLoader(0).FromBase64(context.Background(), []string{"data:image/png;base64," + base64.StdEncoding.EncodeToString(data)})
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Equal(t, data, imgs[0].Data)

	_, err = NewLoader(0).FromBase64(context.Background(), []string{"%%%not base64%%%"})
	assert.Error(t, err)
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	b, mime, err := DecodeBase64MaybeDataURL("data:image/jpeg;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, []byte("hello"), b)

	b, mime, err = DecodeBase64MaybeDataURL("aGVsbG8")
	require.NoError(t, err)
	assert.Empty(t, mime)
	assert.Equal(t, []byte("hello"), b)
}
