package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestComputeBlurHash(t *testing.T) {
	hash, err := ComputeBlurHash(bytes.NewReader(encodePNG(t, 300, 450)))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestComputeBlurHash_NotAnImage(t *testing.T) {
	_, err := ComputeBlurHash(bytes.NewReader([]byte("<html>nope</html>")))
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 32, 48))
	assert.Same(t, small, thumbnail(small))

	tall := thumbnail(image.NewRGBA(image.Rect(0, 0, 300, 600)))
	assert.Equal(t, 32, tall.Bounds().Dx())
	assert.Equal(t, 64, tall.Bounds().Dy())

	wide := thumbnail(image.NewRGBA(image.Rect(0, 0, 6400, 10)))
	assert.Equal(t, 64, wide.Bounds().Dx())
	assert.Equal(t, 1, wide.Bounds().Dy())
}

func TestHasher_FromURL(t *testing.T) {
	cover := encodePNG(t, 128, 192)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(cover)
	}))
	defer server.Close()

	h := NewHasher(server.Client())

	hash, err := h.FromURL(context.Background(), server.URL+"/cover.png")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	_, err = h.FromURL(context.Background(), server.URL+"/missing.png")
	assert.ErrorContains(t, err, "unexpected status 404")
}
