package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistanthub/internal/assistanthub/gateway"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

type describer struct {
	mime string
	text string
	err  error
}

func (d *describer) DescribeImage(_ context.Context, mime string, _ []byte, _ string) (string, error) {
	d.mime = mime
	return d.text, d.err
}

func TestInspectImage(t *testing.T) {
	info, err := InspectImage(pngBytes(t, 40, 20))
	require.NoError(t, err)
	assert.Equal(t, ImageInfo{Format: "png", Width: 40, Height: 20}, info)
	assert.Equal(t, "image/png", info.MIME())

	_, err = InspectImage([]byte("hello"))
	assert.ErrorIs(t, err, ErrNotImage)
	_, err = InspectImage([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "))
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Equal(t, "image/jpeg", ImageInfo{Format: "jpeg"}.MIME())
}

func TestImageText_Extract(t *testing.T) {
	d := &describer{text: "  Invoice #42 \n"}
	it := ImageText{Model: d, MaxBytes: 1 << 20, MaxSide: 100}

	got, err := it.Extract(context.Background(), pngBytes(t, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, "Invoice #42", got)
	assert.Equal(t, "image/png", d.mime)

	_, err = it.Extract(context.Background(), pngBytes(t, 200, 10))
	assert.ErrorIs(t, err, ErrNotImage)

	d.err = errors.New("vision down")
	_, err = it.Extract(context.Background(), pngBytes(t, 10, 10))
	assert.EqualError(t, err, "vision down")
}

func TestTranscriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "clip.wav", hdr.Filename)
		assert.Equal(t, []byte("RIFFdata"), data)
		_, _ = io.WriteString(w, `{"text":" open youtube "}`)
	}))
	defer srv.Close()

	tr := Transcriber{Client: srv.Client(), BaseURL: srv.URL + "/v1/", APIKey: "k", Model: "whisper-1"}
	got, err := tr.Transcribe(context.Background(), "clip.wav", []byte("RIFFdata"))
	require.NoError(t, err)
	assert.Equal(t, "open youtube", got)

	_, err = tr.Transcribe(context.Background(), "clip.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedAudio)
}

func TestTranscriber_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	tr := Transcriber{Client: srv.Client(), BaseURL: srv.URL, APIKey: "k", Model: "m"}
	_, err := tr.Transcribe(context.Background(), "a.mp3", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, gateway.KindRateLimited, gateway.KindOf(err))
}
