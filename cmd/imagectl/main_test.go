package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/UnendingLoop/ImageAble/internal/auth"
	"github.com/UnendingLoop/ImageAble/internal/imageproc"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand(fs)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writePNG(t *testing.T, fs afero.Fs, path string) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.NRGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
}

func TestEmbedAndInspect(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "cat.png")

	out, err := runCLI(t, fs, "embed", "cat.png", "-d", "a red dot", "-e", "0.87", "-o", "tagged.png")
	require.NoError(t, err)
	require.Contains(t, out, "tagged.png")

	data, err := afero.ReadFile(fs, "tagged.png")
	require.NoError(t, err)
	meta, err := imageproc.Extract(data)
	require.NoError(t, err)
	require.Equal(t, "a red dot", meta.Description)
	require.Equal(t, "0.87", meta.Evaluation)

	out, err = runCLI(t, fs, "inspect", "tagged.png")
	require.NoError(t, err)
	require.Contains(t, out, "a red dot")
	require.Contains(t, out, "image/png")
}

func TestInspect_ReportsBrokenFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "ok.png")
	require.NoError(t, afero.WriteFile(fs, "notes.txt", []byte("hello"), 0o644))

	out, err := runCLI(t, fs, "inspect", "ok.png", "notes.txt", "missing.png")
	require.Error(t, err)
	require.Contains(t, out, "ok.png")
	require.Contains(t, out, "notes.txt")
	require.Contains(t, out, "missing.png")
}

func TestEmbed_UnsupportedFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "notes.txt", []byte("hello"), 0o644))

	_, err := runCLI(t, fs, "embed", "notes.txt", "-d", "x")
	require.Error(t, err)
}

func TestDescribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"caption": "a red dot"})
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	writePNG(t, fs, "cat.png")

	out, err := runCLI(t, fs, "describe", "cat.png", "--endpoint", srv.URL)
	require.NoError(t, err)
	require.Equal(t, "a red dot", strings.TrimSpace(out))
}

func TestDescribe_BadEndpoint(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "cat.png")

	_, err := runCLI(t, fs, "describe", "cat.png", "--endpoint", "not a url")
	require.Error(t, err)
}

func TestToken(t *testing.T) {
	out, err := runCLI(t, afero.NewMemMapFs(), "token", "user-1", "--secret", "s3cret")
	require.NoError(t, err)

	owner, err := auth.New("s3cret").Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, "user-1", owner)
}

func TestToken_NoSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := runCLI(t, afero.NewMemMapFs(), "token", "user-1")
	require.Error(t, err)
}
