package imageproc

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func testImageBytes(t *testing.T, w, h int, format imaging.Format) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	err := imaging.Encode(&buf, img, format)
	require.NoError(t, err)

	return buf.Bytes()
}

func mustPixels(t *testing.T, data []byte) []uint8 {
	t.Helper()

	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.NotNil(t, img)

	return imaging.Clone(img).Pix
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    imaging.Format
		wantErr error
	}{
		{name: "png", data: testImageBytes(t, 8, 8, imaging.PNG), want: imaging.PNG},
		{name: "jpeg", data: testImageBytes(t, 8, 8, imaging.JPEG), want: imaging.JPEG},
		{name: "gif is not embeddable", data: testImageBytes(t, 8, 8, imaging.GIF), wantErr: model.ErrUnsupportedFormat},
		{name: "garbage", data: []byte("definitely not an image"), wantErr: model.ErrUnsupportedFormat},
		{name: "empty", data: nil, wantErr: model.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.data)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEmbed_KeepsFormatAndPixels(t *testing.T) {
	for _, format := range []imaging.Format{imaging.PNG, imaging.JPEG} {
		t.Run(format.String(), func(t *testing.T) {
			src := testImageBytes(t, 16, 12, format)

			out, got, err := Embed(src, "a cat on a sofa", "0.91")
			require.NoError(t, err)
			require.Equal(t, format, got)

			detected, err := DetectFormat(out)
			require.NoError(t, err)
			require.Equal(t, format, detected)

			require.Equal(t, mustPixels(t, src), mustPixels(t, out))

			meta, err := Extract(out)
			require.NoError(t, err)
			require.Equal(t, "a cat on a sofa", meta.Description)
			require.Equal(t, "0.91", meta.Evaluation)
		})
	}
}

func TestEmbed_Idempotent(t *testing.T) {
	for _, format := range []imaging.Format{imaging.PNG, imaging.JPEG} {
		t.Run(format.String(), func(t *testing.T) {
			src := testImageBytes(t, 10, 10, format)

			once, _, err := Embed(src, "desc", "eval")
			require.NoError(t, err)
			twice, _, err := Embed(once, "desc", "eval")
			require.NoError(t, err)

			require.Equal(t, once, twice)
		})
	}
}

func TestEmbed_ReplacesPreviousValues(t *testing.T) {
	src := testImageBytes(t, 10, 10, imaging.JPEG)

	first, _, err := Embed(src, "old description", "old")
	require.NoError(t, err)
	second, _, err := Embed(first, "new description", "")
	require.NoError(t, err)

	meta, err := Extract(second)
	require.NoError(t, err)
	require.Equal(t, Metadata{Description: "new description"}, meta)

	// в файле ровно один Exif APP1
	require.Equal(t, 1, bytes.Count(second, exifHeader))
}

func TestEmbed_NonASCIIEvaluation(t *testing.T) {
	src := testImageBytes(t, 4, 4, imaging.PNG)

	out, _, err := Embed(src, "кот", "оценка: хорошо")
	require.NoError(t, err)

	meta, err := Extract(out)
	require.NoError(t, err)
	require.Equal(t, "кот", meta.Description)
	require.Equal(t, "оценка: хорошо", meta.Evaluation)
}

func TestEmbed_PreservesForeignTags(t *testing.T) {
	// little-endian профиль с тегом Make (0x010F) как у камер
	p := &exifProfile{order: binary.LittleEndian}
	p.ifd0 = upsert(p.ifd0, tiffEntry{tag: 0x010F, typ: typeASCII, count: 7, value: []byte("Canon\x00\x00")})
	src, err := rewriteJPEG(testImageBytes(t, 6, 6, imaging.JPEG), p.encode())
	require.NoError(t, err)

	out, _, err := Embed(src, "with camera tags", "1")
	require.NoError(t, err)

	raw, err := jpegExif(out)
	require.NoError(t, err)
	parsed, err := parseExif(raw)
	require.NoError(t, err)
	require.Equal(t, binary.LittleEndian, parsed.order)

	var camera string
	for _, e := range parsed.ifd0 {
		if e.tag == 0x010F {
			camera = string(bytes.TrimRight(e.value, "\x00"))
		}
	}
	require.Equal(t, "Canon", camera)
	require.Equal(t, "with camera tags", parsed.description())
	require.Equal(t, "1", parsed.userComment())
}

func TestEmbed_Errors(t *testing.T) {
	_, _, err := Embed(testImageBytes(t, 4, 4, imaging.GIF), "d", "e")
	require.ErrorIs(t, err, model.ErrUnsupportedFormat)

	_, _, err = Embed([]byte("nope"), "d", "e")
	require.ErrorIs(t, err, model.ErrUnsupportedFormat)

	huge := string(bytes.Repeat([]byte("a"), 70000))
	_, _, err = Embed(testImageBytes(t, 4, 4, imaging.JPEG), huge, "")
	require.ErrorIs(t, err, model.ErrMetadataTooLarge)
}

func TestExtract_NoMetadata(t *testing.T) {
	meta, err := Extract(testImageBytes(t, 4, 4, imaging.PNG))
	require.NoError(t, err)
	require.Empty(t, meta.Description)
	require.Empty(t, meta.Evaluation)
}

func TestParseExif_Corrupt(t *testing.T) {
	_, err := parseExif([]byte("MM\x00\x2a\x00\x00\xff\xff"))
	require.ErrorIs(t, err, model.ErrCorruptImage)

	_, err = parseExif([]byte("XX"))
	require.ErrorIs(t, err, model.ErrCorruptImage)
}
