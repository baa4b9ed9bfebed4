// Package imageproc writes and reads the description/evaluation pair kept in an image's own
// EXIF block. The container is rewritten in place: scan data and pixel chunks are copied as is.
package imageproc

import (
	"bytes"
	"fmt"
	"image"

	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/disintegration/imaging"
)

// Metadata - поля, которые приложение хранит внутри файла
type Metadata struct {
	Description string
	Evaluation  string
}

// DetectFormat sniffs the stream and accepts only containers the embedder can rewrite.
func DetectFormat(data []byte) (imaging.Format, error) {
	if len(data) == 0 {
		return -1, model.ErrUnsupportedFormat
	}

	_, f, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return -1, fmt.Errorf("%w: %v", model.ErrUnsupportedFormat, err)
	}

	format, err := imaging.FormatFromExtension(f)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", model.ErrUnsupportedFormat, err)
	}

	switch format {
	case imaging.JPEG, imaging.PNG:
	default:
		return -1, fmt.Errorf("%w: %s", model.ErrUnsupportedFormat, f)
	}

	return format, nil
}

// Embed sets ImageDescription and UserComment, keeping every other tag it can relocate.
// Output format equals input format; embedding the same pair twice yields identical bytes.
func Embed(data []byte, description, evaluation string) ([]byte, imaging.Format, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return nil, -1, err
	}

	// битый EXIF заменяется целиком, битый контейнер - ошибка
	profile, err := currentProfile(data, format, true)
	if err != nil {
		return nil, -1, err
	}
	profile.setDescription(description)
	profile.setUserComment(evaluation)
	tiff := profile.encode()

	var out []byte
	switch format {
	case imaging.JPEG:
		out, err = rewriteJPEG(data, tiff)
	case imaging.PNG:
		out, err = rewritePNG(data, tiff)
	}
	if err != nil {
		return nil, -1, err
	}

	return out, format, nil
}

// Extract reads the pair back. A file without EXIF gives empty Metadata.
func Extract(data []byte) (Metadata, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return Metadata{}, err
	}

	profile, err := currentProfile(data, format, false)
	if err != nil {
		return Metadata{}, err
	}

	return Metadata{
		Description: profile.description(),
		Evaluation:  profile.userComment(),
	}, nil
}

func currentProfile(data []byte, format imaging.Format, replaceBroken bool) (*exifProfile, error) {
	var (
		raw []byte
		err error
	)
	switch format {
	case imaging.JPEG:
		raw, err = jpegExif(data)
	case imaging.PNG:
		raw, err = pngExif(data)
	}
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return newExifProfile(), nil
	}

	profile, err := parseExif(raw)
	if err != nil && replaceBroken {
		return newExifProfile(), nil
	}

	return profile, err
}
