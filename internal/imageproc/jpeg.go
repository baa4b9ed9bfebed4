package imageproc

import (
	"bytes"
	"encoding/binary"

	"github.com/UnendingLoop/ImageAble/internal/model"
)

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP0 = 0xE0
	markerAPP1 = 0xE1

	maxSegmentPayload = 0xFFFF - 2
)

var exifHeader = []byte("Exif\x00\x00")

type jpegSegment struct {
	marker byte
	raw    []byte // маркер вместе с длиной и данными
}

// splitJPEG returns the header segments before the first scan and the remainder
// starting at SOS. The remainder (entropy-coded data up to EOI) is never inspected.
func splitJPEG(data []byte) ([]jpegSegment, []byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, nil, corrupt("missing jpeg SOI")
	}

	var segments []jpegSegment
	pos := 2
	for pos+1 < len(data) {
		if data[pos] != 0xFF {
			return nil, nil, corrupt("expected jpeg marker")
		}
		// заполняющие 0xFF перед маркером
		for pos+1 < len(data) && data[pos+1] == 0xFF {
			pos++
		}
		if pos+1 >= len(data) {
			break
		}

		marker := data[pos+1]
		switch {
		case marker == markerSOS || marker == markerEOI:
			return segments, data[pos:], nil
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			segments = append(segments, jpegSegment{marker: marker, raw: data[pos : pos+2]})
			pos += 2
			continue
		}

		if pos+4 > len(data) {
			return nil, nil, corrupt("truncated jpeg segment")
		}
		length := int(binary.BigEndian.Uint16(data[pos+2:]))
		if length < 2 || pos+2+length > len(data) {
			return nil, nil, corrupt("bad jpeg segment length")
		}
		segments = append(segments, jpegSegment{marker: marker, raw: data[pos : pos+2+length]})
		pos += 2 + length
	}

	return nil, nil, corrupt("jpeg without image data")
}

func (s jpegSegment) exifPayload() ([]byte, bool) {
	if s.marker != markerAPP1 || len(s.raw) < 4+len(exifHeader) {
		return nil, false
	}
	body := s.raw[4:]
	if !bytes.HasPrefix(body, exifHeader) {
		return nil, false
	}
	return body[len(exifHeader):], true
}

func jpegExif(data []byte) ([]byte, error) {
	segments, _, err := splitJPEG(data)
	if err != nil {
		return nil, err
	}
	for _, s := range segments {
		if payload, ok := s.exifPayload(); ok {
			return payload, nil
		}
	}
	return nil, nil
}

// rewriteJPEG drops every Exif APP1 segment and puts a new one right after SOI
// (after JFIF APP0 segments when they lead the file).
func rewriteJPEG(data, tiff []byte) ([]byte, error) {
	if len(exifHeader)+len(tiff) > maxSegmentPayload {
		return nil, model.ErrMetadataTooLarge
	}

	segments, rest, err := splitJPEG(data)
	if err != nil {
		return nil, err
	}

	app1 := make([]byte, 0, 4+len(exifHeader)+len(tiff))
	app1 = append(app1, 0xFF, markerAPP1)
	app1 = binary.BigEndian.AppendUint16(app1, uint16(2+len(exifHeader)+len(tiff)))
	app1 = append(app1, exifHeader...)
	app1 = append(app1, tiff...)

	out := bytes.NewBuffer(make([]byte, 0, len(data)+len(app1)))
	out.Write([]byte{0xFF, markerSOI})

	inserted := false
	for _, s := range segments {
		if _, ok := s.exifPayload(); ok {
			continue
		}
		if !inserted && s.marker != markerAPP0 {
			out.Write(app1)
			inserted = true
		}
		out.Write(s.raw)
	}
	if !inserted {
		out.Write(app1)
	}
	out.Write(rest)

	return out.Bytes(), nil
}
