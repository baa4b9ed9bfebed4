package imageproc

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

type pngChunk struct {
	typ  string
	data []byte
	raw  []byte // длина, тип, данные и CRC
}

func splitPNG(data []byte) ([]pngChunk, []byte, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, nil, corrupt("missing png signature")
	}

	var chunks []pngChunk
	pos := len(pngSignature)
	for pos < len(data) {
		if pos+8 > len(data) {
			return nil, nil, corrupt("truncated png chunk header")
		}
		length := uint64(binary.BigEndian.Uint32(data[pos:]))
		end := uint64(pos) + 12 + length
		if end > uint64(len(data)) {
			return nil, nil, corrupt("truncated png chunk")
		}

		c := pngChunk{
			typ:  string(data[pos+4 : pos+8]),
			data: data[pos+8 : pos+8+int(length)],
			raw:  data[pos:end],
		}
		chunks = append(chunks, c)
		pos = int(end)

		if c.typ == "IEND" {
			break
		}
	}

	if len(chunks) == 0 || chunks[0].typ != "IHDR" {
		return nil, nil, corrupt("png must start with IHDR")
	}

	return chunks, data[pos:], nil
}

func pngExif(data []byte) ([]byte, error) {
	chunks, _, err := splitPNG(data)
	if err != nil {
		return nil, err
	}
	for _, c := range chunks {
		if c.typ == "eXIf" {
			return c.data, nil
		}
	}
	return nil, nil
}

// rewritePNG replaces any eXIf chunk with a new one placed right after IHDR.
func rewritePNG(data, tiff []byte) ([]byte, error) {
	chunks, trailer, err := splitPNG(data)
	if err != nil {
		return nil, err
	}

	exif := make([]byte, 0, 12+len(tiff))
	exif = binary.BigEndian.AppendUint32(exif, uint32(len(tiff)))
	exif = append(exif, "eXIf"...)
	exif = append(exif, tiff...)
	exif = binary.BigEndian.AppendUint32(exif, crc32.ChecksumIEEE(exif[4:]))

	out := bytes.NewBuffer(make([]byte, 0, len(data)+len(exif)))
	out.Write(pngSignature)
	for _, c := range chunks {
		if c.typ == "eXIf" {
			continue
		}
		out.Write(c.raw)
		if c.typ == "IHDR" {
			out.Write(exif)
		}
	}
	out.Write(trailer)

	return out.Bytes(), nil
}
