package imageproc

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/UnendingLoop/ImageAble/internal/model"
)

const (
	tagImageDescription uint16 = 0x010E
	tagStripOffsets     uint16 = 0x0111
	tagTileOffsets      uint16 = 0x0144
	tagJPEGIFOffset     uint16 = 0x0201
	tagExifIFD          uint16 = 0x8769
	tagGPSIFD           uint16 = 0x8825
	tagMakerNote        uint16 = 0x927C
	tagUserComment      uint16 = 0x9286
	tagInteropIFD       uint16 = 0xA005

	typeASCII     uint16 = 2
	typeLong      uint16 = 4
	typeUndefined uint16 = 7
)

// байт на один элемент для каждого TIFF-типа
var typeSizes = map[uint16]uint32{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1,
	7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8, 13: 4,
}

var (
	charsetASCII   = []byte("ASCII\x00\x00\x00")
	charsetUnicode = []byte("UNICODE\x00")
)

type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte // в порядке байт профиля
}

// exifProfile keeps IFD0, Exif and GPS directories. Entries that point at offsets we cannot
// relocate (strips, thumbnails, maker notes, interop) are dropped on parse.
type exifProfile struct {
	order binary.ByteOrder
	ifd0  []tiffEntry
	exif  []tiffEntry
	gps   []tiffEntry
}

func newExifProfile() *exifProfile {
	return &exifProfile{order: binary.BigEndian}
}

func parseExif(tiff []byte) (*exifProfile, error) {
	if len(tiff) < 8 {
		return nil, corrupt("exif header too short")
	}

	p := &exifProfile{}
	switch string(tiff[:2]) {
	case "II":
		p.order = binary.LittleEndian
	case "MM":
		p.order = binary.BigEndian
	default:
		return nil, corrupt("unknown exif byte order")
	}
	if p.order.Uint16(tiff[2:4]) != 42 {
		return nil, corrupt("bad tiff magic")
	}

	root, err := readIFD(tiff, p.order, p.order.Uint32(tiff[4:8]))
	if err != nil {
		return nil, err
	}

	for _, e := range root {
		switch e.tag {
		case tagExifIFD:
			sub, err := readSubIFD(tiff, p.order, e)
			if err != nil {
				return nil, err
			}
			for _, se := range sub {
				if se.tag == tagInteropIFD || se.tag == tagMakerNote {
					continue
				}
				p.exif = append(p.exif, se)
			}
		case tagGPSIFD:
			sub, err := readSubIFD(tiff, p.order, e)
			if err != nil {
				return nil, err
			}
			p.gps = sub
		case tagStripOffsets, tagTileOffsets, tagJPEGIFOffset, tagInteropIFD:
		default:
			p.ifd0 = append(p.ifd0, e)
		}
	}

	return p, nil
}

func readSubIFD(tiff []byte, order binary.ByteOrder, ptr tiffEntry) ([]tiffEntry, error) {
	if len(ptr.value) != 4 {
		return nil, corrupt("bad sub-directory pointer")
	}
	return readIFD(tiff, order, order.Uint32(ptr.value))
}

func readIFD(tiff []byte, order binary.ByteOrder, off uint32) ([]tiffEntry, error) {
	size := uint64(len(tiff))
	if uint64(off)+2 > size {
		return nil, corrupt("directory offset out of range")
	}

	n := uint64(order.Uint16(tiff[off:]))
	start := uint64(off) + 2
	if start+n*12 > size {
		return nil, corrupt("directory entries out of range")
	}

	entries := make([]tiffEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		b := tiff[start+i*12 : start+i*12+12]
		e := tiffEntry{
			tag:   order.Uint16(b[0:2]),
			typ:   order.Uint16(b[2:4]),
			count: order.Uint32(b[4:8]),
		}

		unit, ok := typeSizes[e.typ]
		if !ok {
			continue
		}
		total := uint64(unit) * uint64(e.count)
		if total <= 4 {
			e.value = append([]byte(nil), b[8:8+total]...)
		} else {
			voff := uint64(order.Uint32(b[8:12]))
			if voff+total > size {
				return nil, corrupt(fmt.Sprintf("value of tag 0x%04X out of range", e.tag))
			}
			e.value = append([]byte(nil), tiff[voff:voff+total]...)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func (p *exifProfile) setDescription(desc string) {
	value := append([]byte(desc), 0)
	p.ifd0 = upsert(p.ifd0, tiffEntry{tag: tagImageDescription, typ: typeASCII, count: uint32(len(value)), value: value})
}

func (p *exifProfile) setUserComment(comment string) {
	var value []byte
	if isASCII(comment) {
		value = append(append([]byte(nil), charsetASCII...), comment...)
	} else {
		units := utf16.Encode([]rune(comment))
		value = make([]byte, len(charsetUnicode), len(charsetUnicode)+2*len(units))
		copy(value, charsetUnicode)
		var pair [2]byte
		for _, u := range units {
			p.order.PutUint16(pair[:], u)
			value = append(value, pair[:]...)
		}
	}
	p.exif = upsert(p.exif, tiffEntry{tag: tagUserComment, typ: typeUndefined, count: uint32(len(value)), value: value})
}

func (p *exifProfile) description() string {
	for _, e := range p.ifd0 {
		if e.tag == tagImageDescription {
			return strings.TrimRight(string(e.value), "\x00")
		}
	}
	return ""
}

func (p *exifProfile) userComment() string {
	for _, e := range p.exif {
		if e.tag != tagUserComment {
			continue
		}
		if len(e.value) < 8 {
			return strings.TrimRight(string(e.value), "\x00")
		}
		charset, body := e.value[:8], e.value[8:]
		if string(charset) == string(charsetUnicode) {
			units := make([]uint16, 0, len(body)/2)
			for i := 0; i+1 < len(body); i += 2 {
				units = append(units, p.order.Uint16(body[i:]))
			}
			return strings.TrimRight(string(utf16.Decode(units)), "\x00")
		}
		return strings.TrimRight(string(body), "\x00")
	}
	return ""
}

// encode serializes the profile as a TIFF stream: header, IFD0, Exif IFD, optional GPS IFD.
func (p *exifProfile) encode() []byte {
	ifd0 := withoutTags(p.ifd0, tagExifIFD, tagGPSIFD)
	ifd0 = upsert(ifd0, tiffEntry{tag: tagExifIFD, typ: typeLong, count: 1, value: make([]byte, 4)})
	if len(p.gps) > 0 {
		ifd0 = upsert(ifd0, tiffEntry{tag: tagGPSIFD, typ: typeLong, count: 1, value: make([]byte, 4)})
	}
	exif := sorted(p.exif)
	gps := sorted(p.gps)

	ifd0Off := uint32(8)
	exifOff := ifd0Off + ifdSize(ifd0)
	gpsOff := exifOff + ifdSize(exif)
	total := gpsOff
	if len(gps) > 0 {
		total += ifdSize(gps)
	}

	for i := range ifd0 {
		switch ifd0[i].tag {
		case tagExifIFD:
			p.order.PutUint32(ifd0[i].value, exifOff)
		case tagGPSIFD:
			p.order.PutUint32(ifd0[i].value, gpsOff)
		}
	}

	buf := make([]byte, total)
	if p.order == binary.LittleEndian {
		copy(buf, "II")
	} else {
		copy(buf, "MM")
	}
	p.order.PutUint16(buf[2:], 42)
	p.order.PutUint32(buf[4:], ifd0Off)

	writeIFD(buf, p.order, ifd0Off, ifd0)
	writeIFD(buf, p.order, exifOff, exif)
	if len(gps) > 0 {
		writeIFD(buf, p.order, gpsOff, gps)
	}

	return buf
}

func ifdSize(entries []tiffEntry) uint32 {
	size := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.value) > 4 {
			size += uint32(len(e.value)) + uint32(len(e.value)%2) // выравнивание по слову
		}
	}
	return size
}

func writeIFD(buf []byte, order binary.ByteOrder, off uint32, entries []tiffEntry) {
	order.PutUint16(buf[off:], uint16(len(entries)))
	dataOff := off + uint32(2+12*len(entries)+4)

	for i, e := range entries {
		b := buf[off+2+uint32(12*i):]
		order.PutUint16(b[0:], e.tag)
		order.PutUint16(b[2:], e.typ)
		order.PutUint32(b[4:], e.count)
		if len(e.value) <= 4 {
			copy(b[8:12], e.value)
			continue
		}
		order.PutUint32(b[8:], dataOff)
		copy(buf[dataOff:], e.value)
		dataOff += uint32(len(e.value)) + uint32(len(e.value)%2)
	}
	// next IFD offset остается нулем
}

func upsert(entries []tiffEntry, e tiffEntry) []tiffEntry {
	out := withoutTags(entries, e.tag)
	return sorted(append(out, e))
}

func withoutTags(entries []tiffEntry, tags ...uint16) []tiffEntry {
	out := make([]tiffEntry, 0, len(entries)+1)
outer:
	for _, e := range entries {
		for _, t := range tags {
			if e.tag == t {
				continue outer
			}
		}
		out = append(out, e)
	}
	return out
}

func sorted(entries []tiffEntry) []tiffEntry {
	out := append([]tiffEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].tag < out[j].tag })
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}

func corrupt(msg string) error {
	return fmt.Errorf("%w: %s", model.ErrCorruptImage, msg)
}
