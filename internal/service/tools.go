package service

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/google/uuid"
)

const maxKeyNameLen = 100

// normalizeGalleryRequest: новый поиск сбрасывает страницу, пустой поиск берет прошлый фильтр
func normalizeGalleryRequest(req *model.GalleryRequest) {
	req.SearchString = strings.TrimSpace(req.SearchString)
	req.CurrentFilter = strings.TrimSpace(req.CurrentFilter)

	if req.SearchString != "" {
		req.PageNumber = 1
	} else {
		req.SearchString = req.CurrentFilter
	}
	req.CurrentFilter = req.SearchString

	if req.PageNumber <= 0 {
		req.PageNumber = 1
	}

	// "Date" - от старых к новым, все остальное - новые выше
	if req.SortOrder != model.SortDateAsc {
		req.SortOrder = model.SortDateDesc
	}
}

func sortToOrder(sortOrder string) string {
	if sortOrder == model.SortDateAsc {
		return model.OrderASC
	}
	return model.OrderDESC
}

// storageKey returns "<uuid>_<name>" where name keeps only safe characters of the client file name.
func storageKey(id uuid.UUID, filename, contentType string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}

	name := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	name = strings.TrimLeft(name, ".")
	if len(name) > maxKeyNameLen {
		name = name[len(name)-maxKeyNameLen:]
	}
	if name == "" {
		name = "image" + model.GetImageFileExt[contentType]
	}

	return id.String() + "_" + name
}

// originalName отрезает uuid-префикс ключа для Content-Disposition
func originalName(key string) string {
	if len(key) > 37 && key[36] == '_' && uuid.Validate(key[:36]) == nil {
		return key[37:]
	}
	return key
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("%w: file is larger than %d bytes", model.ErrInvalidRequest, maxImageSize)
	}
	return data, nil
}
