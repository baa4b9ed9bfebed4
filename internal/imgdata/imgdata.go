// Package imgdata validates and decodes Base64 image payloads sent by clients
package imgdata

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/UnendingLoop/ImageAble/internal/model"
)

// strict - стандартный алфавит с паддингом, без переносов строк и мусора в хвосте
var strict = base64.StdEncoding.Strict()

// Normalize отрезает префикс data-URL ("data:image/png;base64,") если клиент его прислал
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if _, payload, found := strings.Cut(s, ","); found {
			return payload
		}
	}
	return s
}

// Validate returns model.ErrNotBase64 for empty input or anything that is not strict standard Base64.
func Validate(s string) error {
	s = Normalize(s)
	if s == "" || len(s)%4 != 0 {
		return model.ErrNotBase64
	}
	if _, err := strict.DecodeString(s); err != nil {
		return fmt.Errorf("%w: %v", model.ErrNotBase64, err)
	}
	return nil
}

// Decode validates s and returns the decoded bytes.
func Decode(s string) ([]byte, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	data, err := strict.DecodeString(Normalize(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrNotBase64, err)
	}
	if len(data) == 0 {
		return nil, model.ErrNotBase64
	}
	return data, nil
}
