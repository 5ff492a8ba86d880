// Package storage decodes uploaded recipe images and stores them on local
// disk or in S3.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageSize caps a decoded image
const MaxImageSize = 10 << 20

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrMalformedImage   = errors.New("image must be a base64 encoded data URI")
	ErrImageTooLarge    = fmt.Errorf("image exceeds %d bytes", MaxImageSize)
	ErrUnsupportedImage = errors.New("image must be png, jpeg, gif or webp")
	ErrForeignImageURL  = errors.New("image url does not belong to this store")
)

var allowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image is a decoded upload whose type was sniffed from its bytes
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// ImageStore persists images and returns the URL clients load them from.
// Delete takes a URL returned by Save.
type ImageStore interface {
	Save(ctx context.Context, img *Image) (string, error)
	Delete(ctx context.Context, url string) error
}

// DecodeBase64Image accepts "data:image/png;base64,<payload>" or a bare
// base64 payload. The declared type of a data URI is ignored in favour of
// the sniffed one.
func DecodeBase64Image(raw string) (*Image, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return nil, ErrEmptyImage
	}

	if strings.HasPrefix(payload, "data:") {
		header, data, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, ErrMalformedImage
		}
		payload = data
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageSize+3 {
		return nil, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, ErrMalformedImage
		}
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	mtype := mimetype.Detect(data)
	contentType := strings.SplitN(mtype.String(), ";", 2)[0]
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedImage
	}

	return &Image{Data: data, ContentType: contentType, Extension: ext}, nil
}

// objectKey names a stored recipe image
func objectKey(img *Image) string {
	return "recipes/" + uuid.New().String() + img.Extension
}
