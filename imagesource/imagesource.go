// Package imagesource loads dish photos from local files or S3.
package imagesource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"caloriebot"
)

// MaxImageBytes caps a single photo.
const MaxImageBytes = 20 << 20

type Image struct {
	Name     string
	Data     []byte
	MimeType string
}

// Source loads a photo by reference (a path or an object key).
type Source interface {
	Load(ctx context.Context, ref string) (Image, error)
}

// MimeFromPath guesses the image type from the extension, defaulting to JPEG.
func MimeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return caloriebot.MimePNG
	case ".webp":
		return caloriebot.MimeWebP
	default:
		return caloriebot.MimeJPEG
	}
}

func readLimited(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image %s exceeds %d bytes", name, MaxImageBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %s is empty", name)
	}
	return data, nil
}

type FileSource struct{}

func NewFileSource() *FileSource {
	return &FileSource{}
}

func (FileSource) Load(ctx context.Context, path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, err
	}
	defer f.Close()

	data, err := readLimited(f, path)
	if err != nil {
		return Image{}, err
	}
	return Image{Name: filepath.Base(path), Data: data, MimeType: MimeFromPath(path)}, nil
}
