// Package media prepares chat attachments before they are uploaded.
package media

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fathima-sithara/conversation-service/internal/domain"
)

var allowedTypes = map[string]domain.MediaType{
	"image/png":       domain.MediaImage,
	"image/jpeg":      domain.MediaImage,
	"image/jpg":       domain.MediaImage,
	"image/gif":       domain.MediaImage,
	"image/webp":      domain.MediaImage,
	"video/mp4":       domain.MediaVideo,
	"video/quicktime": domain.MediaVideo,
}

var audioTypes = map[string]bool{
	"audio/aac":  true,
	"audio/mp4":  true,
	"audio/m4a":  true,
	"audio/mpeg": true,
	"audio/ogg":  true,
	"audio/webm": true,
	"audio/wav":  true,
}

// Processor downsizes images and checks attachment types.
type Processor struct {
	maxDimension int
	jpegQuality  int
	maxBytes     int64
}

func NewProcessor(maxDimension, jpegQuality int, maxBytes int64) *Processor {
	return &Processor{maxDimension: maxDimension, jpegQuality: jpegQuality, maxBytes: maxBytes}
}

// DetectType returns the declared content type, sniffing it when absent.
func DetectType(declared string, data []byte) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if ct == "" || ct == "application/octet-stream" {
		ct = strings.SplitN(http.DetectContentType(data), ";", 2)[0]
	}
	return ct
}

// Media validates a photo or video and returns the bytes to upload.
// Images larger than the configured dimension are resized and re-encoded as JPEG.
func (p *Processor) Media(data []byte, contentType string) ([]byte, string, domain.MediaType, error) {
	if err := p.checkSize(data); err != nil {
		return nil, "", "", err
	}
	ct := DetectType(contentType, data)
	kind, ok := allowedTypes[ct]
	if !ok {
		return nil, "", "", fmt.Errorf("%w: content type %q is not allowed", domain.ErrValidation, ct)
	}
	if kind != domain.MediaImage || ct == "image/gif" || ct == "image/webp" {
		return data, ct, kind, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: unreadable image: %v", domain.ErrValidation, err)
	}
	b := img.Bounds()
	if b.Dx() <= p.maxDimension && b.Dy() <= p.maxDimension {
		return data, ct, kind, nil
	}
	resized := imaging.Fit(img, p.maxDimension, p.maxDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(p.jpegQuality)); err != nil {
		return nil, "", "", fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", kind, nil
}

// Voice validates a voice note.
func (p *Processor) Voice(data []byte, contentType string) ([]byte, string, error) {
	if err := p.checkSize(data); err != nil {
		return nil, "", err
	}
	ct := DetectType(contentType, data)
	if !audioTypes[ct] {
		return nil, "", fmt.Errorf("%w: content type %q is not an audio type", domain.ErrValidation, ct)
	}
	return data, ct, nil
}

func (p *Processor) checkSize(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: attachment is empty", domain.ErrValidation)
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return fmt.Errorf("%w: attachment exceeds %d bytes", domain.ErrValidation, p.maxBytes)
	}
	return nil
}
