package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/puertonuevo/portal-api/internal/dto"
	"github.com/puertonuevo/portal-api/internal/models"
	"github.com/puertonuevo/portal-api/internal/observability"
	cloud "github.com/puertonuevo/portal-api/pkg/cloudinary"
)

// ObjectStorage stores attachment bytes under a path.
type ObjectStorage interface {
	Upload(ctx context.Context, path string, reader io.Reader) (cloud.StoredObject, error)
	Delete(ctx context.Context, path string) error
}

const defaultMaxUploadMB = 20

var blockedExtensions = map[string]struct{}{
	"zip": {},
	"exe": {},
	"bat": {},
}

var allowedExtensions = map[string]struct{}{
	"pdf":  {},
	"doc":  {},
	"docx": {},
	"xls":  {},
	"xlsx": {},
	"ppt":  {},
	"pptx": {},
	"odt":  {},
	"ods":  {},
	"odp":  {},
	"rtf":  {},
	"txt":  {},
	"csv":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"webp": {},
}

var allowedMIMETypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.ms-excel":                                                  {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.ms-powerpoint":                                             {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"application/vnd.oasis.opendocument.text":                                   {},
	"application/vnd.oasis.opendocument.spreadsheet":                            {},
	"application/vnd.oasis.opendocument.presentation":                           {},
	"application/rtf":                                                           {},
	"text/plain":                                                                {},
	"text/csv":                                                                  {},
	"image/jpeg":                                                                {},
	"image/png":                                                                 {},
	"image/gif":                                                                 {},
	"image/webp":                                                                {},
}

// validateFiles checks every attachment before anything is uploaded.
func validateFiles(files []*multipart.FileHeader, maxSize int64) error {
	for _, file := range files {
		if file == nil {
			return newValidationError("files", "empty attachment")
		}
		name := strings.TrimSpace(file.Filename)
		ext := fileExtension(name)

		if _, blocked := blockedExtensions[ext]; blocked {
			observability.AttachmentRejected().WithLabelValues("blocked").Inc()
			return newValidationError("files", "file type not allowed: %s", name)
		}
		if file.Size > maxSize {
			observability.AttachmentRejected().WithLabelValues("size").Inc()
			return newValidationError("files", "file exceeds the %d MB limit: %s", maxSize>>20, name)
		}
		_, extAllowed := allowedExtensions[ext]
		_, mimeAllowed := allowedMIMETypes[declaredContentType(file)]
		if !extAllowed && !mimeAllowed {
			observability.AttachmentRejected().WithLabelValues("type").Inc()
			return newValidationError("files", "file type not allowed: %s", name)
		}
	}
	return nil
}

// normalizeLinks validates link deliverables. Blank entries are skipped.
func normalizeLinks(inputs []dto.LinkInput) ([]models.ActivityItem, error) {
	items := make([]models.ActivityItem, 0, len(inputs))
	for _, input := range inputs {
		raw := strings.TrimSpace(input.URL)
		if raw == "" {
			continue
		}

		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			return nil, newValidationError("links", "invalid link: %s", raw)
		}
		scheme := strings.ToLower(parsed.Scheme)
		if scheme != "http" && scheme != "https" {
			return nil, newValidationError("links", "link must use http or https: %s", raw)
		}
		parsed.Scheme = scheme
		parsed.Host = strings.ToLower(parsed.Host)
		host := parsed.Hostname()

		label := strings.TrimSpace(input.Label)
		if label == "" {
			label = host
		}

		items = append(items, models.ActivityItem{
			Kind:  models.ItemKindLink,
			Label: label,
			URL:   parsed.String(),
			Host:  host,
		})
	}
	return items, nil
}

// parseDueDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		utc := parsed.UTC()
		return &utc, nil
	}
	if parsed, err := time.Parse(time.DateOnly, raw); err == nil {
		return &parsed, nil
	}
	return nil, newValidationError("due_date", "invalid due date: %s", raw)
}

// attachmentPath builds activities/<activity>/<uploader>/<millis>_<index>_<name>.
func attachmentPath(activityID, uploaderID string, at time.Time, index int, filename string) string {
	return fmt.Sprintf("activities/%s/%s/%d_%d_%s", activityID, sanitizePathSegment(uploaderID), at.UnixMilli(), index, sanitizeFileName(filename))
}

// detectContentType prefers the declared type and sniffs the payload when
// the client sent none.
func detectContentType(file *multipart.FileHeader, payload []byte) string {
	declared := declaredContentType(file)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	detected, _, err := mime.ParseMediaType(mimetype.Detect(payload).String())
	if err != nil {
		return "application/octet-stream"
	}
	return detected
}

func declaredContentType(file *multipart.FileHeader) string {
	if file == nil || file.Header == nil {
		return ""
	}
	raw := file.Header.Get("Content-Type")
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}

func fileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func sanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if folded, _, err := transform.String(accentStripper, base); err == nil {
		base = folded
	}
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "archivo"
	}
	ext := fileExtension(name)
	if ext == "" {
		return base
	}
	return base + "." + ext
}

func sanitizePathSegment(value string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(value))
}
