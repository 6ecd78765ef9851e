package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// ErrObjectNotFound is returned by Delete when nothing is stored at the path.
var ErrObjectNotFound = errors.New("object not found")

// attachments are stored as raw assets so documents keep their bytes intact
// and public IDs keep their extension.
const resourceType = "raw"

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// StoredObject describes an uploaded asset.
type StoredObject struct {
	Path string
	URL  string
	Size int64
}

// Service stores activity attachments in Cloudinary.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores the reader's bytes at path and returns the download URL.
func (s *Service) Upload(ctx context.Context, path string, reader io.Reader) (StoredObject, error) {
	publicID := s.publicID(path)

	result, err := s.client.Upload.Upload(ctx, reader, uploader.UploadParams{
		PublicID:       publicID,
		ResourceType:   resourceType,
		Overwrite:      api.Bool(false),
		UniqueFilename: api.Bool(false),
	})
	if err != nil {
		return StoredObject{}, fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return StoredObject{}, fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("attachment uploaded to cloudinary")

	return StoredObject{
		Path: path,
		URL:  result.SecureURL,
		Size: int64(result.Bytes),
	}, nil
}

// Delete removes the asset stored at path. Missing assets yield
// ErrObjectNotFound.
func (s *Service) Delete(ctx context.Context, path string) error {
	publicID := s.publicID(path)

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	switch result.Result {
	case "ok":
		s.logger.Info().Str("public_id", publicID).Msg("attachment deleted from cloudinary")
		return nil
	case "not found":
		return ErrObjectNotFound
	default:
		if result.Error.Message != "" {
			return fmt.Errorf("failed to delete asset: %s", result.Error.Message)
		}
		return fmt.Errorf("failed to delete asset: unexpected result %q", result.Result)
	}
}

func (s *Service) publicID(path string) string {
	path = strings.Trim(path, "/")
	if s.folder == "" {
		return path
	}
	return s.folder + "/" + path
}
