package cloudinary

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// DefaultAudioFolder is where answer recordings are stored.
const DefaultAudioFolder = "interview_simulator/audio"

// audioTransformation converts recordings to 128k 44.1kHz MP3 on ingest.
const audioTransformation = "ac_mp3,br_128k,af_44100"

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Configured reports whether all credentials are present.
func (c Config) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Service stores answer recordings in Cloudinary.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	folder := strings.Trim(cfg.Folder, "/")
	if folder == "" {
		folder = DefaultAudioFolder
	}

	return &Service{
		client: cld,
		folder: folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// UploadAudio stores the recording under publicID as MP3 and returns its permanent secure URL.
func (s *Service) UploadAudio(ctx context.Context, publicID string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       publicID,
		ResourceType:   "video",
		Format:         "mp3",
		Transformation: audioTransformation,
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload audio: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("audio uploaded to cloudinary")

	return result.SecureURL, nil
}
