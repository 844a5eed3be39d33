package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/interview-sim-api/internal/dto"
	"github.com/noah-isme/interview-sim-api/internal/models"
	"github.com/noah-isme/interview-sim-api/internal/observability"
	"github.com/noah-isme/interview-sim-api/internal/repository"
)

var (
	// ErrAudioFileMissing indicates the request carried no recording.
	ErrAudioFileMissing = errors.New("no audio file provided")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrAudioTypeNotAllowed indicates the payload is not a recording.
	ErrAudioTypeNotAllowed = errors.New("file is not an audio recording")
	// ErrAudioStorageNotConfigured indicates no storage provider credentials were supplied.
	ErrAudioStorageNotConfigured = errors.New("audio storage not configured")
	// ErrAudioStorageFailed indicates the storage provider rejected the upload.
	ErrAudioStorageFailed = errors.New("failed to store audio")
)

// AudioStorage stores a recording and returns its permanent URL.
type AudioStorage interface {
	UploadAudio(ctx context.Context, publicID string, reader io.Reader) (string, error)
}

// AudioUploadService validates answer recordings and hands them to storage.
type AudioUploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, sessionKey string) (dto.AudioUploadResponse, error)
}

type audioUploadService struct {
	storage AudioStorage
	repo    repository.AudioUploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewAudioUploadService constructs the upload service. storage and repo may be nil.
func NewAudioUploadService(storage AudioStorage, repo repository.AudioUploadRepository, maxSizeMB int, logger zerolog.Logger) AudioUploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &audioUploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "audio_upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/interview-sim-api/internal/service/audio_upload"),
	}
}

func (s *audioUploadService) Upload(ctx context.Context, file *multipart.FileHeader, sessionKey string) (dto.AudioUploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "audio.upload")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize))

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file == nil {
		span.RecordError(ErrAudioFileMissing)
		span.SetStatus(codes.Error, "validation failed")
		return dto.AudioUploadResponse{}, ErrAudioFileMissing
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if s.storage == nil {
		span.SetStatus(codes.Error, "storage not configured")
		return dto.AudioUploadResponse{}, ErrAudioStorageNotConfigured
	}

	if file.Size > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.AudioUploadResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.AudioUploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.AudioUploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.AudioUploadResponse{}, ErrUploadTooLarge
	}
	if buf.Len() == 0 {
		span.RecordError(ErrAudioFileMissing)
		span.SetStatus(codes.Error, "empty file")
		return dto.AudioUploadResponse{}, ErrAudioFileMissing
	}

	detected := mimetype.Detect(buf.Bytes()).String()
	span.SetAttributes(attribute.String("upload.detected_mime", detected))
	if !isRecordingType(detected) {
		observability.UploadRejected().WithLabelValues("type").Inc()
		span.RecordError(ErrAudioTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return dto.AudioUploadResponse{}, ErrAudioTypeNotAllowed
	}
	mime := baseMime(detected)

	publicID := "user_audio_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	span.SetAttributes(attribute.String("upload.public_id", publicID))

	url, err := s.storage.UploadAudio(ctx, publicID, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.AudioUploadResponse{}, fmt.Errorf("%w: %v", ErrAudioStorageFailed, err)
	}

	checksum := sha256.Sum256(buf.Bytes())
	if s.repo != nil {
		record := models.AudioUpload{
			SessionKey: sessionKey,
			PublicID:   publicID,
			FileName:   recordingFileName(file.Filename),
			URL:        url,
			MimeType:   mime,
			SizeBytes:  int64(buf.Len()),
			Checksum:   hex.EncodeToString(checksum[:]),
		}
		if err := s.repo.Create(ctx, &record); err != nil {
			s.logger.Warn().Err(err).Str("public_id", publicID).Msg("failed to record audio upload")
		}
	}

	observability.UploadRequests().WithLabelValues(mime).Inc()
	span.SetStatus(codes.Ok, "stored")

	return dto.AudioUploadResponse{
		AudioURL:      url,
		CloudinaryURL: url,
		PublicID:      publicID,
		MimeType:      mime,
		SizeBytes:     int64(buf.Len()),
	}, nil
}

// isRecordingType accepts audio and the containers browsers record into.
func isRecordingType(detected string) bool {
	m := baseMime(detected)
	if strings.HasPrefix(m, "audio/") {
		return true
	}
	switch m {
	case "video/webm", "application/ogg":
		return true
	default:
		return false
	}
}

func baseMime(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(m, ";"); idx >= 0 {
		m = strings.TrimSpace(m[:idx])
	}
	return m
}

func recordingFileName(name string) string {
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "recording.webm"
	}
	if len(name) > 255 {
		name = name[len(name)-255:]
	}
	return name
}
