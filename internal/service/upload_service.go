package service

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/stemsi/exstem-player/internal/apiclient"
	"github.com/stemsi/exstem-player/internal/auth"
	"github.com/stemsi/exstem-player/internal/model"
)

// UploadService forwards question-paper scans and feedback screenshots to
// the backend. Files are type-checked by content before anything is sent.
type UploadService struct {
	api            *apiclient.Client
	maxUploadBytes int64
}

// NewUploadService creates a new UploadService.
func NewUploadService(api *apiclient.Client, maxUploadBytes int64) *UploadService {
	return &UploadService{api: api, maxUploadBytes: maxUploadBytes}
}

func (s *UploadService) checkSize(header *multipart.FileHeader) error {
	if s.maxUploadBytes > 0 && header.Size > s.maxUploadBytes {
		return fmt.Errorf("%w: %d bytes (max: %d)", apiclient.ErrFileTooLarge, header.Size, s.maxUploadBytes)
	}
	return nil
}

// DigitizeQuestionPaper uploads one scanned paper.
func (s *UploadService) DigitizeQuestionPaper(ctx context.Context, id *auth.Identity, header *multipart.FileHeader) (*model.DigitizedPaper, error) {
	if err := s.checkSize(header); err != nil {
		return nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	return s.api.WithIdentity(id).DigitizeQuestionPaper(ctx, apiclient.Attachment{
		Filename: header.Filename,
		Content:  file,
	})
}

// SubmitFeedback sends a feedback message with optional screenshots.
func (s *UploadService) SubmitFeedback(ctx context.Context, id *auth.Identity, req model.FeedbackRequest, screenshots []*multipart.FileHeader) (*model.FeedbackReceipt, error) {
	attachments := make([]apiclient.Attachment, 0, len(screenshots))
	for _, header := range screenshots {
		if err := s.checkSize(header); err != nil {
			return nil, err
		}
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload: %w", err)
		}
		defer file.Close()
		attachments = append(attachments, apiclient.Attachment{Filename: header.Filename, Content: file})
	}
	return s.api.WithIdentity(id).SubmitFeedback(ctx, req, attachments)
}
