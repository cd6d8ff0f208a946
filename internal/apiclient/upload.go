package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/stemsi/exstem-player/internal/model"
)

// Sentinel errors for uploads, checked before anything is sent.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileRequired        = errors.New("file is required")
)

// Allowed upload MIME types, detected from content rather than the filename.
var allowedMIMETypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

// Attachment is a file to upload.
type Attachment struct {
	Filename string
	Content  io.Reader
}

type sniffedFile struct {
	name string
	mime string
	data []byte
}

func (c *Client) sniff(a Attachment) (*sniffedFile, error) {
	if a.Content == nil {
		return nil, ErrFileRequired
	}
	data, err := io.ReadAll(io.LimitReader(a.Content, c.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", a.Filename, err)
	}
	if len(data) == 0 {
		return nil, ErrFileRequired
	}
	if int64(len(data)) > c.maxUploadBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, a.Filename, c.maxUploadBytes)
	}

	mt := mimetype.Detect(data)
	base := strings.TrimSpace(strings.SplitN(mt.String(), ";", 2)[0])
	if !allowedMIMETypes[base] {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFileType, a.Filename, base)
	}

	name := filepath.Base(a.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "upload" + mt.Extension()
	}
	return &sniffedFile{name: name, mime: base, data: data}, nil
}

func writeFilePart(w *multipart.Writer, field string, f *sniffedFile) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.name))
	h.Set("Content-Type", f.mime)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(f.data)
	return err
}

func (c *Client) postMultipart(ctx context.Context, path string, build func(w *multipart.Writer) error, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := build(w); err != nil {
		return fmt.Errorf("build multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}
	h := http.Header{}
	h.Set("Content-Type", w.FormDataContentType())
	return c.do(ctx, http.MethodPost, path, &buf, h, out)
}

// DigitizeQuestionPaper uploads a scanned paper and returns the questions the
// backend extracted from it.
func (c *Client) DigitizeQuestionPaper(ctx context.Context, paper Attachment) (*model.DigitizedPaper, error) {
	f, err := c.sniff(paper)
	if err != nil {
		return nil, err
	}
	var out model.DigitizedPaper
	err = c.postMultipart(ctx, "/uploads/question-paper", func(w *multipart.Writer) error {
		return writeFilePart(w, "file", f)
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitFeedback sends a feedback message with optional screenshots.
func (c *Client) SubmitFeedback(ctx context.Context, req model.FeedbackRequest, screenshots []Attachment) (*model.FeedbackReceipt, error) {
	files := make([]*sniffedFile, 0, len(screenshots))
	for _, s := range screenshots {
		f, err := c.sniff(s)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	var out model.FeedbackReceipt
	err := c.postMultipart(ctx, "/feedback", func(w *multipart.Writer) error {
		if err := w.WriteField("category", req.Category); err != nil {
			return err
		}
		if err := w.WriteField("message", req.Message); err != nil {
			return err
		}
		if len(req.Context) > 0 {
			if !json.Valid(req.Context) {
				return errors.New("feedback context is not valid JSON")
			}
			if err := w.WriteField("context", string(req.Context)); err != nil {
				return err
			}
		}
		for _, f := range files {
			if err := writeFilePart(w, "screenshots", f); err != nil {
				return err
			}
		}
		return nil
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
