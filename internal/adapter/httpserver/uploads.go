package httpserver

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/sift/internal/adapter/textextractor"
	"github.com/fairyhunter13/sift/internal/domain"
)

const (
	fieldResumes        = "resumes"
	fieldJobDescription = "jobDescription"
	fieldAPIKey         = "apiKey"
	multipartMemory     = 32 << 20
)

var errPayloadTooLarge = errors.New("payload too large")

// sniffed lists the detected content types accepted per extension. Detection
// walks the parent chain, so a DOCX reported as plain zip still passes.
var sniffed = map[string][]string{
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
}

// parseUpload parses a multipart body capped at maxBytes.
func parseUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return fmt.Errorf("%w: limit is %d bytes", errPayloadTooLarge, maxBytes)
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func formValue(r *http.Request, name string) string {
	if r.MultipartForm == nil {
		return ""
	}
	if v := r.MultipartForm.Value[name]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// readResumes loads every file of the resumes field after checking count,
// extension and sniffed content.
func readResumes(r *http.Request, maxCount int) ([]domain.ResumeDocument, error) {
	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File[fieldResumes]
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: at least one resume file is required", domain.ErrInvalidArgument)
	}
	if maxCount > 0 && len(headers) > maxCount {
		return nil, fmt.Errorf("%w: at most %d resumes per request", domain.ErrInvalidArgument, maxCount)
	}

	docs := make([]domain.ResumeDocument, 0, len(headers))
	for _, h := range headers {
		doc, err := readResume(h)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func readResume(h *multipart.FileHeader) (domain.ResumeDocument, error) {
	name := filepath.Base(h.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !textextractor.AllowedExtensions[ext] {
		return domain.ResumeDocument{}, fmt.Errorf("%w: %s: only pdf, doc and docx are accepted", domain.ErrUnsupportedMedia, name)
	}
	f, err := h.Open()
	if err != nil {
		return domain.ResumeDocument{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidArgument, name, err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return domain.ResumeDocument{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidArgument, name, err)
	}
	if len(data) == 0 {
		return domain.ResumeDocument{}, fmt.Errorf("%w: %s is empty", domain.ErrInvalidArgument, name)
	}
	if !contentMatches(ext, data) {
		return domain.ResumeDocument{}, fmt.Errorf("%w: %s: content is not %s", domain.ErrUnsupportedMedia, name, strings.TrimPrefix(ext, "."))
	}
	return domain.ResumeDocument{Name: name, Data: data}, nil
}

func contentMatches(ext string, data []byte) bool {
	allowed := sniffed[ext]
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		for _, a := range allowed {
			if m.Is(a) {
				return true
			}
		}
	}
	return false
}
