package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
)

// multipartMemory is how much of a form is held in memory before parts
// spill to temporary files.
var multipartMemory int64 = 32 << 20

var (
	errUnknownField = errors.New("unknown field name")
	errFileTooLarge = errors.New("file too large")
)

// uploadRule says which media type family a file field accepts.
type uploadRule struct {
	field  string
	family string // "audio" or "image"
}

// uploadError carries the status and message to answer with.
type uploadError struct {
	status  int
	message string
	err     error
}

func (e *uploadError) Error() string { return e.message }
func (e *uploadError) Unwrap() error { return e.err }

// parseUpload reads a multipart form and validates every file part against
// rules. Each file may be at most maxSize bytes; unknown file fields are
// rejected.
func parseUpload(w http.ResponseWriter, r *http.Request, maxSize int64, rules ...uploadRule) *uploadError {
	// Room for one file per rule plus the text fields.
	r.Body = http.MaxBytesReader(w, r.Body, int64(len(rules))*maxSize+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &uploadError{http.StatusRequestEntityTooLarge, fileTooLargeMessage(maxSize), errFileTooLarge}
		}
		return &uploadError{http.StatusBadRequest, "Failed to parse multipart form", err}
	}

	if uerr := checkUpload(r.MultipartForm, maxSize, rules); uerr != nil {
		// Callers only clean up forms that passed.
		_ = r.MultipartForm.RemoveAll()
		return uerr
	}
	return nil
}

func checkUpload(form *multipart.Form, maxSize int64, rules []uploadRule) *uploadError {
	allowed := make(map[string]string, len(rules))
	for _, rule := range rules {
		allowed[rule.field] = rule.family
	}

	for field, headers := range form.File {
		family, ok := allowed[field]
		if !ok {
			return &uploadError{http.StatusBadRequest, "Unknown field name", fmt.Errorf("%w: %s", errUnknownField, field)}
		}
		for _, fh := range headers {
			if fh.Size > maxSize {
				return &uploadError{http.StatusRequestEntityTooLarge, fileTooLargeMessage(maxSize), errFileTooLarge}
			}
			ct, err := fileContentType(fh)
			if err != nil {
				return &uploadError{http.StatusBadRequest, "Failed to read uploaded file", err}
			}
			if !strings.HasPrefix(ct, family+"/") {
				msg := fmt.Sprintf("File type not supported. Please upload an %s file.", family)
				return &uploadError{http.StatusBadRequest, msg, fmt.Errorf("field %s has type %s", field, ct)}
			}
		}
	}
	return nil
}

func fileTooLargeMessage(maxSize int64) string {
	return "File too large, the limit is " + humanize.IBytes(uint64(maxSize))
}

// fileContentType trusts the declared type unless it is missing or generic,
// in which case the first bytes are sniffed.
func fileContentType(fh *multipart.FileHeader) (string, error) {
	ct := fh.Header.Get("Content-Type")
	if ct != "" && ct != "application/octet-stream" {
		return ct, nil
	}

	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

// formFile returns the first file of field, or nil.
func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil
	}
	return headers[0]
}

// contentTypeOf is fileContentType with a generic fallback.
func contentTypeOf(fh *multipart.FileHeader) string {
	ct, err := fileContentType(fh)
	if err != nil || ct == "" {
		return "application/octet-stream"
	}
	return ct
}
