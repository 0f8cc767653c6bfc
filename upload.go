package frappekit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"sync/atomic"
)

// UploadEndpoint receives multipart file uploads.
const UploadEndpoint = "/api/method/upload_file"

// File is the content to upload.
type File struct {
	Name    string
	Content io.Reader
}

// UploadArgs are the optional form fields of an upload.
type UploadArgs struct {
	IsPrivate bool
	Folder    string
	FileURL   string
	Doctype   string
	Docname   string
	Fieldname string
}

// FileUploadResponse describes the stored file.
type FileUploadResponse struct {
	Name      string `json:"name"`
	FileURL   string `json:"file_url"`
	FileName  string `json:"file_name"`
	IsPrivate int    `json:"is_private"`
}

type uploadCall struct {
	file       File
	args       UploadArgs
	onProgress ProgressFunc
}

// FileUpload is a mutation that uploads one file and tracks its progress as
// a percentage.
type FileUpload struct {
	t        Transport
	mutation *Mutation[uploadCall, FileUploadResponse]
	progress atomic.Int64
}

// NewFileUpload returns an idle upload runner over t.
func NewFileUpload(t Transport) *FileUpload {
	u := &FileUpload{t: t}
	u.mutation = NewMutation("upload_file", u.send)
	return u
}

// WithMutationMetrics records upload outcomes on mc.
func (u *FileUpload) WithMutationMetrics(mc *MetricsCollector) *FileUpload {
	u.mutation.WithMutationMetrics(mc)
	return u
}

// Upload sends file. onProgress, if set, receives the raw byte counts; the
// rounded percentage is available from Progress while the upload runs and
// is 100 once it succeeds.
func (u *FileUpload) Upload(ctx context.Context, file File, args UploadArgs, onProgress ProgressFunc) (FileUploadResponse, error) {
	u.progress.Store(0)
	res, err := u.mutation.Run(ctx, uploadCall{file: file, args: args, onProgress: onProgress})
	if err == nil {
		u.progress.Store(100)
	}
	return res, err
}

// Progress returns the upload percentage, 0 to 100.
func (u *FileUpload) Progress() int {
	return int(u.progress.Load())
}

// State returns the mutation snapshot.
func (u *FileUpload) State() MutationState[FileUploadResponse] {
	return u.mutation.State()
}

// Reset returns the runner to idle with zero progress.
func (u *FileUpload) Reset() {
	u.mutation.Reset()
	u.progress.Store(0)
}

func (u *FileUpload) send(ctx context.Context, call uploadCall) (FileUploadResponse, error) {
	body, err := encodeUpload(call.file, call.args)
	if err != nil {
		return FileUploadResponse{}, &ClientError{
			Kind:    ErrorKindValidation,
			Message: err.Error(),
			Method:  http.MethodPost,
			Path:    UploadEndpoint,
			Cause:   err,
		}
	}

	env, err := u.t.Send(ctx, &Request{
		Method:    http.MethodPost,
		Path:      UploadEndpoint,
		Multipart: body,
		OnProgress: func(transferred, total int64) {
			if total <= 0 {
				return
			}
			u.observeProgress(percent(transferred, total))
			if call.onProgress != nil {
				call.onProgress(transferred, total)
			}
		},
	})
	if err != nil {
		return FileUploadResponse{}, err
	}
	return DecodeEnvelope[FileUploadResponse](env, ShapeRPC)
}

// observeProgress raises the stored percentage to pct; it never lowers it.
func (u *FileUpload) observeProgress(pct int64) {
	for {
		cur := u.progress.Load()
		if pct <= cur {
			return
		}
		if u.progress.CompareAndSwap(cur, pct) {
			return
		}
	}
}

func percent(transferred, total int64) int64 {
	pct := int64(math.Round(float64(transferred) / float64(total) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func encodeUpload(file File, args UploadArgs) (*MultipartBody, error) {
	if file.Content == nil {
		return nil, errors.New("upload: file has no content")
	}
	name := file.Name
	if name == "" {
		name = "file"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return nil, err
	}

	private := "0"
	if args.IsPrivate {
		private = "1"
	}
	fields := []struct{ key, value string }{
		{"is_private", private},
		{"folder", args.Folder},
		{"file_url", args.FileURL},
		{"doctype", args.Doctype},
		{"docname", args.Docname},
		{"fieldname", args.Fieldname},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &MultipartBody{ContentType: w.FormDataContentType(), Data: buf.Bytes()}, nil
}
