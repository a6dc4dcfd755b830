package controllers

import (
	"net/http"

	"github.com/printly/printly-backend/api/responses"
	"github.com/printly/printly-backend/internal/uploads"
	"github.com/printly/printly-backend/pkg/config"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/printly/printly-backend/pkg/logger"
)

const uploadFieldName = "files"

// multipart bookkeeping overhead on top of the batch cap
const multipartMemorySlack = 1 << 20

// UploadFiles accepts a multipart batch under the "files" field and parks the
// accepted files in the blob store.
func UploadFiles(svc uploads.Service, limits config.UploadConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		r.Body = http.MaxBytesReader(w, r.Body, limits.MaxBatchBytes()+multipartMemorySlack)
		if err := r.ParseMultipartForm(limits.MaxBatchBytes()); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart request").
				WithSuggestion("send files under the 'files' form field"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File[uploadFieldName]
		if len(headers) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "at least one file is required").
				WithSuggestion("send files under the 'files' form field"))
			return
		}

		parts := make([]uploads.FilePart, 0, len(headers))
		closers := make([]func() error, 0, len(headers))
		defer func() {
			for _, closeFile := range closers {
				closeFile()
			}
		}()

		for _, header := range headers {
			file, err := header.Open()
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable file part"))
				return
			}
			closers = append(closers, file.Close)
			parts = append(parts, uploads.FilePart{
				Name:    header.Filename,
				Size:    header.Size,
				Content: file,
			})
		}

		stored, err := svc.Intake(ctx, parts)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"files": stored})
	}
}
