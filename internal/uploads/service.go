package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/printly/printly-backend/pkg/config"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/printly/printly-backend/pkg/logger"
	"github.com/printly/printly-backend/pkg/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// allowedTypes maps the accepted extensions to the sniffed MIME types they may
// carry. DOCX is a zip container and legacy DOC an OLE compound file, so both
// fall back to their container type when the sniffer cannot go deeper.
var allowedTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
}

// Service receives customer files ahead of order creation and parks them in
// the blob store under a per-batch prefix.
type Service interface {
	Intake(ctx context.Context, parts []FilePart) ([]StoredFile, error)
}

type service struct {
	blobs  storage.Store
	limits config.UploadConfig
	logg   *logger.Logger
}

// NewService builds the upload intake service.
func NewService(blobs storage.Store, limits config.UploadConfig, logg *logger.Logger) (Service, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if limits.MaxFileMB <= 0 || limits.MaxBatchMB <= 0 {
		return nil, fmt.Errorf("upload limits must be positive")
	}
	return &service{blobs: blobs, limits: limits, logg: logg}, nil
}

func (s *service) Intake(ctx context.Context, parts []FilePart) ([]StoredFile, error) {
	if len(parts) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one file is required")
	}

	batchID := uuid.New().String()
	maxFile := s.limits.MaxFileBytes()
	maxBatch := s.limits.MaxBatchBytes()

	var batchTotal int64
	seen := map[string]bool{}
	stored := make([]StoredFile, 0, len(parts))

	for _, part := range parts {
		name := SanitizeName(part.Name)
		ext := strings.ToLower(filepath.Ext(name))
		allowed, ok := allowedTypes[ext]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "file type not allowed").
				WithDetails(map[string]any{"file": part.Name}).
				WithSuggestion("upload PDF, DOC, DOCX, JPG or PNG files")
		}

		// Read through a limiter one byte past the cap so oversized files are
		// detected without buffering them whole.
		buf, err := io.ReadAll(io.LimitReader(part.Content, maxFile+1))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read upload")
		}
		size := int64(len(buf))
		if size == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty file").
				WithDetails(map[string]any{"file": name})
		}
		if size > maxFile {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "file too large").
				WithDetails(map[string]any{"file": name, "max_mb": s.limits.MaxFileMB})
		}
		batchTotal += size
		if batchTotal > maxBatch {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload batch too large").
				WithDetails(map[string]any{"max_mb": s.limits.MaxBatchMB})
		}

		mtype := mimetype.Detect(buf)
		if !matchesAny(mtype, allowed) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "file content does not match its extension").
				WithDetails(map[string]any{"file": name, "detected": mtype.String()})
		}

		name = dedupeName(name, seen)
		key := batchID + "/" + name

		url, err := s.blobs.Put(ctx, key, bytes.NewReader(buf), size, mtype.String())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
		}

		stored = append(stored, StoredFile{
			Name:       name,
			StorageKey: key,
			Size:       size,
			MimeType:   mtype.String(),
			URL:        url,
		})
	}

	if s.logg != nil {
		lctx := s.logg.WithField(ctx, "batch_id", batchID)
		lctx = s.logg.WithField(lctx, "files", len(stored))
		s.logg.Info(lctx, "upload batch stored")
	}
	return stored, nil
}

func matchesAny(mtype *mimetype.MIME, allowed []string) bool {
	for _, candidate := range allowed {
		if mtype.Is(candidate) {
			return true
		}
	}
	return false
}

// SanitizeName strips any path components and reduces the file name to a safe
// character set, preserving the extension.
func SanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		cleaned = "file"
	}
	return cleaned + strings.ToLower(ext)
}

// dedupeName appends "(1)", "(2)", ... before the extension until the name is
// unused within the batch.
func dedupeName(name string, used map[string]bool) string {
	if !used[name] {
		used[name] = true
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s(%d)%s", stem, i, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}
