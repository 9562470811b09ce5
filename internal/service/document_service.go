package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/database"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/storage"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.StudentDocument) error
	FindByID(ctx context.Context, id string) (*models.StudentDocument, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentDocument, error)
	LatestByType(ctx context.Context, studentID string, types []string) (map[string]models.StudentDocument, error)
	Delete(ctx context.Context, id string) error
}

type requirementLookup interface {
	FindByID(ctx context.Context, id string) (*models.Requirement, error)
	ForProgram(ctx context.Context, programID string) ([]models.ProgramRequirement, error)
}

// DocumentUpload carries the multipart stream and its metadata.
type DocumentUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// DocumentServiceConfig holds bucket and validation limits.
type DocumentServiceConfig struct {
	Bucket       string
	MaxFileSize  int64
	AllowedMIMEs []string
	SignedURLTTL time.Duration
}

// DocumentService stores student documents and resolves reusable uploads.
type DocumentService struct {
	repo         documentRepository
	requirements requirementLookup
	storage      storage.ObjectStorage
	logger       *zap.Logger
	cfg          DocumentServiceConfig
	mimeSet      map[string]struct{}
	now          func() time.Time
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(repo documentRepository, requirements requirementLookup, store storage.ObjectStorage, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "application-documents"
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 15 * time.Minute
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}
	return &DocumentService{repo: repo, requirements: requirements, storage: store, logger: logger, cfg: cfg, mimeSet: mimeSet, now: time.Now}
}

// Upload validates the file, stores it under the student's prefix and records it.
func (s *DocumentService) Upload(ctx context.Context, studentID, requirementID string, upload DocumentUpload) (*models.StudentDocument, error) {
	if strings.TrimSpace(requirementID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requirement_id is required")
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := sniffMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}

	requirement, err := s.requirements.FindByID(ctx, requirementID)
	if err != nil {
		return nil, notFoundOr(err, "requirement not found", "failed to load requirement")
	}
	docType := models.DocumentTypeFromTitle(requirement.Title)
	key := s.objectKey(studentID, docType, upload.Filename, mimeType)

	obj, err := s.storage.Put(ctx, s.cfg.Bucket, key, upload.Content, mimeType)
	if err != nil {
		return nil, internalError(err, "failed to store document")
	}

	doc := &models.StudentDocument{
		StudentID:     studentID,
		RequirementID: &requirement.ID,
		DocumentType:  docType,
		FileName:      filepath.Base(upload.Filename),
		FileURL:       obj.URL,
		StorageKey:    key,
		MimeType:      mimeType,
		SizeBytes:     obj.Size,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		_ = s.storage.Delete(ctx, s.cfg.Bucket, key)
		return nil, internalError(err, "failed to record document")
	}
	s.logger.Info("document uploaded", zap.String("student_id", studentID), zap.String("document_type", docType), zap.Int64("size", doc.SizeBytes))
	return doc, nil
}

// List returns the student's documents, newest first.
func (s *DocumentService) List(ctx context.Context, studentID string) ([]models.StudentDocument, error) {
	docs, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to list documents")
	}
	if docs == nil {
		docs = []models.StudentDocument{}
	}
	return docs, nil
}

// DownloadURL issues a short-lived link to one of the student's documents.
func (s *DocumentService) DownloadURL(ctx context.Context, studentID, id string) (string, error) {
	doc, err := s.owned(ctx, studentID, id)
	if err != nil {
		return "", err
	}
	link, err := s.storage.SignedURL(ctx, s.cfg.Bucket, doc.StorageKey, s.cfg.SignedURLTTL)
	if err != nil {
		return "", internalError(err, "failed to sign document url")
	}
	return link, nil
}

// Delete removes one of the student's documents and its stored object.
func (s *DocumentService) Delete(ctx context.Context, studentID, id string) error {
	doc, err := s.owned(ctx, studentID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "document is attached to an application")
		}
		return notFoundOr(err, "document not found", "failed to delete document")
	}
	if err := s.storage.Delete(ctx, s.cfg.Bucket, doc.StorageKey); err != nil {
		s.logger.Warn("document object not removed", zap.String("key", doc.StorageKey), zap.Error(err))
	}
	return nil
}

// Reusable pairs every requirement of the program with the student's latest
// upload of the same document type.
func (s *DocumentService) Reusable(ctx context.Context, studentID, programID string) ([]models.ReusableDocument, error) {
	if strings.TrimSpace(programID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program_id is required")
	}
	reqs, err := s.requirements.ForProgram(ctx, programID)
	if err != nil {
		return nil, internalError(err, "failed to load program requirements")
	}
	types := make([]string, 0, len(reqs))
	for _, r := range reqs {
		types = append(types, r.DocumentType())
	}
	latest, err := s.repo.LatestByType(ctx, studentID, types)
	if err != nil {
		return nil, internalError(err, "failed to load reusable documents")
	}

	result := make([]models.ReusableDocument, 0, len(reqs))
	for _, r := range reqs {
		item := models.ReusableDocument{
			RequirementID: r.RequirementID,
			Title:         r.Title,
			DocumentType:  r.DocumentType(),
			IsMandatory:   r.IsMandatory,
		}
		if doc, ok := latest[item.DocumentType]; ok {
			doc := doc
			item.Document = &doc
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *DocumentService) owned(ctx context.Context, studentID, id string) (*models.StudentDocument, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "document not found", "failed to load document")
	}
	if doc.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return doc, nil
}

func (s *DocumentService) objectKey(studentID, docType, original, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = extensionForMime(mimeType)
	}
	name := fmt.Sprintf("%d_%s%s", s.now().Unix(), randomHex(4), ext)
	return storage.JoinKey(studentID, docType, name)
}

func sniffMime(upload DocumentUpload) (string, error) {
	if mt := strings.TrimSpace(upload.MimeType); mt != "" && mt != "application/octet-stream" {
		return strings.ToLower(strings.Split(mt, ";")[0]), nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", internalError(err, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", internalError(err, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	return strings.Split(http.DetectContentType(header[:n]), ";")[0], nil
}

func extensionForMime(mime string) string {
	switch mime {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
