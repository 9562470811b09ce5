package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/internal/repository"
	"github.com/noah-isme/studyabroad-api/pkg/database"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/export"
	"github.com/noah-isme/studyabroad-api/pkg/middleware/requestid"
)

// Wizard steps.
const (
	StepPersonalInfo = 1
	StepDocuments    = 2
	StepReview       = 3
)

type applicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	FindByClientReference(ctx context.Context, studentID, reference string) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationSummary, int, error)
	ListAll(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationSummary, error)
	UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus, notes *string) error
}

type documentOwnership interface {
	OwnedIDs(ctx context.Context, studentID string, ids []string) (map[string]bool, error)
}

// ApplicationService runs the application wizard checks, submissions and reviews.
type ApplicationService struct {
	repo         applicationRepository
	programs     programFinder
	requirements programRequirementReader
	documents    documentOwnership
	audit        auditWriter
	permissions  permissionResolver
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(repo applicationRepository, programs programFinder, requirements programRequirementReader, documents documentOwnership, audit auditWriter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ApplicationService{
		repo:         repo,
		programs:     programs,
		requirements: requirements,
		documents:    documents,
		audit:        audit,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// WithPermissions attaches the resolver deciding whether a caller may read
// applications that are not their own.
func (s *ApplicationService) WithPermissions(resolver permissionResolver) *ApplicationService {
	s.permissions = resolver
	return s
}

// ValidateStep checks one wizard step against the program's requirements.
func (s *ApplicationService) ValidateStep(ctx context.Context, step int, draft dto.ApplicationDraft) (*dto.StepValidation, error) {
	if step < StepPersonalInfo || step > StepReview {
		return nil, appErrors.Clone(appErrors.ErrValidation, "step must be 1, 2 or 3")
	}
	var reqs []models.ProgramRequirement
	if step >= StepDocuments {
		if strings.TrimSpace(draft.ProgramID) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "program_id is required")
		}
		var err error
		reqs, err = s.requirements.ForProgram(ctx, draft.ProgramID)
		if err != nil {
			return nil, internalError(err, "failed to load program requirements")
		}
	}
	result := checkStep(step, draft, reqs)
	return &result, nil
}

// checkStep is the pure step gate. Step 3 is valid only when 1 and 2 are.
func checkStep(step int, draft dto.ApplicationDraft, reqs []models.ProgramRequirement) dto.StepValidation {
	result := dto.StepValidation{Step: step, MissingFields: []string{}, MissingRequirements: []string{}}
	if step == StepPersonalInfo || step == StepReview {
		if missing := draft.PersonalInfo.MissingFields(); len(missing) > 0 {
			result.MissingFields = missing
		}
	}
	if step == StepDocuments || step == StepReview {
		result.MissingRequirements = missingMandatory(draft, reqs)
	}
	result.Valid = len(result.MissingFields) == 0 && len(result.MissingRequirements) == 0
	return result
}

func missingMandatory(draft dto.ApplicationDraft, reqs []models.ProgramRequirement) []string {
	missing := []string{}
	for _, r := range reqs {
		if !r.IsMandatory {
			continue
		}
		if strings.TrimSpace(draft.Uploaded[r.RequirementID]) != "" || strings.TrimSpace(draft.Reused[r.RequirementID]) != "" {
			continue
		}
		missing = append(missing, r.RequirementID)
	}
	return missing
}

// Submit validates every step and persists the application. A repeated
// reference from the same student returns the original application.
func (s *ApplicationService) Submit(ctx context.Context, studentID string, draft dto.ApplicationDraft, idempotencyKey string, meta models.RequestMeta) (*dto.SubmitApplicationResult, error) {
	if err := s.validator.Struct(draft); err != nil {
		return nil, validationError(err, "invalid application payload")
	}
	reference := strings.TrimSpace(idempotencyKey)
	if reference == "" {
		reference = strings.TrimSpace(draft.ClientReference)
	}
	if reference != "" {
		if existing, err := s.repo.FindByClientReference(ctx, studentID, reference); err == nil {
			return &dto.SubmitApplicationResult{Application: existing, Replayed: true}, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, internalError(err, "failed to check previous submission")
		}
	}

	program, err := s.programs.FindByID(ctx, draft.ProgramID)
	if err != nil {
		return nil, notFoundOr(err, "program not found", "failed to load program")
	}
	if !program.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program is not accepting applications")
	}
	reqs, err := s.requirements.ForProgram(ctx, program.ID)
	if err != nil {
		return nil, internalError(err, "failed to load program requirements")
	}
	check := checkStep(StepReview, draft, reqs)
	if !check.Valid {
		return nil, appErrors.Clone(appErrors.ErrIncompleteApplication, incompleteMessage(check))
	}

	links, err := s.documentLinks(ctx, studentID, draft, reqs)
	if err != nil {
		return nil, err
	}

	app := &models.Application{
		StudentID:       studentID,
		ProgramID:       program.ID,
		Status:          SubmissionStatus(*program),
		PersonalInfo:    draft.PersonalInfo,
		PaymentAmount:   program.TotalFee(),
		PaymentCurrency: program.Currency,
		Notes:           draft.Notes,
		Documents:       links,
	}
	if reference != "" {
		app.ClientReference = &reference
	}

	if err := s.repo.Create(ctx, app); err != nil {
		if reference != "" && database.IsUniqueViolation(err, repository.ClientReferenceConstraint) {
			existing, findErr := s.repo.FindByClientReference(ctx, studentID, reference)
			if findErr == nil {
				return &dto.SubmitApplicationResult{Application: existing, Replayed: true}, nil
			}
			return nil, internalError(findErr, "failed to load concurrent submission")
		}
		return nil, internalError(err, "failed to submit application")
	}

	s.metrics.RecordSubmission(app.Status)
	s.record(ctx, models.AuditActionApplicationSubmit, app.ID, studentID, meta, nil, map[string]interface{}{
		"program_id": app.ProgramID,
		"status":     app.Status,
		"amount":     app.PaymentAmount,
	})
	s.logger.Info("application submitted", zap.String("application_id", app.ID), zap.String("program_id", app.ProgramID), zap.String("status", string(app.Status)), zap.String("request_id", requestid.FromContext(ctx)))
	return &dto.SubmitApplicationResult{Application: app}, nil
}

// SubmissionStatus is pending_payment when the program forces payment of a non-zero fee.
func SubmissionStatus(program models.Program) models.ApplicationStatus {
	if program.ForcePayment && program.TotalFee() > 0 {
		return models.ApplicationPendingPayment
	}
	return models.ApplicationSubmitted
}

func (s *ApplicationService) documentLinks(ctx context.Context, studentID string, draft dto.ApplicationDraft, reqs []models.ProgramRequirement) ([]models.ApplicationDocument, error) {
	known := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		known[r.RequirementID] = true
	}

	links := make([]models.ApplicationDocument, 0, len(draft.Uploaded)+len(draft.Reused))
	add := func(source map[string]string, reused bool) error {
		for requirementID, documentID := range source {
			documentID = strings.TrimSpace(documentID)
			if documentID == "" {
				continue
			}
			if reused && strings.TrimSpace(draft.Uploaded[requirementID]) != "" {
				continue
			}
			if !known[requirementID] {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("requirement %s does not belong to the program", requirementID))
			}
			links = append(links, models.ApplicationDocument{RequirementID: requirementID, DocumentID: documentID, Reused: reused})
		}
		return nil
	}
	if err := add(draft.Uploaded, false); err != nil {
		return nil, err
	}
	if err := add(draft.Reused, true); err != nil {
		return nil, err
	}
	sort.Slice(links, func(i, j int) bool { return links[i].RequirementID < links[j].RequirementID })

	if len(links) == 0 {
		return links, nil
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.DocumentID)
	}
	owned, err := s.documents.OwnedIDs(ctx, studentID, ids)
	if err != nil {
		return nil, internalError(err, "failed to verify documents")
	}
	for _, id := range ids {
		if !owned[id] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document %s not found", id))
		}
	}
	return links, nil
}

func incompleteMessage(check dto.StepValidation) string {
	parts := make([]string, 0, 2)
	if len(check.MissingFields) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(check.MissingFields, ", "))
	}
	if len(check.MissingRequirements) > 0 {
		parts = append(parts, "missing requirements: "+strings.Join(check.MissingRequirements, ", "))
	}
	return strings.Join(parts, "; ")
}

// Get returns an application. Students only see their own.
func (s *ApplicationService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Application, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "application not found", "failed to load application")
	}
	if app.StudentID == actor.UserID {
		return app, nil
	}
	allowed, err := s.canReview(ctx, actor.Role)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	return app, nil
}

// canReview reports whether role holds applications:view. Without a resolver
// only super admins read other students' applications.
func (s *ApplicationService) canReview(ctx context.Context, role models.UserRole) (bool, error) {
	if role == models.RoleStudent {
		return false, nil
	}
	if s.permissions == nil {
		return role == models.RoleSuperAdmin, nil
	}
	set, err := s.permissions.PermissionsFor(ctx, role)
	if err != nil {
		return false, err
	}
	return set.Has(models.ModuleApplications, models.ActionView), nil
}

// ListOwn returns the student's applications.
func (s *ApplicationService) ListOwn(ctx context.Context, studentID string, filter models.ApplicationFilter) ([]models.ApplicationSummary, *models.Pagination, error) {
	filter.StudentID = studentID
	return s.list(ctx, filter)
}

// ListAll returns applications across students for review.
func (s *ApplicationService) ListAll(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationSummary, *models.Pagination, error) {
	return s.list(ctx, filter)
}

func (s *ApplicationService) list(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationSummary, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list applications")
	}
	if items == nil {
		items = []models.ApplicationSummary{}
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// UpdateStatus moves an application along the review lifecycle.
func (s *ApplicationService) UpdateStatus(ctx context.Context, id string, req dto.UpdateApplicationStatusRequest, actorID string, meta models.RequestMeta) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status")
	}
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "application not found", "failed to load application")
	}
	from := app.Status
	if !from.CanTransitionTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move application from %s to %s", from, req.Status))
	}
	if err := s.repo.UpdateStatus(ctx, id, from, req.Status, req.Notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "application status changed concurrently")
		}
		return nil, internalError(err, "failed to update application status")
	}
	app.Status = req.Status
	if req.Notes != nil {
		app.Notes = req.Notes
	}
	app.UpdatedAt = time.Now().UTC()

	s.record(ctx, models.AuditActionApplicationStatus, id, actorID, meta,
		map[string]interface{}{"status": from},
		map[string]interface{}{"status": req.Status})
	return app, nil
}

// Export renders the filtered applications as CSV or PDF.
func (s *ApplicationService) Export(ctx context.Context, filter models.ApplicationFilter, format export.Format) ([]byte, error) {
	items, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to load applications")
	}
	data := export.Dataset{
		Title:   "Applications",
		Headers: []string{"id", "student_email", "university", "program", "status", "amount", "currency", "submitted_at"},
		Rows:    make([]map[string]string, 0, len(items)),
	}
	for _, item := range items {
		submitted := ""
		if item.SubmittedAt != nil {
			submitted = item.SubmittedAt.UTC().Format(time.RFC3339)
		}
		data.Rows = append(data.Rows, map[string]string{
			"id":            item.ID,
			"student_email": item.StudentEmail,
			"university":    item.UniversityName,
			"program":       item.ProgramName,
			"status":        string(item.Status),
			"amount":        fmt.Sprintf("%.2f", item.PaymentAmount),
			"currency":      item.PaymentCurrency,
			"submitted_at":  submitted,
		})
	}
	out, err := export.Render(format, data)
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}
	return out, nil
}

func (s *ApplicationService) record(ctx context.Context, action, applicationID, actorID string, meta models.RequestMeta, oldValues, newValues map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "applications",
		ResourceID: &applicationID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}
