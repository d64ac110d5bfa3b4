package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultRequestName = "New Upcycle Request"

// --- DTOs ---

type CreateRequestDTO struct {
	Name         string   `json:"name"`
	RequestDate  string   `json:"request_date"` // YYYY-MM-DD, defaults to today
	ProductID    string   `json:"product_id"`
	CO2ePerUnit  *float64 `json:"co2e_per_unit"` // optional manual snapshot override
	CostPerUnit  *float64 `json:"cost_per_unit"`
	DepartmentID string   `json:"department_id"`
	Quantity     *float64 `json:"quantity"` // defaults to 1
	Notes        string   `json:"notes"`
}

type UpdateRequestDTO struct {
	Name         *string  `json:"name"`
	RequestDate  *string  `json:"request_date"`
	ProductID    *string  `json:"product_id"`
	CO2ePerUnit  *float64 `json:"co2e_per_unit"`
	CostPerUnit  *float64 `json:"cost_per_unit"`
	DepartmentID *string  `json:"department_id"`
	Quantity     *float64 `json:"quantity"`
	Notes        *string  `json:"notes"`
}

type RequestFilter struct {
	State        string
	DepartmentID string
	Page         int
	Limit        int
}

// ActionResult reports a bulk lifecycle action per record: ids that changed
// state and ids that were silently skipped as already outside the action's
// source state.
type ActionResult struct {
	Updated []string `json:"updated"`
	Skipped []string `json:"skipped"`
}

type RequestResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	RequestDate    string  `json:"request_date"`
	ProductID      *string `json:"product_id"`
	ProductName    string  `json:"product_name,omitempty"`
	CO2ePerUnit    float64 `json:"co2e_per_unit"`
	CostPerUnit    float64 `json:"cost_per_unit"`
	DepartmentID   *string `json:"department_id"`
	DepartmentName string  `json:"department_name,omitempty"`
	RequestedBy    string  `json:"requested_by"`
	RequesterName  string  `json:"requester_name,omitempty"`
	Quantity       float64 `json:"quantity"`
	Notes          string  `json:"notes"`
	CO2eAvoided    float64 `json:"co2e_avoided"`
	AEDSaved       float64 `json:"aed_saved"`
	CEITsAwarded   float64 `json:"ceits_awarded"`
	State          string  `json:"state"`
	ApprovedAt     *string `json:"approved_at"`
	CompletedAt    *string `json:"completed_at"`
	CreatedAt      string  `json:"created_at"`
}

// --- Interface ---

// UpcycleRequestService owns the request lifecycle: CRUD plus the five bulk
// actions. Each action evaluates every record independently against its own
// current state; records outside the required source state are skipped, not
// failed. The manager capability is checked once per bulk call, before any
// record is touched.
type UpcycleRequestService interface {
	Create(ctx context.Context, actorID string, req CreateRequestDTO) (RequestResponse, error)
	Get(ctx context.Context, id string) (RequestResponse, error)
	List(ctx context.Context, filter RequestFilter) ([]RequestResponse, int64, error)
	Update(ctx context.Context, actorID string, id string, req UpdateRequestDTO) (RequestResponse, error)
	Delete(ctx context.Context, actorID string, id string) error

	Submit(ctx context.Context, actorID string, ids []string) (ActionResult, error)
	Approve(ctx context.Context, actorID string, ids []string) (ActionResult, error)
	Reject(ctx context.Context, actorID string, ids []string) (ActionResult, error)
	MarkDone(ctx context.Context, actorID string, ids []string) (ActionResult, error)
	ResetToDraft(ctx context.Context, actorID string, ids []string) (ActionResult, error)
}

type upcycleRequestService struct {
	db   *gorm.DB
	auth Authorizer
}

func NewUpcycleRequestService(db *gorm.DB, auth Authorizer) UpcycleRequestService {
	return &upcycleRequestService{db: db, auth: auth}
}

// --- CRUD ---

func (s *upcycleRequestService) Create(ctx context.Context, actorID string, req CreateRequestDTO) (RequestResponse, error) {
	requesterID, err := uuid.Parse(actorID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid actor id: %w", err)
	}

	record := model.UpcycleRequest{
		Name:        req.Name,
		RequestedBy: requesterID,
		Quantity:    1,
		Notes:       req.Notes,
		State:       model.RequestStateDraft,
		RequestDate: time.Now(),
	}
	if record.Name == "" {
		record.Name = defaultRequestName
	}
	if req.RequestDate != "" {
		parsed, parseErr := time.Parse("2006-01-02", req.RequestDate)
		if parseErr != nil {
			return RequestResponse{}, fmt.Errorf("invalid request_date, expected YYYY-MM-DD: %w", parseErr)
		}
		record.RequestDate = parsed
	}
	if req.Quantity != nil {
		record.Quantity = *req.Quantity
	}
	if record.Quantity <= 0 {
		return RequestResponse{}, &ValidationError{Message: "Quantity must be greater than zero"}
	}

	if req.DepartmentID != "" {
		deptID, parseErr := uuid.Parse(req.DepartmentID)
		if parseErr != nil {
			return RequestResponse{}, fmt.Errorf("invalid department_id: %w", parseErr)
		}
		record.DepartmentID = &deptID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.ProductID != "" {
			productID, parseErr := uuid.Parse(req.ProductID)
			if parseErr != nil {
				return fmt.Errorf("invalid product_id: %w", parseErr)
			}
			var product model.Product
			if findErr := tx.First(&product, "id = ?", productID).Error; findErr != nil {
				return fmt.Errorf("product not found: %w", findErr)
			}
			record.ProductID = &productID
			applySnapshot(&record, &product, req.CO2ePerUnit, req.CostPerUnit)
		} else {
			applySnapshot(&record, nil, req.CO2ePerUnit, req.CostPerUnit)
		}
		applyImpacts(&record)

		if createErr := tx.Create(&record).Error; createErr != nil {
			return fmt.Errorf("failed to create upcycle request: %w", createErr)
		}

		return s.writeAudit(tx, &requesterID, model.ActionCreateRequest, &record, nil)
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.reload(ctx, record.ID)
}

func (s *upcycleRequestService) Get(ctx context.Context, id string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", err)
	}
	return s.reload(ctx, requestID)
}

func (s *upcycleRequestService) List(ctx context.Context, filter RequestFilter) ([]RequestResponse, int64, error) {
	var total int64
	query := s.db.WithContext(ctx).Model(&model.UpcycleRequest{})
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.DepartmentID != "" {
		query = query.Where("department_id = ?", filter.DepartmentID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count upcycle requests: %w", err)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var records []model.UpcycleRequest
	fetchQuery := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Department").
		Preload("Requester")
	if filter.State != "" {
		fetchQuery = fetchQuery.Where("state = ?", filter.State)
	}
	if filter.DepartmentID != "" {
		fetchQuery = fetchQuery.Where("department_id = ?", filter.DepartmentID)
	}
	if err := fetchQuery.
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch upcycle requests: %w", err)
	}

	result := make([]RequestResponse, 0, len(records))
	for _, r := range records {
		result = append(result, toRequestResponse(r))
	}
	return result, total, nil
}

func (s *upcycleRequestService) Update(ctx context.Context, actorID string, id string, req UpdateRequestDTO) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", err)
	}
	userID, err := uuid.Parse(actorID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid actor id: %w", err)
	}

	var record model.UpcycleRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.First(&record, "id = ?", requestID).Error; findErr != nil {
			return fmt.Errorf("upcycle request not found: %w", findErr)
		}

		if req.Name != nil {
			record.Name = *req.Name
		}
		if req.RequestDate != nil {
			parsed, parseErr := time.Parse("2006-01-02", *req.RequestDate)
			if parseErr != nil {
				return fmt.Errorf("invalid request_date, expected YYYY-MM-DD: %w", parseErr)
			}
			record.RequestDate = parsed
		}
		if req.Notes != nil {
			record.Notes = *req.Notes
		}
		if req.Quantity != nil {
			record.Quantity = *req.Quantity
		}
		if record.Quantity <= 0 {
			return &ValidationError{Message: "Quantity must be greater than zero"}
		}
		if req.DepartmentID != nil {
			if *req.DepartmentID == "" {
				record.DepartmentID = nil
			} else {
				deptID, parseErr := uuid.Parse(*req.DepartmentID)
				if parseErr != nil {
					return fmt.Errorf("invalid department_id: %w", parseErr)
				}
				record.DepartmentID = &deptID
			}
		}

		// A product change re-freezes the snapshot from the catalog;
		// explicit factor values in the same update still win.
		if req.ProductID != nil {
			if *req.ProductID == "" {
				record.ProductID = nil
				applySnapshot(&record, nil, req.CO2ePerUnit, req.CostPerUnit)
			} else {
				productID, parseErr := uuid.Parse(*req.ProductID)
				if parseErr != nil {
					return fmt.Errorf("invalid product_id: %w", parseErr)
				}
				var product model.Product
				if findErr := tx.First(&product, "id = ?", productID).Error; findErr != nil {
					return fmt.Errorf("product not found: %w", findErr)
				}
				record.ProductID = &productID
				applySnapshot(&record, &product, req.CO2ePerUnit, req.CostPerUnit)
			}
		} else {
			// No product change: only explicit overrides touch the snapshot.
			applySnapshot(&record, nil, req.CO2ePerUnit, req.CostPerUnit)
		}
		applyImpacts(&record)

		if saveErr := tx.Save(&record).Error; saveErr != nil {
			return fmt.Errorf("failed to update upcycle request: %w", saveErr)
		}

		return s.writeAudit(tx, &userID, model.ActionUpdateRequest, &record, nil)
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.reload(ctx, record.ID)
}

func (s *upcycleRequestService) Delete(ctx context.Context, actorID string, id string) error {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid request id: %w", err)
	}
	userID, err := uuid.Parse(actorID)
	if err != nil {
		return fmt.Errorf("invalid actor id: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record model.UpcycleRequest
		if findErr := tx.First(&record, "id = ?", requestID).Error; findErr != nil {
			return fmt.Errorf("upcycle request not found: %w", findErr)
		}
		if delErr := tx.Delete(&record).Error; delErr != nil {
			return fmt.Errorf("failed to delete upcycle request: %w", delErr)
		}
		return s.writeAudit(tx, &userID, model.ActionDeleteRequest, &record, nil)
	})
}

// --- Lifecycle actions ---

// Submit moves DRAFT requests to SUBMITTED. Each record must pass the
// readiness gate; a single incomplete record aborts the whole batch so no
// partial submission is left behind.
func (s *upcycleRequestService) Submit(ctx context.Context, actorID string, ids []string) (ActionResult, error) {
	userID, requestIDs, err := parseActionIDs(actorID, ids)
	if err != nil {
		return ActionResult{}, err
	}

	var result ActionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range requestIDs {
			var record model.UpcycleRequest
			if findErr := tx.First(&record, "id = ?", id).Error; findErr != nil {
				return fmt.Errorf("upcycle request %s not found: %w", id, findErr)
			}
			if record.State != model.RequestStateDraft {
				result.Skipped = append(result.Skipped, id.String())
				continue
			}
			if gateErr := ensureSubmissionReady(&record); gateErr != nil {
				return gateErr
			}
			record.State = model.RequestStateSubmitted
			if saveErr := tx.Save(&record).Error; saveErr != nil {
				return fmt.Errorf("failed to submit request %s: %w", id, saveErr)
			}
			if auditErr := s.writeAudit(tx, &userID, model.ActionSubmitRequest, &record, nil); auditErr != nil {
				return auditErr
			}
			result.Updated = append(result.Updated, id.String())
		}
		return nil
	})
	if err != nil {
		return ActionResult{}, err
	}
	return result, nil
}

// Approve moves SUBMITTED requests to APPROVED and stamps the approval time.
func (s *upcycleRequestService) Approve(ctx context.Context, actorID string, ids []string) (ActionResult, error) {
	userID, requestIDs, err := parseActionIDs(actorID, ids)
	if err != nil {
		return ActionResult{}, err
	}
	if err := s.requireManager(ctx, actorID); err != nil {
		return ActionResult{}, err
	}

	var result ActionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, id := range requestIDs {
			var record model.UpcycleRequest
			if findErr := tx.First(&record, "id = ?", id).Error; findErr != nil {
				return fmt.Errorf("upcycle request %s not found: %w", id, findErr)
			}
			if record.State != model.RequestStateSubmitted {
				result.Skipped = append(result.Skipped, id.String())
				continue
			}
			record.State = model.RequestStateApproved
			record.ApprovedAt = &now
			if saveErr := tx.Save(&record).Error; saveErr != nil {
				return fmt.Errorf("failed to approve request %s: %w", id, saveErr)
			}
			if auditErr := s.writeAudit(tx, &userID, model.ActionApproveRequest, &record, nil); auditErr != nil {
				return auditErr
			}
			result.Updated = append(result.Updated, id.String())
		}
		return nil
	})
	if err != nil {
		return ActionResult{}, err
	}
	return result, nil
}

// Reject moves any SUBMITTED or APPROVED request to REJECTED. DRAFT and
// DONE records are skipped.
func (s *upcycleRequestService) Reject(ctx context.Context, actorID string, ids []string) (ActionResult, error) {
	userID, requestIDs, err := parseActionIDs(actorID, ids)
	if err != nil {
		return ActionResult{}, err
	}
	if err := s.requireManager(ctx, actorID); err != nil {
		return ActionResult{}, err
	}

	var result ActionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range requestIDs {
			var record model.UpcycleRequest
			if findErr := tx.First(&record, "id = ?", id).Error; findErr != nil {
				return fmt.Errorf("upcycle request %s not found: %w", id, findErr)
			}
			if record.State == model.RequestStateDraft || record.State == model.RequestStateDone {
				result.Skipped = append(result.Skipped, id.String())
				continue
			}
			record.State = model.RequestStateRejected
			if saveErr := tx.Save(&record).Error; saveErr != nil {
				return fmt.Errorf("failed to reject request %s: %w", id, saveErr)
			}
			if auditErr := s.writeAudit(tx, &userID, model.ActionRejectRequest, &record, nil); auditErr != nil {
				return auditErr
			}
			result.Updated = append(result.Updated, id.String())
		}
		return nil
	})
	if err != nil {
		return ActionResult{}, err
	}
	return result, nil
}

// MarkDone completes APPROVED requests: stamps the completion time and
// grants the requester's reward in the same transaction, so a concurrent
// duplicate completion can never double-grant.
func (s *upcycleRequestService) MarkDone(ctx context.Context, actorID string, ids []string) (ActionResult, error) {
	userID, requestIDs, err := parseActionIDs(actorID, ids)
	if err != nil {
		return ActionResult{}, err
	}
	if err := s.requireManager(ctx, actorID); err != nil {
		return ActionResult{}, err
	}

	var result ActionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, id := range requestIDs {
			var record model.UpcycleRequest
			if findErr := tx.First(&record, "id = ?", id).Error; findErr != nil {
				return fmt.Errorf("upcycle request %s not found: %w", id, findErr)
			}
			if record.State != model.RequestStateApproved {
				result.Skipped = append(result.Skipped, id.String())
				continue
			}
			record.State = model.RequestStateDone
			record.CompletedAt = &now
			if saveErr := tx.Save(&record).Error; saveErr != nil {
				return fmt.Errorf("failed to complete request %s: %w", id, saveErr)
			}
			granted, grantErr := grantReward(tx, &record)
			if grantErr != nil {
				return fmt.Errorf("failed to grant reward for request %s: %w", id, grantErr)
			}
			if auditErr := s.writeAudit(tx, &userID, model.ActionCompleteRequest, &record, nil); auditErr != nil {
				return auditErr
			}
			if granted {
				details := map[string]interface{}{"points": record.CEITsAwarded, "user_id": record.RequestedBy.String()}
				if auditErr := s.writeAudit(tx, &userID, model.ActionGrantReward, &record, details); auditErr != nil {
					return auditErr
				}
			}
			result.Updated = append(result.Updated, id.String())
		}
		return nil
	})
	if err != nil {
		return ActionResult{}, err
	}
	return result, nil
}

// ResetToDraft returns requests to DRAFT from any state and clears both the
// approval and completion timestamps together.
func (s *upcycleRequestService) ResetToDraft(ctx context.Context, actorID string, ids []string) (ActionResult, error) {
	userID, requestIDs, err := parseActionIDs(actorID, ids)
	if err != nil {
		return ActionResult{}, err
	}

	var result ActionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range requestIDs {
			var record model.UpcycleRequest
			if findErr := tx.First(&record, "id = ?", id).Error; findErr != nil {
				return fmt.Errorf("upcycle request %s not found: %w", id, findErr)
			}
			record.State = model.RequestStateDraft
			record.ApprovedAt = nil
			record.CompletedAt = nil
			if saveErr := tx.Save(&record).Error; saveErr != nil {
				return fmt.Errorf("failed to reset request %s: %w", id, saveErr)
			}
			if auditErr := s.writeAudit(tx, &userID, model.ActionResetRequest, &record, nil); auditErr != nil {
				return auditErr
			}
			result.Updated = append(result.Updated, id.String())
		}
		return nil
	})
	if err != nil {
		return ActionResult{}, err
	}
	return result, nil
}

// --- Helpers ---

// ensureSubmissionReady is the submit validation gate. Every missing
// required field is reported by name, not just the first one found.
func ensureSubmissionReady(record *model.UpcycleRequest) error {
	var missing []string
	if record.ProductID == nil {
		missing = append(missing, "Product")
	}
	if record.DepartmentID == nil {
		missing = append(missing, "Department")
	}
	if record.Quantity <= 0 {
		missing = append(missing, "Quantity")
	}
	if len(missing) > 0 {
		return &ValidationError{
			Message: fmt.Sprintf("Cannot submit %q because the following fields are missing or invalid", record.Name),
			Fields:  missing,
		}
	}
	return nil
}

// requireManager runs the capability check once per bulk call, before any
// record is evaluated.
func (s *upcycleRequestService) requireManager(ctx context.Context, actorID string) error {
	ok, err := s.auth.HasCapability(ctx, actorID, CapabilityManageUpcycle)
	if err != nil {
		return fmt.Errorf("failed to check manager capability: %w", err)
	}
	if !ok {
		return &ValidationError{Message: "Only CSR managers can perform this action"}
	}
	return nil
}

func parseActionIDs(actorID string, ids []string) (uuid.UUID, []uuid.UUID, error) {
	userID, err := uuid.Parse(actorID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("invalid actor id: %w", err)
	}
	requestIDs := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		parsed, parseErr := uuid.Parse(id)
		if parseErr != nil {
			return uuid.Nil, nil, fmt.Errorf("invalid request id '%s': %w", id, parseErr)
		}
		requestIDs = append(requestIDs, parsed)
	}
	return userID, requestIDs, nil
}

func (s *upcycleRequestService) writeAudit(tx *gorm.DB, userID *uuid.UUID, action string, record *model.UpcycleRequest, extra map[string]interface{}) error {
	payload := map[string]interface{}{"state": record.State}
	for k, v := range extra {
		payload[k] = v
	}
	details, _ := json.Marshal(payload)
	audit := model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   record.ID.String(),
		EntityName: record.Name,
		Details:    string(details),
	}
	if err := tx.Create(&audit).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *upcycleRequestService) reload(ctx context.Context, id uuid.UUID) (RequestResponse, error) {
	var record model.UpcycleRequest
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Department").
		Preload("Requester").
		First(&record, "id = ?", id).Error; err != nil {
		return RequestResponse{}, fmt.Errorf("failed to load upcycle request: %w", err)
	}
	return toRequestResponse(record), nil
}

func toRequestResponse(r model.UpcycleRequest) RequestResponse {
	resp := RequestResponse{
		ID:           r.ID.String(),
		Name:         r.Name,
		RequestDate:  r.RequestDate.Format("2006-01-02"),
		CO2ePerUnit:  r.CO2ePerUnit,
		CostPerUnit:  r.CostPerUnit,
		RequestedBy:  r.RequestedBy.String(),
		Quantity:     r.Quantity,
		Notes:        r.Notes,
		CO2eAvoided:  r.CO2eAvoided,
		AEDSaved:     r.AEDSaved,
		CEITsAwarded: r.CEITsAwarded,
		State:        r.State,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	if r.ProductID != nil {
		s := r.ProductID.String()
		resp.ProductID = &s
	}
	if r.Product != nil {
		resp.ProductName = r.Product.Name
	}
	if r.DepartmentID != nil {
		s := r.DepartmentID.String()
		resp.DepartmentID = &s
	}
	if r.Department != nil {
		resp.DepartmentName = r.Department.Name
	}
	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}
	if r.ApprovedAt != nil {
		s := r.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
	}
	if r.CompletedAt != nil {
		s := r.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}
