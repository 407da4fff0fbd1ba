package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// requirementTransitions: OPEN -> ORDERED -> RECEIVED, with CANCELLED
// reachable from the two non-final states.
var requirementTransitions = map[string][]string{
	model.RequirementOpen:    {model.RequirementOrdered, model.RequirementCancelled},
	model.RequirementOrdered: {model.RequirementReceived, model.RequirementCancelled},
}

type UpdateRequirementRequest struct {
	Status   string `json:"status" binding:"required,oneof=ORDERED RECEIVED CANCELLED"`
	Priority string `json:"priority" binding:"omitempty,oneof=NORMAL HIGH"`
}

type RequirementService interface {
	UpdateRequirement(ctx context.Context, userID string, id string, req UpdateRequirementRequest) (*model.ImportRequirement, error)
	GetRequirement(ctx context.Context, id string) (*model.ImportRequirement, error)
	ListRequirements(ctx context.Context, page, limit int, status, productID string) ([]model.ImportRequirement, int64, error)
}

type requirementService struct {
	requirementRepo repository.RequirementRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
}

func NewRequirementService(
	requirementRepo repository.RequirementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) RequirementService {
	return &requirementService{
		requirementRepo: requirementRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
	}
}

func (s *requirementService) UpdateRequirement(ctx context.Context, userID string, id string, req UpdateRequirementRequest) (*model.ImportRequirement, error) {
	requirementID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requirement id: %w", err)
	}

	var result *model.ImportRequirement
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		requirement, err := s.requirementRepo.FindByID(txCtx, requirementID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("requirement not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		allowed := false
		for _, to := range requirementTransitions[requirement.Status] {
			if to == req.Status {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("requirement cannot move from %s to %s", requirement.Status, req.Status)
		}

		requirement.Status = req.Status
		if req.Priority != "" {
			requirement.Priority = req.Priority
		}
		if err := s.requirementRepo.Save(txCtx, requirement); err != nil {
			return fmt.Errorf("failed to update requirement: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:   parseActorID(userID),
			Action:   "UPDATE_IMPORT_REQUIREMENT",
			EntityID: requirement.ID.String(),
			Details:  string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		result = requirement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *requirementService) GetRequirement(ctx context.Context, id string) (*model.ImportRequirement, error) {
	requirementID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requirement id: %w", err)
	}
	requirement, err := s.requirementRepo.FindByID(ctx, requirementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("requirement not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return requirement, nil
}

func (s *requirementService) ListRequirements(ctx context.Context, page, limit int, status, productID string) ([]model.ImportRequirement, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	var pid *uuid.UUID
	if productID != "" {
		parsed, err := uuid.Parse(productID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid product id: %w", err)
		}
		pid = &parsed
	}
	return s.requirementRepo.List(ctx, page, limit, status, pid)
}
