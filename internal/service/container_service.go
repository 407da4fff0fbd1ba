package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateContainerRequest struct {
	ContainerNo   string  `json:"container_no" binding:"required"`
	ArrivalDate   string  `json:"arrival_date"` // optional, YYYY-MM-DD
	AllocatedCost float64 `json:"allocated_cost" binding:"gte=0"`
	Note          string  `json:"note"`
}

type ContainerResponse struct {
	Container model.ImportContainer `json:"container"`
	Batches   []model.Batch         `json:"batches,omitempty"`
}

type ContainerService interface {
	CreateContainer(ctx context.Context, userID string, req CreateContainerRequest) (*model.ImportContainer, error)
	GetContainer(ctx context.Context, id string) (*ContainerResponse, error)
	ListContainers(ctx context.Context, page, limit int) ([]model.ImportContainer, int64, error)
}

type containerService struct {
	containerRepo repository.ContainerRepository
	txManager     repository.TransactionManager
}

func NewContainerService(
	containerRepo repository.ContainerRepository,
	txManager repository.TransactionManager,
) ContainerService {
	return &containerService{containerRepo: containerRepo, txManager: txManager}
}

func (s *containerService) CreateContainer(ctx context.Context, userID string, req CreateContainerRequest) (*model.ImportContainer, error) {
	var arrival *time.Time
	if req.ArrivalDate != "" {
		parsed, err := time.Parse(dateLayout, req.ArrivalDate)
		if err != nil {
			return nil, fmt.Errorf("invalid arrival date: %w", err)
		}
		arrival = &parsed
	}

	container := model.ImportContainer{
		ContainerNo:   req.ContainerNo,
		ArrivalDate:   arrival,
		AllocatedCost: decimal.NewFromFloat(req.AllocatedCost),
		Note:          req.Note,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.containerRepo.FindByNumber(txCtx, req.ContainerNo); err == nil {
			return fmt.Errorf("container number %q already exists", req.ContainerNo)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("database error: %w", err)
		}
		return s.containerRepo.Create(txCtx, &container)
	})
	if err != nil {
		return nil, err
	}
	return &container, nil
}

func (s *containerService) GetContainer(ctx context.Context, id string) (*ContainerResponse, error) {
	containerID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid container id: %w", err)
	}
	container, err := s.containerRepo.FindByID(ctx, containerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("container not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	batches, err := s.containerRepo.ListBatches(ctx, containerID)
	if err != nil {
		return nil, err
	}
	return &ContainerResponse{Container: *container, Batches: batches}, nil
}

func (s *containerService) ListContainers(ctx context.Context, page, limit int) ([]model.ImportContainer, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.containerRepo.List(ctx, page, limit)
}
