package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReservationRepository interface {
	Create(ctx context.Context, res *model.StockReservation) error
	Save(ctx context.Context, res *model.StockReservation) error
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]model.StockReservation, error)
	FindActiveByOrderForUpdate(ctx context.Context, orderID uuid.UUID) ([]model.StockReservation, error)
	ListActiveByOrderAndBatchForUpdate(ctx context.Context, orderID, batchID uuid.UUID) ([]model.StockReservation, error)
	ListActiveByBatchForUpdate(ctx context.Context, batchID uuid.UUID) ([]model.StockReservation, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.StockReservation, error)
}

type reservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, res *model.StockReservation) error {
	return GetDB(ctx, r.db).Create(res).Error
}

func (r *reservationRepository) Save(ctx context.Context, res *model.StockReservation) error {
	return GetDB(ctx, r.db).Save(res).Error
}

func (r *reservationRepository) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]model.StockReservation, error) {
	var reservations []model.StockReservation
	err := GetDB(ctx, r.db).
		Where("sales_order_id = ? AND status = ?", orderID, model.ReservationActive).
		Order("created_at asc").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *reservationRepository) FindActiveByOrderForUpdate(ctx context.Context, orderID uuid.UUID) ([]model.StockReservation, error) {
	var reservations []model.StockReservation
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sales_order_id = ? AND status = ?", orderID, model.ReservationActive).
		Order("created_at asc").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// ListActiveByOrderAndBatchForUpdate returns every active hold the order has
// on the batch. An order can hold one batch through several rows (one per
// order line per allocation), so consumption must see all of them.
func (r *reservationRepository) ListActiveByOrderAndBatchForUpdate(ctx context.Context, orderID, batchID uuid.UUID) ([]model.StockReservation, error) {
	var reservations []model.StockReservation
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sales_order_id = ? AND batch_id = ? AND status = ?", orderID, batchID, model.ReservationActive).
		Order("created_at asc, id asc").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// ListActiveByBatchForUpdate returns active holds on a batch, newest hold
// first, which is the forced-release order used when stock is rejected.
func (r *reservationRepository) ListActiveByBatchForUpdate(ctx context.Context, batchID uuid.UUID) ([]model.StockReservation, error) {
	var reservations []model.StockReservation
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("batch_id = ? AND status = ?", batchID, model.ReservationActive).
		Order("created_at desc").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *reservationRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.StockReservation, error) {
	var reservations []model.StockReservation
	err := GetDB(ctx, r.db).Preload("Batch").
		Where("sales_order_id = ?", orderID).
		Order("created_at asc").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}
