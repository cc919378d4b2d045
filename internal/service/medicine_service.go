package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

// MedicineService инкапсулирует бизнес-логику вокруг препаратов и их запасов
type MedicineService struct {
	repo  repository.MedicineRepository
	tx    repository.TxManager
	saver StateSaver
	log   *logrus.Logger
}

func NewMedicineService(repo repository.MedicineRepository, tx repository.TxManager, saver StateSaver, log *logrus.Logger) *MedicineService {
	return &MedicineService{repo: repo, tx: tx, saver: saver, log: log}
}

var ErrInvalidInput = errors.New("invalid input")

func (s *MedicineService) Create(ctx context.Context, m domain.Medicine) (*domain.Medicine, error) {
	if m.Name == "" || m.Price.IsNegative() || m.Stock < 0 {
		return nil, ErrInvalidInput
	}
	cp := m
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "medicine.create")
	return &cp, nil
}

func (s *MedicineService) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *MedicineService) Update(ctx context.Context, m domain.Medicine) (*domain.Medicine, error) {
	if m.ID <= 0 || m.Name == "" || m.Price.IsNegative() || m.Stock < 0 {
		return nil, ErrInvalidInput
	}
	cp := m
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "medicine.update")
	return &cp, nil
}

func (s *MedicineService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	persist(ctx, s.saver, s.log, "medicine.delete")
	return nil
}

func (s *MedicineService) List(ctx context.Context, f repository.MedicineFilter) ([]domain.Medicine, error) {
	return s.repo.List(ctx, f)
}

// IncrementStock приход на склад: qty > 0, всегда успешен
func (s *MedicineService) IncrementStock(ctx context.Context, id int64, qty int64) (*domain.Medicine, error) {
	if qty <= 0 {
		return nil, ErrInvalidInput
	}
	return s.adjustStock(ctx, id, qty)
}

// DecrementStock списание со склада: отклоняется без изменений,
// если qty превышает текущий запас
func (s *MedicineService) DecrementStock(ctx context.Context, id int64, qty int64) (*domain.Medicine, error) {
	if qty <= 0 {
		return nil, ErrInvalidInput
	}
	return s.adjustStock(ctx, id, -qty)
}

func (s *MedicineService) adjustStock(ctx context.Context, id int64, delta int64) (*domain.Medicine, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	var updated *domain.Medicine
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if m.Stock+delta < 0 {
			return ErrNotEnoughStock
		}
		m.Stock += delta
		if err := s.repo.Update(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "medicine.stock")
	return updated, nil
}
