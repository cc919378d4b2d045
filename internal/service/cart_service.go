package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

// CartService логика корзины пациента: добавление и удаление позиций
// до оформления заказа. Цена фиксируется в позиции при добавлении.
type CartService struct {
	medicines repository.MedicineRepository
	carts     repository.CartRepository
	tx        repository.TxManager
	saver     StateSaver
	log       *logrus.Logger
}

func NewCartService(medicines repository.MedicineRepository, carts repository.CartRepository, tx repository.TxManager, saver StateSaver, log *logrus.Logger) *CartService {
	return &CartService{medicines: medicines, carts: carts, tx: tx, saver: saver, log: log}
}

// Get возвращает корзину пациента; отсутствующая читается как пустая
func (s *CartService) Get(ctx context.Context, patientID string) (*domain.Cart, error) {
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.carts.GetByPatient(ctx, patientID)
}

// AddItem добавляет препарат в корзину, фиксируя текущую цену.
// Повторное добавление того же препарата увеличивает количество.
func (s *CartService) AddItem(ctx context.Context, patientID string, medicineID int64, qty int64) (*domain.Cart, error) {
	if patientID == "" || medicineID <= 0 || qty <= 0 {
		return nil, ErrInvalidInput
	}
	var updated *domain.Cart
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		med, err := s.medicines.GetByID(ctx, medicineID)
		if err != nil {
			return err
		}
		cart, err := s.carts.GetByPatient(ctx, patientID)
		if err != nil {
			return err
		}
		merged := false
		for i := range cart.Items {
			if cart.Items[i].MedicineID == medicineID {
				cart.Items[i].Quantity += qty
				merged = true
				break
			}
		}
		if !merged {
			cart.Items = append(cart.Items, domain.OrderItem{
				MedicineID: med.ID,
				Name:       med.Name,
				Quantity:   qty,
				UnitPrice:  med.Price,
			})
		}
		if err := s.carts.Save(ctx, cart); err != nil {
			return err
		}
		updated = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "cart.add")
	return updated, nil
}

// RemoveItem убирает позицию целиком
func (s *CartService) RemoveItem(ctx context.Context, patientID string, medicineID int64) (*domain.Cart, error) {
	if patientID == "" || medicineID <= 0 {
		return nil, ErrInvalidInput
	}
	var updated *domain.Cart
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.carts.GetByPatient(ctx, patientID)
		if err != nil {
			return err
		}
		items := make([]domain.OrderItem, 0, len(cart.Items))
		found := false
		for _, it := range cart.Items {
			if it.MedicineID == medicineID {
				found = true
				continue
			}
			items = append(items, it)
		}
		if !found {
			return repository.ErrNotFound
		}
		cart.Items = items
		if err := s.carts.Save(ctx, cart); err != nil {
			return err
		}
		updated = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "cart.remove")
	return updated, nil
}

// Clear опустошает корзину
func (s *CartService) Clear(ctx context.Context, patientID string) error {
	if patientID == "" {
		return ErrInvalidInput
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.carts.GetByPatient(ctx, patientID)
		if err != nil {
			return err
		}
		cart.Items = nil
		return s.carts.Save(ctx, cart)
	})
	if err != nil {
		return err
	}
	persist(ctx, s.saver, s.log, "cart.clear")
	return nil
}
