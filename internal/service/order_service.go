package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

// OrderService жизненный цикл заказа: оформление корзины с оплатой,
// обработка со списанием запасов, завершение и отмена
type OrderService struct {
	medicines     repository.MedicineRepository
	orders        repository.OrderRepository
	carts         repository.CartRepository
	wallets       repository.WalletRepository
	prescriptions repository.PrescriptionRepository
	tx            repository.TxManager
	saver         StateSaver
	log           *logrus.Logger
}

func NewOrderService(
	medicines repository.MedicineRepository,
	orders repository.OrderRepository,
	carts repository.CartRepository,
	wallets repository.WalletRepository,
	prescriptions repository.PrescriptionRepository,
	tx repository.TxManager,
	saver StateSaver,
	log *logrus.Logger,
) *OrderService {
	return &OrderService{
		medicines:     medicines,
		orders:        orders,
		carts:         carts,
		wallets:       wallets,
		prescriptions: prescriptions,
		tx:            tx,
		saver:         saver,
		log:           log,
	}
}

var (
	ErrNotEnoughStock       = errors.New("not enough stock")
	ErrInvalidState         = errors.New("invalid state")
	ErrEmptyCart            = errors.New("empty cart")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrPrescriptionRequired = errors.New("prescription required")
)

// Checkout атомарно превращает непустую корзину в заказ со статусом Pending:
// проверяет рецепты на rx-препараты, списывает сумму с кошелька и опустошает
// корзину. При любой ошибке ни кошелёк, ни корзина не меняются.
func (s *OrderService) Checkout(ctx context.Context, patientID string) (*domain.Order, error) {
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	var created *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.carts.GetByPatient(ctx, patientID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		// rx-позиции должны быть покрыты одобренными рецептами
		consumed := make([]*domain.Prescription, 0)
		for _, it := range cart.Items {
			med, err := s.medicines.GetByID(ctx, it.MedicineID)
			if err != nil {
				return err
			}
			if !med.RxOnly {
				continue
			}
			p, err := s.findCoveringPrescription(ctx, patientID, it.MedicineID, it.Quantity)
			if err != nil {
				return err
			}
			consumed = append(consumed, p)
		}

		total := cart.Total()
		wallet, err := s.wallets.GetByPatient(ctx, patientID)
		if err != nil {
			return err
		}
		if wallet.Balance.LessThan(total) {
			return ErrInsufficientFunds
		}
		wallet.Balance = wallet.Balance.Sub(total)
		if err := s.wallets.Save(ctx, wallet); err != nil {
			return err
		}

		o := domain.Order{
			PatientID: patientID,
			Items:     cart.Items,
			Status:    domain.OrderStatusPending,
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}

		for _, p := range consumed {
			p.Status = domain.PrescriptionStatusUsed
			if err := s.prescriptions.Update(ctx, p); err != nil {
				return err
			}
		}

		// пациент получает свежую пустую корзину
		cart.Items = nil
		if err := s.carts.Save(ctx, cart); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "order.checkout")
	return created, nil
}

func (s *OrderService) findCoveringPrescription(ctx context.Context, patientID string, medicineID, qty int64) (*domain.Prescription, error) {
	list, err := s.prescriptions.List(ctx, repository.PrescriptionFilter{
		PatientID:  patientID,
		MedicineID: medicineID,
		Status:     domain.PrescriptionStatusApproved,
	})
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Quantity >= qty {
			return &list[i], nil
		}
	}
	return nil, ErrPrescriptionRequired
}

// Process переводит Pending-заказ в Processing, атомарно списывая запасы.
// Нехватка хотя бы по одной позиции отклоняет вызов без каких-либо изменений.
func (s *OrderService) Process(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderStatusPending {
			return ErrInvalidState
		}
		// сначала проверяем всё, потом применяем — никаких частичных списаний
		medCopies := make(map[int64]*domain.Medicine)
		for _, it := range o.Items {
			med, ok := medCopies[it.MedicineID]
			if !ok {
				med, err = s.medicines.GetByID(ctx, it.MedicineID)
				if err != nil {
					return err
				}
				medCopies[it.MedicineID] = med
			}
			if med.Stock < it.Quantity {
				return ErrNotEnoughStock
			}
			med.Stock -= it.Quantity
		}
		for _, med := range medCopies {
			if err := s.medicines.Update(ctx, med); err != nil {
				return err
			}
		}
		o.Status = domain.OrderStatusProcessing
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "order.process")
	return updated, nil
}

// Complete завершает Processing-заказ; Completed — конечный статус
func (s *OrderService) Complete(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderStatusProcessing {
			return ErrInvalidState
		}
		o.Status = domain.OrderStatusCompleted
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "order.complete")
	return updated, nil
}

// Cancel отменяет Pending- или Processing-заказ. Для Processing запасы,
// списанные при обработке, возвращаются на склад. Completed не отменяется.
func (s *OrderService) Cancel(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderStatusPending && o.Status != domain.OrderStatusProcessing {
			return ErrInvalidState
		}
		if o.Status == domain.OrderStatusProcessing {
			// возврат зеркален списанию: сначала полный проход по локальным
			// копиям, затем применение. Позиции с удалёнными с тех пор
			// препаратами пропускаются.
			medCopies := make(map[int64]*domain.Medicine)
			for _, it := range o.Items {
				med, ok := medCopies[it.MedicineID]
				if !ok {
					med, err = s.medicines.GetByID(ctx, it.MedicineID)
					if errors.Is(err, repository.ErrNotFound) {
						continue
					}
					if err != nil {
						return err
					}
					medCopies[it.MedicineID] = med
				}
				med.Stock += it.Quantity
			}
			for _, med := range medCopies {
				if err := s.medicines.Update(ctx, med); err != nil {
					return err
				}
			}
		}
		o.Status = domain.OrderStatusCancelled
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "order.cancel")
	return updated, nil
}

// Get возвращает заказ по id
func (s *OrderService) Get(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.orders.GetByID(ctx, id)
}

// ListByPatient заказы одного пациента
func (s *OrderService) ListByPatient(ctx context.Context, patientID string) ([]domain.Order, error) {
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.orders.ListByPatient(ctx, patientID)
}

// List все заказы (для персонала)
func (s *OrderService) List(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx)
}
