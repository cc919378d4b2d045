package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"apteka/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// MedicineFilter параметры фильтрации списка препаратов
type MedicineFilter struct {
	NameSubstring string
	Category      string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
}

// PrescriptionFilter параметры выборки рецептов; пустое поле — без ограничения
type PrescriptionFilter struct {
	PatientID  string
	DoctorID   string
	MedicineID int64
	Status     domain.PrescriptionStatus
}

// MedicineRepository интерфейс репозитория препаратов
type MedicineRepository interface {
	Create(ctx context.Context, m *domain.Medicine) error
	GetByID(ctx context.Context, id int64) (*domain.Medicine, error)
	Update(ctx context.Context, m *domain.Medicine) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f MedicineFilter) ([]domain.Medicine, error)
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	ListByPatient(ctx context.Context, patientID string) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
}

// UserRepository интерфейс репозитория пользователей.
// ID назначает вызывающая сторона (uuid), не хранилище.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// WalletRepository интерфейс кошельков. GetByPatient для отсутствующего
// пациента возвращает нулевой кошелёк, Save — upsert.
type WalletRepository interface {
	GetByPatient(ctx context.Context, patientID string) (*domain.Wallet, error)
	Save(ctx context.Context, w *domain.Wallet) error
}

// CartRepository интерфейс корзин: одна корзина на пациента,
// отсутствующая читается как пустая, Save — upsert.
type CartRepository interface {
	GetByPatient(ctx context.Context, patientID string) (*domain.Cart, error)
	Save(ctx context.Context, c *domain.Cart) error
}

// PrescriptionRepository интерфейс репозитория рецептов
type PrescriptionRepository interface {
	Create(ctx context.Context, p *domain.Prescription) error
	GetByID(ctx context.Context, id string) (*domain.Prescription, error)
	Update(ctx context.Context, p *domain.Prescription) error
	List(ctx context.Context, f PrescriptionFilter) ([]domain.Prescription, error)
}

// TxManager абстракция транзакции. Для in-memory — глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
