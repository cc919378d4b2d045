package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role роль пользователя в системе
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDoctor     Role = "doctor"
	RolePharmacist Role = "pharmacist"
	RolePatient    Role = "patient"
)

// Valid проверяет, что роль известна системе
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePharmacist, RolePatient:
		return true
	}
	return false
}

// Staff true для ролей с доступом к управлению аптекой
func (r Role) Staff() bool {
	return r == RoleAdmin || r == RolePharmacist
}

// User учётная запись пользователя
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Medicine представляет препарат в аптеке
type Medicine struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	// RxOnly — отпуск только по одобренному рецепту
	RxOnly bool `json:"rx_only"`
}

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// Terminal true для конечных статусов, из которых переходов нет
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// OrderItem позиция в заказе. UnitPrice фиксируется в момент добавления
// в корзину — последующие изменения цены препарата заказ не меняют.
type OrderItem struct {
	MedicineID int64           `json:"medicine_id"`
	Name       string          `json:"name"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// Subtotal стоимость позиции
func (it OrderItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
}

// Order сущность заказа
type Order struct {
	ID        int64       `json:"id"`
	PatientID string      `json:"patient_id"`
	Items     []OrderItem `json:"items"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Total сумма заказа по зафиксированным ценам позиций
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Cart корзина пациента — ещё не оформленный набор позиций.
// Принадлежит ровно одному пациенту и превращается в Order при оформлении.
type Cart struct {
	PatientID string      `json:"patient_id"`
	Items     []OrderItem `json:"items"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Total сумма корзины
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Wallet баланс пациента для оплаты заказов
type Wallet struct {
	PatientID string          `json:"patient_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// PrescriptionStatus статус рецепта
type PrescriptionStatus string

const (
	PrescriptionStatusIssued   PrescriptionStatus = "Issued"
	PrescriptionStatusApproved PrescriptionStatus = "Approved"
	PrescriptionStatusRejected PrescriptionStatus = "Rejected"
	PrescriptionStatusUsed     PrescriptionStatus = "Used"
)

// Prescription рецепт: выписывается врачом, проверяется фармацевтом,
// расходуется при оформлении заказа на rx-препарат
type Prescription struct {
	ID         string             `json:"id"`
	PatientID  string             `json:"patient_id"`
	DoctorID   string             `json:"doctor_id"`
	MedicineID int64              `json:"medicine_id"`
	Quantity   int64              `json:"quantity"`
	Status     PrescriptionStatus `json:"status"`
	Note       string             `json:"note,omitempty"`
	IssuedAt   time.Time          `json:"issued_at"`
	ReviewedAt *time.Time         `json:"reviewed_at,omitempty"`
	ReviewedBy string             `json:"reviewed_by,omitempty"`
}
