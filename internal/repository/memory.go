package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"apteka/internal/domain"
)

// MemoryStore объединённое in-memory хранилище и простой генератор ID
type MemoryStore struct {
	mu                sync.RWMutex
	nextMedicineID    int64
	nextOrderID       int64
	medicinesByID     map[int64]domain.Medicine
	ordersByID        map[int64]domain.Order
	usersByID         map[string]domain.User
	userIDByName      map[string]string
	walletsByPatient  map[string]domain.Wallet
	cartsByPatient    map[string]domain.Cart
	prescriptionsByID map[string]domain.Prescription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextMedicineID:    1,
		nextOrderID:       1,
		medicinesByID:     make(map[int64]domain.Medicine),
		ordersByID:        make(map[int64]domain.Order),
		usersByID:         make(map[string]domain.User),
		userIDByName:      make(map[string]string),
		walletsByPatient:  make(map[string]domain.Wallet),
		cartsByPatient:    make(map[string]domain.Cart),
		prescriptionsByID: make(map[string]domain.Prescription),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ MedicineRepository = (*MemoryStore)(nil)

// Остальные репозитории реализованы отдельными типами-обёртками

// MedicineRepository implementation
func (m *MemoryStore) Create(ctx context.Context, med *domain.Medicine) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	med.ID = m.nextMedicineID
	m.nextMedicineID++
	m.medicinesByID[med.ID] = *med
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	med, ok := m.medicinesByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := med
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, med *domain.Medicine) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.medicinesByID[med.ID]; !ok {
		return ErrNotFound
	}
	m.medicinesByID[med.ID] = *med
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.medicinesByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.medicinesByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f MedicineFilter) ([]domain.Medicine, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Medicine, 0)
	for _, med := range m.medicinesByID {
		if !containsIgnoreCase(med.Name, f.NameSubstring) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(med.Category, f.Category) {
			continue
		}
		if f.MinPrice != nil && med.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && med.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		out = append(out, med)
	}
	return out, nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	mo.store.ordersByID[o.ID] = *o
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[o.ID]; !ok {
		return ErrNotFound
	}
	o.UpdatedAt = time.Now().UTC()
	mo.store.ordersByID[o.ID] = *o
	return nil
}

func (mo *MemoryOrders) ListByPatient(ctx context.Context, patientID string) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if o.PatientID == patientID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (mo *MemoryOrders) List(ctx context.Context) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0, len(mo.store.ordersByID))
	for _, o := range mo.store.ordersByID {
		out = append(out, o)
	}
	return out, nil
}

// UserRepository implementation
type MemoryUsers struct{ store *MemoryStore }

func NewMemoryUsers(store *MemoryStore) *MemoryUsers { return &MemoryUsers{store: store} }

var _ UserRepository = (*MemoryUsers)(nil)

func (mu *MemoryUsers) Create(ctx context.Context, u *domain.User) error {
	mu.store.wlock(ctx)
	defer mu.store.wunlock(ctx)
	u.CreatedAt = time.Now().UTC()
	mu.store.usersByID[u.ID] = *u
	mu.store.userIDByName[u.Username] = u.ID
	return nil
}

func (mu *MemoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	u, ok := mu.store.usersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (mu *MemoryUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	id, ok := mu.store.userIDByName[username]
	if !ok {
		return nil, ErrNotFound
	}
	u := mu.store.usersByID[id]
	cp := u
	return &cp, nil
}

func (mu *MemoryUsers) List(ctx context.Context) ([]domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	out := make([]domain.User, 0, len(mu.store.usersByID))
	for _, u := range mu.store.usersByID {
		out = append(out, u)
	}
	return out, nil
}

// WalletRepository implementation
type MemoryWallets struct{ store *MemoryStore }

func NewMemoryWallets(store *MemoryStore) *MemoryWallets { return &MemoryWallets{store: store} }

var _ WalletRepository = (*MemoryWallets)(nil)

// GetByPatient отсутствующий кошелёк читается как нулевой — пациент без
// пополнений просто имеет баланс 0
func (mw *MemoryWallets) GetByPatient(ctx context.Context, patientID string) (*domain.Wallet, error) {
	mw.store.rlock(ctx)
	defer mw.store.runlock(ctx)
	w, ok := mw.store.walletsByPatient[patientID]
	if !ok {
		return &domain.Wallet{PatientID: patientID}, nil
	}
	cp := w
	return &cp, nil
}

func (mw *MemoryWallets) Save(ctx context.Context, w *domain.Wallet) error {
	mw.store.wlock(ctx)
	defer mw.store.wunlock(ctx)
	mw.store.walletsByPatient[w.PatientID] = *w
	return nil
}

// CartRepository implementation
type MemoryCarts struct{ store *MemoryStore }

func NewMemoryCarts(store *MemoryStore) *MemoryCarts { return &MemoryCarts{store: store} }

var _ CartRepository = (*MemoryCarts)(nil)

// GetByPatient отсутствующая корзина читается как пустая
func (mc *MemoryCarts) GetByPatient(ctx context.Context, patientID string) (*domain.Cart, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	c, ok := mc.store.cartsByPatient[patientID]
	if !ok {
		return &domain.Cart{PatientID: patientID}, nil
	}
	cp := c
	cp.Items = append([]domain.OrderItem(nil), c.Items...)
	return &cp, nil
}

func (mc *MemoryCarts) Save(ctx context.Context, c *domain.Cart) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	cp.Items = append([]domain.OrderItem(nil), c.Items...)
	mc.store.cartsByPatient[c.PatientID] = cp
	return nil
}

// PrescriptionRepository implementation
type MemoryPrescriptions struct{ store *MemoryStore }

func NewMemoryPrescriptions(store *MemoryStore) *MemoryPrescriptions {
	return &MemoryPrescriptions{store: store}
}

var _ PrescriptionRepository = (*MemoryPrescriptions)(nil)

func (mp *MemoryPrescriptions) Create(ctx context.Context, p *domain.Prescription) error {
	mp.store.wlock(ctx)
	defer mp.store.wunlock(ctx)
	mp.store.prescriptionsByID[p.ID] = *p
	return nil
}

func (mp *MemoryPrescriptions) GetByID(ctx context.Context, id string) (*domain.Prescription, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	p, ok := mp.store.prescriptionsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (mp *MemoryPrescriptions) Update(ctx context.Context, p *domain.Prescription) error {
	mp.store.wlock(ctx)
	defer mp.store.wunlock(ctx)
	if _, ok := mp.store.prescriptionsByID[p.ID]; !ok {
		return ErrNotFound
	}
	mp.store.prescriptionsByID[p.ID] = *p
	return nil
}

func (mp *MemoryPrescriptions) List(ctx context.Context, f PrescriptionFilter) ([]domain.Prescription, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	out := make([]domain.Prescription, 0)
	for _, p := range mp.store.prescriptionsByID {
		if f.PatientID != "" && p.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && p.DoctorID != f.DoctorID {
			continue
		}
		if f.MedicineID != 0 && p.MedicineID != f.MedicineID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Для in-memory используем блокировку записи и помечаем контекст, чтобы репозитории пропускали внутренние локи
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
