package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"apteka/internal/domain"
)

// Snapshot сериализуемый слепок всего состояния хранилища
type Snapshot struct {
	NextMedicineID int64                 `json:"next_medicine_id"`
	NextOrderID    int64                 `json:"next_order_id"`
	Medicines      []domain.Medicine     `json:"medicines"`
	Orders         []domain.Order        `json:"orders"`
	Users          []snapshotUser        `json:"users"`
	Wallets        []domain.Wallet       `json:"wallets"`
	Carts          []domain.Cart         `json:"carts"`
	Prescriptions  []domain.Prescription `json:"prescriptions"`
}

// snapshotUser хэш пароля в domain.User помечен json:"-", поэтому для
// файла состояния пользователь разворачивается явно
type snapshotUser struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"password_hash"`
	FullName     string      `json:"full_name"`
	Role         domain.Role `json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Export снимает копию состояния под блокировкой чтения
func (m *MemoryStore) Export() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		NextMedicineID: m.nextMedicineID,
		NextOrderID:    m.nextOrderID,
		Medicines:      make([]domain.Medicine, 0, len(m.medicinesByID)),
		Orders:         make([]domain.Order, 0, len(m.ordersByID)),
		Users:          make([]snapshotUser, 0, len(m.usersByID)),
		Wallets:        make([]domain.Wallet, 0, len(m.walletsByPatient)),
		Carts:          make([]domain.Cart, 0, len(m.cartsByPatient)),
		Prescriptions:  make([]domain.Prescription, 0, len(m.prescriptionsByID)),
	}
	for _, med := range m.medicinesByID {
		snap.Medicines = append(snap.Medicines, med)
	}
	for _, o := range m.ordersByID {
		snap.Orders = append(snap.Orders, o)
	}
	for _, u := range m.usersByID {
		snap.Users = append(snap.Users, snapshotUser{
			ID:           u.ID,
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			FullName:     u.FullName,
			Role:         u.Role,
			CreatedAt:    u.CreatedAt,
		})
	}
	for _, w := range m.walletsByPatient {
		snap.Wallets = append(snap.Wallets, w)
	}
	for _, c := range m.cartsByPatient {
		snap.Carts = append(snap.Carts, c)
	}
	for _, p := range m.prescriptionsByID {
		snap.Prescriptions = append(snap.Prescriptions, p)
	}
	return snap
}

// Import замещает состояние хранилища содержимым слепка
func (m *MemoryStore) Import(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextMedicineID = snap.NextMedicineID
	m.nextOrderID = snap.NextOrderID
	m.medicinesByID = make(map[int64]domain.Medicine, len(snap.Medicines))
	for _, med := range snap.Medicines {
		m.medicinesByID[med.ID] = med
	}
	m.ordersByID = make(map[int64]domain.Order, len(snap.Orders))
	for _, o := range snap.Orders {
		m.ordersByID[o.ID] = o
	}
	m.usersByID = make(map[string]domain.User, len(snap.Users))
	m.userIDByName = make(map[string]string, len(snap.Users))
	for _, su := range snap.Users {
		u := domain.User{
			ID:           su.ID,
			Username:     su.Username,
			PasswordHash: su.PasswordHash,
			FullName:     su.FullName,
			Role:         su.Role,
			CreatedAt:    su.CreatedAt,
		}
		m.usersByID[u.ID] = u
		m.userIDByName[u.Username] = u.ID
	}
	m.walletsByPatient = make(map[string]domain.Wallet, len(snap.Wallets))
	for _, w := range snap.Wallets {
		m.walletsByPatient[w.PatientID] = w
	}
	m.cartsByPatient = make(map[string]domain.Cart, len(snap.Carts))
	for _, c := range snap.Carts {
		m.cartsByPatient[c.PatientID] = c
	}
	m.prescriptionsByID = make(map[string]domain.Prescription, len(snap.Prescriptions))
	for _, p := range snap.Prescriptions {
		m.prescriptionsByID[p.ID] = p
	}
}

// FileSnapshotter сохраняет состояние MemoryStore в JSON-файл.
// Запись атомарная: во временный файл рядом, затем rename.
type FileSnapshotter struct {
	store *MemoryStore
	path  string
}

func NewFileSnapshotter(store *MemoryStore, path string) *FileSnapshotter {
	return &FileSnapshotter{store: store, path: path}
}

// Save пишет текущее состояние на диск
func (fs *FileSnapshotter) Save(ctx context.Context) error {
	snap := fs.store.Export()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load восстанавливает состояние из файла; отсутствие файла — не ошибка
func (fs *FileSnapshotter) Load(ctx context.Context) error {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("unmarshal snapshot: %w", err)
	}
	fs.store.Import(snap)
	return nil
}
