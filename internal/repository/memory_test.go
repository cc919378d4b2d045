package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"apteka/internal/domain"
)

func TestMemoryStore_MedicineCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	m := domain.Medicine{Name: "Aspirin", Category: "painkiller", Price: decimal.NewFromInt(10), Stock: 5}
	if err := store.Create(ctx, &m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID == 0 {
		t.Fatalf("no id")
	}

	got, err := store.GetByID(ctx, m.ID)
	if err != nil || got.ID != m.ID {
		t.Fatalf("get: %v", err)
	}

	m.Price = decimal.NewFromInt(12)
	if err := store.Update(ctx, &m); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := store.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, m.ID); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestMemoryTx_TransactionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	// seed medicine
	m := domain.Medicine{Name: "Aspirin", Price: decimal.NewFromInt(10), Stock: 5}
	if err := store.Create(ctx, &m); err != nil {
		t.Fatal(err)
	}

	// emulate atomic process: stock decrease plus order status change
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		mm, err := store.GetByID(ctx, m.ID)
		if err != nil {
			return err
		}
		if mm.Stock < 3 {
			t.Fatalf("stock precondition")
		}
		mm.Stock -= 3
		if err := store.Update(ctx, mm); err != nil {
			return err
		}
		o := domain.Order{
			PatientID: "p1",
			Items:     []domain.OrderItem{{MedicineID: m.ID, Quantity: 3, UnitPrice: mm.Price}},
			Status:    domain.OrderStatusPending,
		}
		return orders.Create(ctx, &o)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	// check stock after
	mm, _ := store.GetByID(context.Background(), m.ID)
	if mm.Stock != 2 {
		t.Fatalf("stock expected 2, got %v", mm.Stock)
	}
}

func TestList_Filtering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	add := func(n, cat string, price int64) {
		m := domain.Medicine{Name: n, Category: cat, Price: decimal.NewFromInt(price), Stock: 1}
		if err := store.Create(ctx, &m); err != nil {
			t.Fatal(err)
		}
	}
	add("Aspirin", "painkiller", 100)
	add("Paracetamol", "painkiller", 50)
	add("Amoxicillin", "antibiotic", 150)

	// name contains
	list, _ := store.List(ctx, MedicineFilter{NameSubstring: "in"})
	if len(list) == 0 {
		t.Fatalf("name filter empty")
	}

	// category
	list, _ = store.List(ctx, MedicineFilter{Category: "antibiotic"})
	if len(list) != 1 || list[0].Name != "Amoxicillin" {
		t.Fatalf("category filter fail: %v", list)
	}

	// min
	min := decimal.NewFromInt(100)
	list, _ = store.List(ctx, MedicineFilter{MinPrice: &min})
	for _, m := range list {
		if m.Price.LessThan(min) {
			t.Fatalf("min filter fail")
		}
	}

	// max
	max := decimal.NewFromInt(100)
	list, _ = store.List(ctx, MedicineFilter{MaxPrice: &max})
	for _, m := range list {
		if m.Price.GreaterThan(max) {
			t.Fatalf("max filter fail")
		}
	}
}

func TestMemoryUsers_UsernameIndex(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	users := NewMemoryUsers(store)

	u := domain.User{ID: "u1", Username: "ivan", Role: domain.RolePatient}
	if err := users.Create(ctx, &u); err != nil {
		t.Fatal(err)
	}

	got, err := users.GetByUsername(ctx, "ivan")
	if err != nil || got.ID != "u1" {
		t.Fatalf("get by username: %v", err)
	}
	if _, err := users.GetByUsername(ctx, "nobody"); err != ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryWallets_DefaultZero(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	wallets := NewMemoryWallets(store)

	w, err := wallets.GetByPatient(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %v", w.Balance)
	}

	w.Balance = decimal.NewFromInt(100)
	if err := wallets.Save(ctx, w); err != nil {
		t.Fatal(err)
	}
	w2, _ := wallets.GetByPatient(ctx, "p1")
	if !w2.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance not saved: %v", w2.Balance)
	}
}

func TestMemoryCarts_CopyOnRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	carts := NewMemoryCarts(store)

	c := domain.Cart{PatientID: "p1", Items: []domain.OrderItem{{MedicineID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(5)}}}
	if err := carts.Save(ctx, &c); err != nil {
		t.Fatal(err)
	}

	got, _ := carts.GetByPatient(ctx, "p1")
	got.Items[0].Quantity = 99

	// мутация копии не должна протекать в хранилище
	again, _ := carts.GetByPatient(ctx, "p1")
	if again.Items[0].Quantity != 2 {
		t.Fatalf("cart mutated through read copy")
	}
}
