package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

type env struct {
	store         *repository.MemoryStore
	wallets       repository.WalletRepository
	carts         repository.CartRepository
	prescriptions repository.PrescriptionRepository
	medicines     *MedicineService
	cart          *CartService
	orders        *OrderService
}

func setup(t *testing.T) *env {
	t.Helper()
	store := repository.NewMemoryStore()
	ordersRepo := repository.NewMemoryOrders(store)
	walletsRepo := repository.NewMemoryWallets(store)
	cartsRepo := repository.NewMemoryCarts(store)
	prescriptionsRepo := repository.NewMemoryPrescriptions(store)
	tx := repository.NewMemoryTx(store)
	log := quietLog()
	return &env{
		store:         store,
		wallets:       walletsRepo,
		carts:         cartsRepo,
		prescriptions: prescriptionsRepo,
		medicines:     NewMedicineService(store, tx, NopSaver{}, log),
		cart:          NewCartService(store, cartsRepo, tx, NopSaver{}, log),
		orders:        NewOrderService(store, ordersRepo, cartsRepo, walletsRepo, prescriptionsRepo, tx, NopSaver{}, log),
	}
}

func (e *env) fund(t *testing.T, patientID string, amount string) {
	t.Helper()
	w := &domain.Wallet{PatientID: patientID, Balance: decimal.RequireFromString(amount)}
	if err := e.wallets.Save(context.Background(), w); err != nil {
		t.Fatal(err)
	}
}

func (e *env) addMedicine(t *testing.T, name, price string, stock int64, rx bool) *domain.Medicine {
	t.Helper()
	m, err := e.medicines.Create(context.Background(), domain.Medicine{
		Name: name, Price: decimal.RequireFromString(price), Stock: stock, RxOnly: rx,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCart_CapturesPriceAtAddTime(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	m := e.addMedicine(t, "Aspirin", "10.00", 50, false)

	if _, err := e.cart.AddItem(ctx, "p1", m.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	// цена препарата меняется после добавления
	m.Price = decimal.RequireFromString("99.00")
	if _, err := e.medicines.Update(ctx, *m); err != nil {
		t.Fatal(err)
	}

	cart, _ := e.cart.Get(ctx, "p1")
	if !cart.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("unit price must stay captured: %v", cart.Items[0].UnitPrice)
	}
	if !cart.Total().Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("total expected 20.00, got %v", cart.Total())
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.fund(t, "p1", "100.00")
	if _, err := e.orders.Checkout(ctx, "p1"); err != ErrEmptyCart {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestCheckout_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	m := e.addMedicine(t, "Aspirin", "12.50", 50, false)
	e.fund(t, "p1", "20.00")
	if _, err := e.cart.AddItem(ctx, "p1", m.ID, 2); err != nil { // total 25.00
		t.Fatal(err)
	}

	_, err := e.orders.Checkout(ctx, "p1")
	if err != ErrInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	// ни списания, ни заказа, корзина не тронута
	w, _ := e.wallets.GetByPatient(ctx, "p1")
	if !w.Balance.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("wallet debited on failed checkout: %v", w.Balance)
	}
	cart, _ := e.cart.Get(ctx, "p1")
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("cart changed on failed checkout: %+v", cart.Items)
	}
	list, _ := e.orders.List(ctx)
	if len(list) != 0 {
		t.Fatalf("order persisted on failed checkout")
	}
}

func TestCheckout_Success(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	m := e.addMedicine(t, "Aspirin", "12.50", 50, false)
	e.fund(t, "p1", "50.00")
	if _, err := e.cart.AddItem(ctx, "p1", m.ID, 2); err != nil { // total 25.00
		t.Fatal(err)
	}

	o, err := e.orders.Checkout(ctx, "p1")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if o.Status != domain.OrderStatusPending {
		t.Fatalf("expected Pending, got %v", o.Status)
	}
	if !o.Total().Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("order total expected 25.00, got %v", o.Total())
	}

	w, _ := e.wallets.GetByPatient(ctx, "p1")
	if !w.Balance.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("wallet expected 25.00, got %v", w.Balance)
	}
	cart, _ := e.cart.Get(ctx, "p1")
	if len(cart.Items) != 0 {
		t.Fatalf("cart must be empty after checkout")
	}
	// запас списывается только при обработке, не при оформлении
	mm, _ := e.medicines.GetByID(ctx, m.ID)
	if mm.Stock != 50 {
		t.Fatalf("stock must not change at checkout: %v", mm.Stock)
	}
}

func TestOrderTotal_MixedItems(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	m1 := e.addMedicine(t, "A", "10.00", 50, false)
	m2 := e.addMedicine(t, "B", "5.50", 50, false)
	e.fund(t, "p1", "100.00")
	if _, err := e.cart.AddItem(ctx, "p1", m1.ID, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := e.cart.AddItem(ctx, "p1", m2.ID, 3); err != nil {
		t.Fatal(err)
	}

	o, err := e.orders.Checkout(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	want := decimal.RequireFromString("36.50")
	if !o.Total().Equal(want) {
		t.Fatalf("total expected 36.50, got %v", o.Total())
	}
	// идемпотентность: повторный вызов без мутаций даёт то же значение
	if !o.Total().Equal(want) {
		t.Fatalf("total not idempotent")
	}
}

func TestProcess_NotEnoughStock(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	m := e.addMedicine(t, "Aspirin", "1.00", 3, false)
	e.fund(t, "p1", "100.00")
	if _, err := e.cart.AddItem(ctx, "p1", m.ID, 5); err != nil {
		t.Fatal(err)
	}
	o, err := e.orders.Checkout(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.orders.Process(ctx, o.ID); err != ErrNotEnoughStock {
		t.Fatalf("expected not enough stock, got %v", err)
	}
	mm, _ := e.medicines.GetByID(ctx, m.ID)
	if mm.Stock != 3 {
		t.Fatalf("stock changed on rejected process: %v", mm.Stock)
	}
	oo, _ := e.orders.Get(ctx, o.ID)
	if oo.Status != domain.OrderStatusPending {
		t.Fatalf("status changed on rejected process: %v", oo.Status)
	}

	// после пополнения склада та же обработка проходит
	if _, err := e.medicines.IncrementStock(ctx, m.ID, 7); err != nil { // stock = 10
		t.Fatal(err)
	}
	oo, err = e.orders.Process(ctx, o.ID)
	if err != nil {
		t.Fatalf("process after restock: %v", err)
	}
	if oo.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected Processing, got %v", oo.Status)
	}
	mm, _ = e.medicines.GetByID(ctx, m.ID)
	if mm.Stock != 5 {
		t.Fatalf("stock expected 5, got %v", mm.Stock)
	}
}

func TestComplete_OnlyFromProcessing(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	m := e.addMedicine(t, "Aspirin", "1.00", 10, false)
	e.fund(t, "p1", "100.00")
	if _, err := e.cart.AddItem(ctx, "p1", m.ID, 1); err != nil {
		t.Fatal(err)
	}
	o, _ := e.orders.Checkout(ctx, "p1")

	// Pending нельзя завершить напрямую
	if _, err := e.orders.Complete(ctx, o.ID); err != ErrInvalidState {
		t.Fatalf("expected invalid state, got %v", err)
	}

	if _, err := e.orders.Process(ctx, o.ID); err != nil {
		t.Fatal(err)
	}
	oo, err := e.orders.Complete(ctx, o.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if oo.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected Completed, got %v", oo.Status)
	}
}

func TestCancel_Rules(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	m := e.addMedicine(t, "Aspirin", "1.00", 10, false)
	e.fund(t, "p1", "100.00")

	// Pending -> Cancelled
	if _, err := e.cart.AddItem(ctx, "p1", m.ID, 2); err != nil {
		t.Fatal(err)
	}
	o1, _ := e.orders.Checkout(ctx, "p1")
	c1, err := e.orders.Cancel(ctx, o1.ID)
	if err != nil || c1.Status != domain.OrderStatusCancelled {
		t.Fatalf("cancel pending: %v %v", err, c1)
	}

	// Processing -> Cancelled с возвратом запаса
	if _, err := e.cart.AddItem(ctx, "p1", m.ID, 4); err != nil {
		t.Fatal(err)
	}
	o2, _ := e.orders.Checkout(ctx, "p1")
	if _, err := e.orders.Process(ctx, o2.ID); err != nil {
		t.Fatal(err)
	}
	mm, _ := e.medicines.GetByID(ctx, m.ID)
	if mm.Stock != 6 {
		t.Fatalf("stock expected 6 after process, got %v", mm.Stock)
	}
	if _, err := e.orders.Cancel(ctx, o2.ID); err != nil {
		t.Fatalf("cancel processing: %v", err)
	}
	mm, _ = e.medicines.GetByID(ctx, m.ID)
	if mm.Stock != 10 {
		t.Fatalf("stock not restored on cancel: %v", mm.Stock)
	}

	// Completed нельзя отменить
	if _, err := e.cart.AddItem(ctx, "p1", m.ID, 1); err != nil {
		t.Fatal(err)
	}
	o3, _ := e.orders.Checkout(ctx, "p1")
	if _, err := e.orders.Process(ctx, o3.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.orders.Complete(ctx, o3.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.orders.Cancel(ctx, o3.ID); err != ErrInvalidState {
		t.Fatalf("expected invalid state cancelling completed, got %v", err)
	}
	oo, _ := e.orders.Get(ctx, o3.ID)
	if oo.Status != domain.OrderStatusCompleted {
		t.Fatalf("completed order mutated: %v", oo.Status)
	}

	// Cancelled — конечный статус
	if _, err := e.orders.Process(ctx, o1.ID); err != ErrInvalidState {
		t.Fatalf("expected invalid state processing cancelled, got %v", err)
	}
}

func TestCancel_RestoreAfterMedicineDeleted(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	m1 := e.addMedicine(t, "A", "1.00", 10, false)
	m2 := e.addMedicine(t, "B", "1.00", 10, false)
	e.fund(t, "p1", "100.00")
	if _, err := e.cart.AddItem(ctx, "p1", m1.ID, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := e.cart.AddItem(ctx, "p1", m2.ID, 3); err != nil {
		t.Fatal(err)
	}
	o, err := e.orders.Checkout(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.orders.Process(ctx, o.ID); err != nil { // A: 10->8, B: 10->7
		t.Fatal(err)
	}

	// препарат B удаляют, пока заказ в обработке
	if err := e.medicines.Delete(ctx, m2.ID); err != nil {
		t.Fatal(err)
	}

	// отмена проходит: запас A возвращается ровно один раз, позиция B пропускается
	oo, err := e.orders.Cancel(ctx, o.ID)
	if err != nil {
		t.Fatalf("cancel with deleted medicine: %v", err)
	}
	if oo.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected Cancelled, got %v", oo.Status)
	}
	mm, _ := e.medicines.GetByID(ctx, m1.ID)
	if mm.Stock != 10 {
		t.Fatalf("stock expected 10 after cancel, got %v", mm.Stock)
	}

	// повторная отмена отклоняется и запас не трогает
	if _, err := e.orders.Cancel(ctx, o.ID); err != ErrInvalidState {
		t.Fatalf("expected invalid state, got %v", err)
	}
	mm, _ = e.medicines.GetByID(ctx, m1.ID)
	if mm.Stock != 10 {
		t.Fatalf("stock inflated by repeated cancel: %v", mm.Stock)
	}
}

func TestCheckout_RxOnlyNeedsApprovedPrescription(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	m := e.addMedicine(t, "Amoxicillin", "8.00", 20, true)
	e.fund(t, "p1", "100.00")
	if _, err := e.cart.AddItem(ctx, "p1", m.ID, 2); err != nil {
		t.Fatal(err)
	}

	// без рецепта оформление отклоняется, корзина и кошелёк не тронуты
	if _, err := e.orders.Checkout(ctx, "p1"); err != ErrPrescriptionRequired {
		t.Fatalf("expected prescription required, got %v", err)
	}
	w, _ := e.wallets.GetByPatient(ctx, "p1")
	if !w.Balance.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("wallet debited without prescription: %v", w.Balance)
	}

	// выписанный, но не одобренный рецепт не подходит
	rx := &domain.Prescription{ID: "rx1", PatientID: "p1", DoctorID: "d1", MedicineID: m.ID, Quantity: 5, Status: domain.PrescriptionStatusIssued}
	if err := e.prescriptions.Create(ctx, rx); err != nil {
		t.Fatal(err)
	}
	if _, err := e.orders.Checkout(ctx, "p1"); err != ErrPrescriptionRequired {
		t.Fatalf("issued prescription must not cover checkout, got %v", err)
	}

	// одобренный рецепт с достаточным количеством покрывает и расходуется
	rx.Status = domain.PrescriptionStatusApproved
	if err := e.prescriptions.Update(ctx, rx); err != nil {
		t.Fatal(err)
	}
	if _, err := e.orders.Checkout(ctx, "p1"); err != nil {
		t.Fatalf("checkout with approved prescription: %v", err)
	}
	used, _ := e.prescriptions.GetByID(ctx, "rx1")
	if used.Status != domain.PrescriptionStatusUsed {
		t.Fatalf("prescription not consumed: %v", used.Status)
	}
}
