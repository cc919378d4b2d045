package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

// WalletService кошелёк пациента: баланс и пополнение.
// Списание выполняет OrderService внутри транзакции оформления.
type WalletService struct {
	wallets repository.WalletRepository
	tx      repository.TxManager
	saver   StateSaver
	log     *logrus.Logger
}

func NewWalletService(wallets repository.WalletRepository, tx repository.TxManager, saver StateSaver, log *logrus.Logger) *WalletService {
	return &WalletService{wallets: wallets, tx: tx, saver: saver, log: log}
}

func (s *WalletService) Get(ctx context.Context, patientID string) (*domain.Wallet, error) {
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.wallets.GetByPatient(ctx, patientID)
}

// Deposit пополнение на положительную сумму
func (s *WalletService) Deposit(ctx context.Context, patientID string, amount decimal.Decimal) (*domain.Wallet, error) {
	if patientID == "" || !amount.IsPositive() {
		return nil, ErrInvalidInput
	}
	var updated *domain.Wallet
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		w, err := s.wallets.GetByPatient(ctx, patientID)
		if err != nil {
			return err
		}
		w.Balance = w.Balance.Add(amount)
		if err := s.wallets.Save(ctx, w); err != nil {
			return err
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "wallet.deposit")
	return updated, nil
}
