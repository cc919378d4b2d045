package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"apteka/internal/config"
	httpapi "apteka/internal/http"
	"apteka/internal/repository"
	"apteka/internal/service"

	_ "apteka/docs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	store := repository.NewMemoryStore()
	snapshotter := repository.NewFileSnapshotter(store, cfg.Storage.SnapshotPath)
	if err := snapshotter.Load(context.Background()); err != nil {
		log.WithError(err).Warn("state snapshot load failed, starting empty")
	}

	ordersRepo := repository.NewMemoryOrders(store)
	usersRepo := repository.NewMemoryUsers(store)
	walletsRepo := repository.NewMemoryWallets(store)
	cartsRepo := repository.NewMemoryCarts(store)
	prescriptionsRepo := repository.NewMemoryPrescriptions(store)
	tx := repository.NewMemoryTx(store)

	authSvc := service.NewAuthService(usersRepo, walletsRepo, cartsRepo, tx, snapshotter, log,
		cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Second, cfg.Auth.BcryptCost)
	medicinesSvc := service.NewMedicineService(store, tx, snapshotter, log)
	cartsSvc := service.NewCartService(store, cartsRepo, tx, snapshotter, log)
	ordersSvc := service.NewOrderService(store, ordersRepo, cartsRepo, walletsRepo, prescriptionsRepo, tx, snapshotter, log)
	walletsSvc := service.NewWalletService(walletsRepo, tx, snapshotter, log)
	prescriptionsSvc := service.NewPrescriptionService(prescriptionsRepo, store, usersRepo, tx, snapshotter, log)

	srv := httpapi.NewServer(log, authSvc, medicinesSvc, cartsSvc, ordersSvc, walletsSvc, prescriptionsSvc)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.WithField("addr", httpServer.Addr).Info("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
	// финальный слепок состояния перед выходом
	if err := snapshotter.Save(context.Background()); err != nil {
		log.WithError(err).Error("final snapshot failed")
	}
}
