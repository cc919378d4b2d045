package service

import (
	"context"

	"github.com/sirupsen/logrus"
)

// StateSaver хук персистентности: сохранить всё состояние на диск.
// Вызывается после каждой мутации. Ошибка логируется и не приводит к
// откату уже применённого изменения в памяти.
type StateSaver interface {
	Save(ctx context.Context) error
}

// NopSaver для тестов и запуска без персистентности
type NopSaver struct{}

func (NopSaver) Save(context.Context) error { return nil }

func persist(ctx context.Context, saver StateSaver, log *logrus.Logger, op string) {
	if saver == nil {
		return
	}
	if err := saver.Save(ctx); err != nil && log != nil {
		log.WithError(err).WithField("op", op).Error("state snapshot failed")
	}
}
