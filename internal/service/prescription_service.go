package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

// PrescriptionService выписка рецептов врачом и их проверка фармацевтом
type PrescriptionService struct {
	prescriptions repository.PrescriptionRepository
	medicines     repository.MedicineRepository
	users         repository.UserRepository
	tx            repository.TxManager
	saver         StateSaver
	log           *logrus.Logger
}

func NewPrescriptionService(
	prescriptions repository.PrescriptionRepository,
	medicines repository.MedicineRepository,
	users repository.UserRepository,
	tx repository.TxManager,
	saver StateSaver,
	log *logrus.Logger,
) *PrescriptionService {
	return &PrescriptionService{
		prescriptions: prescriptions,
		medicines:     medicines,
		users:         users,
		tx:            tx,
		saver:         saver,
		log:           log,
	}
}

// Issue врач выписывает рецепт пациенту на препарат
func (s *PrescriptionService) Issue(ctx context.Context, doctorID, patientID string, medicineID, qty int64, note string) (*domain.Prescription, error) {
	if doctorID == "" || patientID == "" || medicineID <= 0 || qty <= 0 {
		return nil, ErrInvalidInput
	}
	p := domain.Prescription{
		ID:         uuid.NewString(),
		PatientID:  patientID,
		DoctorID:   doctorID,
		MedicineID: medicineID,
		Quantity:   qty,
		Status:     domain.PrescriptionStatusIssued,
		Note:       note,
		IssuedAt:   time.Now().UTC(),
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		patient, err := s.users.GetByID(ctx, patientID)
		if err != nil {
			return err
		}
		if patient.Role != domain.RolePatient {
			return ErrInvalidInput
		}
		if _, err := s.medicines.GetByID(ctx, medicineID); err != nil {
			return err
		}
		return s.prescriptions.Create(ctx, &p)
	})
	if err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "prescription.issue")
	return &p, nil
}

// Approve фармацевт одобряет выписанный рецепт
func (s *PrescriptionService) Approve(ctx context.Context, pharmacistID, id string) (*domain.Prescription, error) {
	return s.review(ctx, pharmacistID, id, domain.PrescriptionStatusApproved, "")
}

// Reject фармацевт отклоняет рецепт с пояснением
func (s *PrescriptionService) Reject(ctx context.Context, pharmacistID, id, note string) (*domain.Prescription, error) {
	return s.review(ctx, pharmacistID, id, domain.PrescriptionStatusRejected, note)
}

func (s *PrescriptionService) review(ctx context.Context, pharmacistID, id string, status domain.PrescriptionStatus, note string) (*domain.Prescription, error) {
	if pharmacistID == "" || id == "" {
		return nil, ErrInvalidInput
	}
	var updated *domain.Prescription
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != domain.PrescriptionStatusIssued {
			return ErrInvalidState
		}
		now := time.Now().UTC()
		p.Status = status
		p.ReviewedAt = &now
		p.ReviewedBy = pharmacistID
		if note != "" {
			p.Note = note
		}
		if err := s.prescriptions.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	persist(ctx, s.saver, s.log, "prescription.review")
	return updated, nil
}

// Get возвращает рецепт по id
func (s *PrescriptionService) Get(ctx context.Context, id string) (*domain.Prescription, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.prescriptions.GetByID(ctx, id)
}

// List выборка рецептов по фильтру
func (s *PrescriptionService) List(ctx context.Context, f repository.PrescriptionFilter) ([]domain.Prescription, error) {
	return s.prescriptions.List(ctx, f)
}
