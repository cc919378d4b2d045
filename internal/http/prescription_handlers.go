package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

type issuePrescriptionReq struct {
	PatientID  string `json:"patient_id"`
	MedicineID int64  `json:"medicine_id"`
	Quantity   int64  `json:"quantity"`
	Note       string `json:"note"`
}

// @Summary Issue prescription
// @Tags prescriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body issuePrescriptionReq true "Prescription"
// @Success 201 {object} domain.Prescription
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /prescriptions [post]
func (s *Server) issuePrescription(c *gin.Context) {
	claims := claimsFrom(c)
	var req issuePrescriptionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.prescriptions.Issue(c, claims.UserID, req.PatientID, req.MedicineID, req.Quantity, req.Note)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary List prescriptions
// @Description Patients see their own, doctors the ones they issued, staff everything
// @Tags prescriptions
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Success 200 {array} domain.Prescription
// @Router /prescriptions [get]
func (s *Server) listPrescriptions(c *gin.Context) {
	claims := claimsFrom(c)
	f := repository.PrescriptionFilter{
		Status: domain.PrescriptionStatus(c.Query("status")),
	}
	switch claims.Role {
	case domain.RolePatient:
		f.PatientID = claims.UserID
	case domain.RoleDoctor:
		f.DoctorID = claims.UserID
	}
	list, err := s.prescriptions.List(c, f)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get prescription by id
// @Tags prescriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Prescription ID"
// @Success 200 {object} domain.Prescription
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /prescriptions/{id} [get]
func (s *Server) getPrescription(c *gin.Context) {
	claims := claimsFrom(c)
	p, err := s.prescriptions.Get(c, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if claims.Role == domain.RolePatient && p.PatientID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if claims.Role == domain.RoleDoctor && p.DoctorID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Approve prescription
// @Tags prescriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Prescription ID"
// @Success 200 {object} domain.Prescription
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /prescriptions/{id}/approve [post]
func (s *Server) approvePrescription(c *gin.Context) {
	claims := claimsFrom(c)
	p, err := s.prescriptions.Approve(c, claims.UserID, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type rejectPrescriptionReq struct {
	Note string `json:"note"`
}

// @Summary Reject prescription
// @Tags prescriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Prescription ID"
// @Param input body rejectPrescriptionReq false "Reason"
// @Success 200 {object} domain.Prescription
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /prescriptions/{id}/reject [post]
func (s *Server) rejectPrescription(c *gin.Context) {
	claims := claimsFrom(c)
	var req rejectPrescriptionReq
	// тело не обязательно
	_ = c.ShouldBindJSON(&req)
	p, err := s.prescriptions.Reject(c, claims.UserID, c.Param("id"), req.Note)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
