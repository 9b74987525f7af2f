package http

import (
	"log"
	"net/http"

	"adaptive-assessment-service/internal/app"
	"adaptive-assessment-service/internal/report"
)

// ReportHandler serves a learner's plain-text progress report.
type ReportHandler struct {
	service *app.AssessmentService
}

func NewReportHandler(service *app.AssessmentService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	learnerID := r.URL.Query().Get("learnerId")
	if learnerID == "" {
		http.Error(w, "missing learnerId", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := report.WriteProgress(w, learnerID, h.service.History(learnerID)); err != nil {
		log.Printf("write progress report for %s: %v", learnerID, err)
	}
}
