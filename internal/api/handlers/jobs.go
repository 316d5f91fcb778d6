package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printbridge/printbridge/internal/core"
	"github.com/printbridge/printbridge/internal/db"
	"github.com/printbridge/printbridge/internal/payment"
	"github.com/printbridge/printbridge/internal/storage"
)

// PageCounter prices a stored document by page count.
type PageCounter interface {
	CountPages(path string) (int, error)
}

type CreateJobRequest struct {
	ArtifactRef string `json:"artifact_ref" binding:"required"`
	FileName    string `json:"filename"`
	PrinterName string `json:"printer_name" binding:"required"`
	PageCount   int    `json:"page_count"`

	// Copies is a pointer so an explicit 0 (invalid, rejected) is
	// distinguishable from an absent field (defaults to 1).
	Copies *int `json:"copies"`
}

type CreateJobResponse struct {
	JobID   string `json:"job_id"`
	Amount  int64  `json:"amount"`
	OrderID string `json:"order_id"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Error  string `json:"error"`
}

type ListJobsQuery struct {
	PrinterName   string `form:"printer_name"`
	Status        string `form:"status"`
	PaymentStatus string `form:"payment_status"`
	Limit         int    `form:"limit"`
	Offset        int    `form:"offset"`
}

type JobHandler struct {
	manager   *core.Manager
	artifacts *storage.DiskStore
	counter   PageCounter
	orders    payment.OrderCreator
	currency  string
}

func NewJobHandler(manager *core.Manager, artifacts *storage.DiskStore, counter PageCounter, orders payment.OrderCreator, currency string) *JobHandler {
	return &JobHandler{
		manager:   manager,
		artifacts: artifacts,
		counter:   counter,
		orders:    orders,
		currency:  currency,
	}
}

// CreateJob creates a job for an already-stored artifact: the job is
// persisted, a provider order is issued for its amount and attached, and
// the caller gets everything needed to start the payment.
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	copies := 1
	if req.Copies != nil {
		copies = *req.Copies
	}

	h.createAndOrder(c, req.FileName, req.ArtifactRef, req.PrinterName, req.PageCount, copies)
}

// UploadJob stores a document, counts its pages and creates the job in
// one request.
func (h *JobHandler) UploadJob(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	printerName := c.PostForm("printer_name")
	if printerName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "printer_name is required"})
		return
	}

	copies := 1
	if v := c.PostForm("copies"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &copies); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid copies"})
			return
		}
	}

	path, err := h.artifacts.Save(header.Filename, file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store document"})
		return
	}

	pages, err := h.counter.CountPages(path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unreadable document: %v", err)})
		return
	}

	h.createAndOrder(c, header.Filename, path, printerName, pages, copies)
}

func (h *JobHandler) createAndOrder(c *gin.Context, fileName, artifactPath, printerName string, pageCount, copies int) {
	job, err := h.manager.CreateJob(c.Request.Context(), fileName, artifactPath, printerName, pageCount, copies)
	if err != nil {
		if core.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	orderID, err := h.orders.CreateOrder(c.Request.Context(), job.Amount, h.currency, job.ID)
	if err != nil {
		log.Printf("[api] order creation failed for job %s: %v", job.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable", "job_id": job.ID})
		return
	}

	job, err = h.manager.AttachOrder(c.Request.Context(), job.ID, orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to attach order"})
		return
	}

	c.JSON(http.StatusCreated, CreateJobResponse{
		JobID:   job.ID,
		Amount:  job.Amount,
		OrderID: job.OrderID,
	})
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	var query ListJobsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 100 {
		query.Limit = 100
	}

	jobs, err := h.manager.ListJobs(c.Request.Context(), db.JobFilter{
		PrinterName:   query.PrinterName,
		Status:        query.Status,
		PaymentStatus: query.PaymentStatus,
		Limit:         query.Limit,
		Offset:        query.Offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	if jobs == nil {
		jobs = []*db.PrintJob{}
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   jobs,
		"limit":  query.Limit,
		"offset": query.Offset,
		"count":  len(jobs),
	})
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.manager.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if core.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetJobFile streams the artifact to the fetching agent.
func (h *JobHandler) GetJobFile(c *gin.Context) {
	job, err := h.manager.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if core.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}

	reader, err := h.artifacts.Open(job.ArtifactPath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not available"})
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", job.FileName),
	})
}

// UpdateStatus is the administrative status override.
func (h *JobHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.manager.UpdateExecutionStatus(c.Request.Context(), c.Param("id"), core.JobStatus(req.Status), req.Error)
	if err != nil {
		switch {
		case core.IsValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case core.IsNotFound(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update status"})
		}
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) GetQueue(c *gin.Context) {
	counts, err := h.manager.CountByStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count jobs"})
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	c.JSON(http.StatusOK, gin.H{
		"pending":    counts[string(core.JobStatusPending)],
		"processing": counts[string(core.JobStatusProcessing)],
		"completed":  counts[string(core.JobStatusCompleted)],
		"failed":     counts[string(core.JobStatusFailed)],
		"total":      total,
	})
}

func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/jobs", h.ListJobs)
	r.POST("/jobs", h.CreateJob)
	r.POST("/jobs/upload", h.UploadJob)
	r.GET("/jobs/queue", h.GetQueue)
	r.GET("/jobs/:id", h.GetJob)
	r.GET("/jobs/:id/file", h.GetJobFile)
}

func (h *JobHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.PATCH("/jobs/:id/status", h.UpdateStatus)
}
