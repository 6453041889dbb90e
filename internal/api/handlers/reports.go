package handlers

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"bioscan/internal/api/middleware"
	"bioscan/internal/inference"
	"bioscan/internal/models"
	"bioscan/internal/notify"
	"bioscan/internal/storage"
)

// ReportHandler handles scan uploads and report access.
type ReportHandler struct {
	db         *gorm.DB
	storage    *storage.Client
	classifier inference.Classifier
	notifier   *notify.EmailNotifier
}

func NewReportHandler(db *gorm.DB, st *storage.Client, cl inference.Classifier, no *notify.EmailNotifier) *ReportHandler {
	return &ReportHandler{
		db:         db,
		storage:    st,
		classifier: cl,
		notifier:   no,
	}
}

// ReportOut is the lightweight row shape returned to clients. It keeps the
// owner's storage key and soft-delete bookkeeping off the wire.
type ReportOut struct {
	ID            uint    `json:"id"`
	Filename      string  `json:"filename"`
	Analysis      string  `json:"analysis"`
	DoctorComment *string `json:"doctor_comment"`
	OwnerID       uint    `json:"owner_id"`
}

// Upload stores the scan, runs the classifier, and persists the report row.
// A classifier failure still produces a report; the failure is recorded in
// the analysis field.
func (h *ReportHandler) Upload(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to open file"})
		return
	}
	defer file.Close()

	buf, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read file"})
		return
	}

	// 1. Persist the raw scan under a generated key; colliding client
	// filenames never overwrite each other.
	key := storage.NewScanKey(fileHeader.Filename)
	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.storage.UploadScan(key, bytes.NewReader(buf), contentType); err != nil {
		slog.Error("Failed to store scan", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage upload failed"})
		return
	}

	// 2. Classify. Runs synchronously inside the request.
	var analysis string
	timer := prometheus.NewTimer(inferenceDuration)
	result, err := h.classifier.Classify(c.Request.Context(), bytes.NewReader(buf))
	timer.ObserveDuration()
	if err != nil {
		analysis = inference.ErrorString(err)
		scansAnalyzed.WithLabelValues("error").Inc()
	} else {
		analysis = inference.AnalysisString(result)
		scansAnalyzed.WithLabelValues(string(result.Label)).Inc()
	}

	// 3. Persist the report row linked to its owner.
	report := models.Report{
		Filename:   fileHeader.Filename,
		StorageKey: key,
		Analysis:   analysis,
		OwnerID:    user.ID,
	}
	if err := h.db.Create(&report).Error; err != nil {
		slog.Error("Failed to create report", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, ReportOut{
		ID:            report.ID,
		Filename:      report.Filename,
		Analysis:      report.Analysis,
		DoctorComment: report.DoctorComment,
		OwnerID:       report.OwnerID,
	})
}

// ListOwn returns the caller's reports in creation order.
func (h *ReportHandler) ListOwn(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	var reports []ReportOut
	result := h.db.Model(&models.Report{}).
		Select("id, filename, analysis, doctor_comment, owner_id").
		Where("owner_id = ?", user.ID).
		Order("id ASC").
		Find(&reports)
	if result.Error != nil {
		slog.Error("Failed to fetch reports", "error", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, reports)
}

// ListAll returns every report, paginated. Doctor only (gated at the route).
func (h *ReportHandler) ListAll(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit > 200 {
		limit = 200 // Hard cap to protect the server
	}

	var total int64
	h.db.Model(&models.Report{}).Count(&total)

	var reports []ReportOut
	result := h.db.Model(&models.Report{}).
		Select("id, filename, analysis, doctor_comment, owner_id").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&reports)
	if result.Error != nil {
		slog.Error("Failed to fetch reports", "error", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": reports,
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// GetReport returns one report. Patients only see their own; doctors see any.
func (h *ReportHandler) GetReport(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	var report models.Report
	if err := h.db.First(&report, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if report.OwnerID != user.ID && user.Role != models.RoleDoctor {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your report"})
		return
	}

	c.JSON(http.StatusOK, ReportOut{
		ID:            report.ID,
		Filename:      report.Filename,
		Analysis:      report.Analysis,
		DoctorComment: report.DoctorComment,
		OwnerID:       report.OwnerID,
	})
}

// StreamScan serves the stored image back to its owner or a doctor.
func (h *ReportHandler) StreamScan(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	var report models.Report
	if err := h.db.First(&report, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	if report.OwnerID != user.ID && user.Role != models.RoleDoctor {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your report"})
		return
	}

	obj, err := h.storage.DownloadScan(report.StorageKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan missing from storage"})
		return
	}
	defer obj.Body.Close()

	if seeker, ok := obj.Body.(io.ReadSeeker); ok {
		http.ServeContent(c.Writer, c.Request, report.Filename, obj.LastModified, seeker)
		return
	}

	c.DataFromReader(http.StatusOK, obj.ContentLength, obj.ContentType, obj.Body, nil)
}

// AddComment sets the doctor comment on a report, overwriting any previous
// one, and notifies the owner by email when a notifier is configured.
func (h *ReportHandler) AddComment(c *gin.Context) {
	comment := strings.TrimSpace(c.Query("comment"))
	if comment == "" {
		var body struct {
			Comment string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			comment = strings.TrimSpace(body.Comment)
		}
	}
	if comment == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment is required"})
		return
	}

	var report models.Report
	if err := h.db.Preload("Owner").First(&report, c.Param("report_id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	report.DoctorComment = &comment
	if err := h.db.Save(&report).Error; err != nil {
		slog.Error("Failed to save comment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if h.notifier != nil {
		if err := h.notifier.SendCommentNotice(report.Owner.Email, report.Filename, comment); err != nil {
			slog.Warn("Failed to notify report owner", "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment added"})
}

// UserTrend returns the caller's analysis history, oldest first.
func (h *ReportHandler) UserTrend(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	type trendPoint struct {
		Filename string `json:"filename"`
		Analysis string `json:"analysis"`
	}

	var points []trendPoint
	result := h.db.Model(&models.Report{}).
		Select("filename, analysis").
		Where("owner_id = ?", user.ID).
		Order("id ASC").
		Find(&points)
	if result.Error != nil {
		slog.Error("Failed to fetch trend", "error", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, points)
}
