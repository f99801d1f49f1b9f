package recordapi

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/matching/record/recordsrv"
	"github.com/resumatch/resumatch/pkg/fsx"
	"github.com/resumatch/resumatch/pkg/kernel"
)

const maxUploadSize = 10 * 1024 * 1024 // 10MB

type RecordHandlers struct {
	service    *recordsrv.Service
	fileSystem fsx.FileSystem
}

func NewRecordHandlers(service *recordsrv.Service, fileSystem fsx.FileSystem) *RecordHandlers {
	return &RecordHandlers{
		service:    service,
		fileSystem: fileSystem,
	}
}

func (h *RecordHandlers) RegisterRoutes(app *fiber.App) {
	records := app.Group("/api/v1/records")

	// Resume records
	records.Post("/resumes/upload", h.UploadResume) // Upload file, index async
	records.Post("/resumes", h.IndexResume)         // Index extracted text
	records.Get("/resumes/:resume_id", h.GetResumeRecord)
	records.Post("/resumes/:resume_id/reindex", h.ReindexResume)
	records.Delete("/resumes/:resume_id", h.DeleteResume)
	records.Put("/resumes/:resume_id/active", h.SetResumeActive)
	records.Post("/resumes/:resume_id/applied", h.AddAppliedJob)
	records.Delete("/resumes/:resume_id/applied/:job_id", h.RemoveAppliedJob)

	// Job records
	records.Post("/jobs", h.IndexJob)
	records.Get("/jobs/:job_id", h.GetJobRecord)
	records.Post("/jobs/:job_id/reindex", h.ReindexJob)
	records.Delete("/jobs/:job_id", h.DeleteJob)
	records.Put("/jobs/:job_id/active", h.SetJobActive)

	// Profile propagation
	records.Post("/profiles/propagate", h.PropagateProfile)

	// Async ingest tracking
	records.Get("/ingest-jobs/:id", h.GetIngestStatus)
}

// ============================================================================
// Resume records
// ============================================================================

// UploadResume stores the uploaded file and queues it for extraction and
// indexing. Responds 202 with a job to poll.
// POST /api/v1/records/resumes/upload
func (h *RecordHandlers) UploadResume(c *fiber.Ctx) error {
	seekerID := kernel.SeekerID(c.FormValue("seeker_id"))
	resumeID := kernel.ResumeID(c.FormValue("resume_id"))
	if seekerID.IsEmpty() || resumeID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "seeker_id and resume_id are required",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}
	if file.Size > maxUploadSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "file too large",
			"max_size": "10MB",
			"size":     file.Size,
		})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".pdf", ".docx", ".txt":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":           "unsupported file type",
			"supported_types": []string{"pdf", "docx", "txt"},
			"file_extension":  ext,
		})
	}

	uploadedFile, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to open uploaded file",
		})
	}
	defer uploadedFile.Close()

	now := time.Now()
	filePath := h.fileSystem.Join(
		"resumes",
		seekerID.String(),
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		uuid.NewString()+ext,
	)

	if err := h.fileSystem.WriteFileStream(c.Context(), filePath, uploadedFile); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "failed to upload file to storage",
			"details": err.Error(),
		})
	}

	jobResponse, err := h.service.UploadResumeAsync(c.Context(), record.UploadResumeRequest{
		SeekerID: seekerID,
		ResumeID: resumeID,
		FilePath: filePath,
		FileName: file.Filename,
	})
	if err != nil {
		_ = h.fileSystem.DeleteFile(c.Context(), filePath)
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":    "Resume upload successful, indexing started",
		"job":        jobResponse,
		"status_url": fmt.Sprintf("/api/v1/records/ingest-jobs/%s", jobResponse.JobID),
	})
}

// IndexResume indexes resume text that the caller already extracted
// POST /api/v1/records/resumes
func (h *RecordHandlers) IndexResume(c *fiber.Ctx) error {
	var req record.IndexResumeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.SeekerID.IsEmpty() || req.ResumeID.IsEmpty() || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "seeker_id, resume_id and text are required",
		})
	}

	response, err := h.service.IndexResume(c.Context(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

// GetResumeRecord returns the stored record for a resume
// GET /api/v1/records/resumes/:resume_id
func (h *RecordHandlers) GetResumeRecord(c *fiber.Ctx) error {
	resumeID := kernel.ResumeID(c.Params("resume_id"))
	if resumeID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume ID",
		})
	}

	response, err := h.service.GetResumeRecord(c.Context(), resumeID)
	if err != nil {
		return err
	}
	return c.JSON(response)
}

// ReindexResume re-upserts the relational record into the vector index
// POST /api/v1/records/resumes/:resume_id/reindex
func (h *RecordHandlers) ReindexResume(c *fiber.Ctx) error {
	resumeID := kernel.ResumeID(c.Params("resume_id"))
	if resumeID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume ID",
		})
	}

	response, err := h.service.ReindexResume(c.Context(), resumeID)
	if err != nil {
		return err
	}
	return c.JSON(response)
}

// DeleteResume removes the record from both stores
// DELETE /api/v1/records/resumes/:resume_id
func (h *RecordHandlers) DeleteResume(c *fiber.Ctx) error {
	resumeID := kernel.ResumeID(c.Params("resume_id"))
	if resumeID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume ID",
		})
	}

	if err := h.service.DeleteResume(c.Context(), resumeID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "resume record deleted"})
}

// SetResumeActive flips the active flag (ban/unban)
// PUT /api/v1/records/resumes/:resume_id/active
func (h *RecordHandlers) SetResumeActive(c *fiber.Ctx) error {
	resumeID := kernel.ResumeID(c.Params("resume_id"))
	if resumeID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume ID",
		})
	}

	var req record.SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.service.SetResumeActive(c.Context(), resumeID, req.Active); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"resume_id": resumeID, "active": req.Active})
}

// AddAppliedJob records an application on the resume record
// POST /api/v1/records/resumes/:resume_id/applied
func (h *RecordHandlers) AddAppliedJob(c *fiber.Ctx) error {
	resumeID := kernel.ResumeID(c.Params("resume_id"))
	if resumeID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume ID",
		})
	}

	var req record.AppliedJobRequest
	if err := c.BodyParser(&req); err != nil || req.JobID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_id is required",
		})
	}

	if err := h.service.AddAppliedJob(c.Context(), resumeID, req.JobID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"resume_id": resumeID, "job_id": req.JobID})
}

// RemoveAppliedJob undoes AddAppliedJob after a withdrawal
// DELETE /api/v1/records/resumes/:resume_id/applied/:job_id
func (h *RecordHandlers) RemoveAppliedJob(c *fiber.Ctx) error {
	resumeID := kernel.ResumeID(c.Params("resume_id"))
	jobID := kernel.JobID(c.Params("job_id"))
	if resumeID.IsEmpty() || jobID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid resume or job ID",
		})
	}

	if err := h.service.RemoveAppliedJob(c.Context(), resumeID, jobID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"resume_id": resumeID, "job_id": jobID})
}

// ============================================================================
// Job records
// ============================================================================

// IndexJob indexes a job posting
// POST /api/v1/records/jobs
func (h *RecordHandlers) IndexJob(c *fiber.Ctx) error {
	var req record.IndexJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.CompanyID.IsEmpty() || req.JobID.IsEmpty() || req.Title == "" || req.Description == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "company_id, job_id, title and description are required",
		})
	}

	response, err := h.service.IndexJob(c.Context(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

// GetJobRecord returns the stored record for a job posting
// GET /api/v1/records/jobs/:job_id
func (h *RecordHandlers) GetJobRecord(c *fiber.Ctx) error {
	jobID := kernel.JobID(c.Params("job_id"))
	if jobID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job ID",
		})
	}

	response, err := h.service.GetJobRecord(c.Context(), jobID)
	if err != nil {
		return err
	}
	return c.JSON(response)
}

// ReindexJob is the job-side repair path
// POST /api/v1/records/jobs/:job_id/reindex
func (h *RecordHandlers) ReindexJob(c *fiber.Ctx) error {
	jobID := kernel.JobID(c.Params("job_id"))
	if jobID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job ID",
		})
	}

	response, err := h.service.ReindexJob(c.Context(), jobID)
	if err != nil {
		return err
	}
	return c.JSON(response)
}

// DeleteJob removes the job record from both stores
// DELETE /api/v1/records/jobs/:job_id
func (h *RecordHandlers) DeleteJob(c *fiber.Ctx) error {
	jobID := kernel.JobID(c.Params("job_id"))
	if jobID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job ID",
		})
	}

	if err := h.service.DeleteJob(c.Context(), jobID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "job record deleted"})
}

// SetJobActive flips the active flag (admin closure/reopen)
// PUT /api/v1/records/jobs/:job_id/active
func (h *RecordHandlers) SetJobActive(c *fiber.Ctx) error {
	jobID := kernel.JobID(c.Params("job_id"))
	if jobID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job ID",
		})
	}

	var req record.SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.service.SetJobActive(c.Context(), jobID, req.Active); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"job_id": jobID, "active": req.Active})
}

// ============================================================================
// Profile propagation & ingest tracking
// ============================================================================

// PropagateProfile pushes changed profile fields to all of the seeker's
// resume records
// POST /api/v1/records/profiles/propagate
func (h *RecordHandlers) PropagateProfile(c *fiber.Ctx) error {
	var req record.PropagateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.SeekerID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "seeker_id is required",
		})
	}

	result, err := h.service.PropagateSeekerProfile(c.Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetIngestStatus reports the state of one async ingest job
// GET /api/v1/records/ingest-jobs/:id
func (h *RecordHandlers) GetIngestStatus(c *fiber.Ctx) error {
	jobID := kernel.IndexJobID(c.Params("id"))
	if jobID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job ID",
		})
	}

	response, err := h.service.GetJobStatus(c.Context(), jobID)
	if err != nil {
		return err
	}
	return c.JSON(response)
}
