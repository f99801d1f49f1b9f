package matchapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/resumatch/resumatch/matching/match"
	"github.com/resumatch/resumatch/matching/match/matchsrv"
)

type MatchHandlers struct {
	service *matchsrv.Service
}

func NewMatchHandlers(service *matchsrv.Service) *MatchHandlers {
	return &MatchHandlers{service: service}
}

func (h *MatchHandlers) RegisterRoutes(app *fiber.App) {
	matches := app.Group("/api/v1/match")

	matches.Post("/jobs", h.MatchJobs)            // Jobs for a resume
	matches.Post("/applicants", h.RankApplicants) // Resumes for a job
	matches.Post("/search", h.SearchJobs)         // Free-text job search
}

// MatchJobs returns jobs ranked for an indexed resume. Applied jobs and any
// caller-listed ids never come back.
// POST /api/v1/match/jobs
func (h *MatchHandlers) MatchJobs(c *fiber.Ctx) error {
	var req match.MatchJobsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ResumeID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resume_id is required",
		})
	}

	resp, err := h.service.MatchJobsForResume(c.Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// RankApplicants returns resumes ranked for an indexed job posting.
// POST /api/v1/match/applicants
func (h *MatchHandlers) RankApplicants(c *fiber.Ctx) error {
	var req match.RankApplicantsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.JobID.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_id is required",
		})
	}

	resp, err := h.service.RankApplicantsForJob(c.Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// SearchJobs ranks jobs against free query text.
// POST /api/v1/match/search
func (h *MatchHandlers) SearchJobs(c *fiber.Ctx) error {
	var req match.SearchJobsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query is required",
		})
	}

	resp, err := h.service.SearchJobs(c.Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
