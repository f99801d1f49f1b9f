package record

import (
	"net/http"

	"github.com/resumatch/resumatch/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("RECORD")

// Error codes - Record Operations
var (
	CodeRecordNotFound    = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Embedding record not found")
	CodeRecordExists      = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "Embedding record already exists for this source")
	CodeIncompleteProfile = ErrRegistry.Register("INCOMPLETE_PROFILE", errx.TypeValidation, http.StatusUnprocessableEntity, "Profile is missing fields required for matching")
	CodeInvalidRecordData = ErrRegistry.Register("INVALID_DATA", errx.TypeValidation, http.StatusBadRequest, "Invalid embedding record data")
	CodeProviderFailed    = ErrRegistry.Register("PROVIDER_FAILED", errx.TypeExternal, http.StatusBadGateway, "Embedding provider call failed")
	CodeIndexWriteFailed  = ErrRegistry.Register("INDEX_WRITE_FAILED", errx.TypeExternal, http.StatusBadGateway, "Vector index write failed")
	CodeIndexReadFailed   = ErrRegistry.Register("INDEX_READ_FAILED", errx.TypeExternal, http.StatusBadGateway, "Vector index read failed")
	CodeStoreFailed       = ErrRegistry.Register("STORE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Relational store operation failed")
	CodeExtractFailed     = ErrRegistry.Register("EXTRACT_FAILED", errx.TypeValidation, http.StatusBadRequest, "Could not extract text from document")
	CodeFileReadFailed    = ErrRegistry.Register("FILE_READ_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to read uploaded file")
	CodeSourceNotFound    = ErrRegistry.Register("SOURCE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Source document or owner not found")
)

// Error codes - Indexing Job Operations
var (
	CodeJobNotFound        = ErrRegistry.Register("JOB_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Indexing job not found")
	CodeJobMaxRetries      = ErrRegistry.Register("JOB_MAX_RETRIES", errx.TypeInternal, http.StatusInternalServerError, "Indexing job exceeded maximum retry attempts")
	CodeQueueEnqueueFailed = ErrRegistry.Register("QUEUE_ENQUEUE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to enqueue indexing job")
	CodeQueueDequeueFailed = ErrRegistry.Register("QUEUE_DEQUEUE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to dequeue indexing job")
	CodeJobUpdateFailed    = ErrRegistry.Register("JOB_UPDATE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to update indexing job status")
)

// Helper functions - Record Operations
func ErrRecordNotFound() *errx.Error {
	return ErrRegistry.New(CodeRecordNotFound)
}

func ErrRecordExists() *errx.Error {
	return ErrRegistry.New(CodeRecordExists)
}

func ErrIncompleteProfile() *errx.Error {
	return ErrRegistry.New(CodeIncompleteProfile)
}

func ErrInvalidRecordData() *errx.Error {
	return ErrRegistry.New(CodeInvalidRecordData)
}

func ErrProviderFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeProviderFailed, cause)
}

func ErrIndexWriteFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeIndexWriteFailed, cause)
}

func ErrIndexReadFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeIndexReadFailed, cause)
}

func ErrStoreFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeStoreFailed, cause)
}

func ErrExtractFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeExtractFailed, cause)
}

func ErrFileReadFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeFileReadFailed, cause)
}

func ErrSourceNotFound() *errx.Error {
	return ErrRegistry.New(CodeSourceNotFound)
}

// Helper functions - Indexing Job Operations
func ErrJobNotFound() *errx.Error {
	return ErrRegistry.New(CodeJobNotFound)
}

func ErrJobMaxRetries() *errx.Error {
	return ErrRegistry.New(CodeJobMaxRetries)
}

func ErrQueueEnqueueFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeQueueEnqueueFailed, cause)
}

func ErrQueueDequeueFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeQueueDequeueFailed, cause)
}

func ErrJobUpdateFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeJobUpdateFailed, cause)
}
