package match

import (
	"net/http"

	"github.com/resumatch/resumatch/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("MATCH")

var (
	CodeSourceNotFound     = ErrRegistry.Register("SOURCE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Source record not found, index it first")
	CodeSourceInactive     = ErrRegistry.Register("SOURCE_INACTIVE", errx.TypeBusiness, http.StatusUnprocessableEntity, "Source record is inactive and cannot be matched")
	CodeInvalidQuery       = ErrRegistry.Register("INVALID_QUERY", errx.TypeValidation, http.StatusBadRequest, "Invalid match query")
	CodeQueryFailed        = ErrRegistry.Register("QUERY_FAILED", errx.TypeExternal, http.StatusBadGateway, "Similarity query failed")
	CodeProviderFailed     = ErrRegistry.Register("PROVIDER_FAILED", errx.TypeExternal, http.StatusBadGateway, "Embedding provider call failed")
	CodeRankingUnavailable = ErrRegistry.Register("RANKING_UNAVAILABLE", errx.TypeExternal, http.StatusServiceUnavailable, "Matching is temporarily unavailable")
	CodeInconsistentState  = ErrRegistry.Register("INCONSISTENT_STATE", errx.TypeInternal, http.StatusInternalServerError, "Relational store and vector index disagree")
)

func ErrSourceNotFound() *errx.Error {
	return ErrRegistry.New(CodeSourceNotFound)
}

func ErrSourceInactive() *errx.Error {
	return ErrRegistry.New(CodeSourceInactive)
}

func ErrInvalidQuery() *errx.Error {
	return ErrRegistry.New(CodeInvalidQuery)
}

func ErrQueryFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeQueryFailed, cause)
}

func ErrProviderFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeProviderFailed, cause)
}

func ErrRankingUnavailable(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeRankingUnavailable, cause)
}

// ErrInconsistentState marks a candidate whose index payload disagrees with
// its relational row. It is logged per candidate during assembly, never
// raised to the caller.
func ErrInconsistentState() *errx.Error {
	return ErrRegistry.New(CodeInconsistentState)
}
