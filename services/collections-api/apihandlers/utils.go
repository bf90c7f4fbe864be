package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/runner"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/schema"
	jwthandling "github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/jwt-handling"
)

func validatedToken(c *gin.Context) *jwthandling.CollectionUserClaims {
	return c.MustGet("validatedToken").(*jwthandling.CollectionUserClaims)
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	var (
		stateErr      *runner.InvalidStateError
		validationErr *runner.ValidationFailedError
		treeErr       *schema.TreeError
		dependencyErr *schema.DependencyError
		referenceErr  *schema.InvalidExpressionReferenceError
		duplicateErr  *schema.DuplicateManagedExpressionError
	)
	switch {
	case errors.Is(err, collections.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &stateErr):
		return http.StatusConflict
	case errors.As(err, &validationErr),
		errors.As(err, &treeErr),
		errors.As(err, &dependencyErr),
		errors.As(err, &referenceErr),
		errors.As(err, &duplicateErr),
		errors.Is(err, collections.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(c *gin.Context, err error, msg string, attrs ...any) {
	status := errorStatus(err)
	attrs = append(attrs, slog.String("error", err.Error()))
	if status == http.StatusInternalServerError {
		slog.Error(msg, attrs...)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	slog.Debug(msg, attrs...)

	var validationErr *runner.ValidationFailedError
	if errors.As(err, &validationErr) {
		c.JSON(status, gin.H{
			"error":      validationErr.Message,
			"questionID": validationErr.QuestionID.Hex(),
		})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// optionalIndex reads the add-another index from the query, nil when absent.
func optionalIndex(c *gin.Context) (*int, error) {
	raw := c.Query("index")
	if raw == "" {
		return nil, nil
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &index, nil
}
