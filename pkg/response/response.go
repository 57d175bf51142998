package response

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"anoa.com/mindminer/pkg/apperror"
	"anoa.com/mindminer/pkg/validator"
	"github.com/gin-gonic/gin"
	playground "github.com/go-playground/validator/v10"
)

// GetWalletParam retrieves the wallet address from the ":wallet" route parameter
func GetWalletParam(c *gin.Context) (string, error) {
	wallet := strings.TrimSpace(c.Param("wallet"))
	if wallet == "" {
		return "", apperror.ErrInvalidInput
	}
	return wallet, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	var validationErrs playground.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(validationErrs)})
		return
	}

	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code >= http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}

// BadRequest writes a 400 for a request that failed binding or validation.
func BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
}
