package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/rial-arbitrage-go/internal/utils"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: message})
}

// respondErr maps validation errors to 400 and anything else to 500.
func respondErr(c *gin.Context, err error, fallback string) {
	var ve *utils.ValidationError
	if errors.As(err, &ve) {
		respondError(c, http.StatusBadRequest, ve.Message)
		return
	}
	_ = c.Error(err)
	respondError(c, http.StatusInternalServerError, fallback)
}
