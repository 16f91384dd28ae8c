package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HandleValidateCustomer answers the payment network's pre-payment check:
// existence, activity, and the outstanding balance breakdown.
func (s *Server) HandleValidateCustomer(c *gin.Context) {
	accountNumber := strings.TrimSpace(c.Param("account_number"))

	result, err := s.customerSvc.Validate(c.Request.Context(), accountNumber)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
