package httpapi

import (
	"net/http"

	alertDomain "price-alert/internal/domain/alert"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError 將服務層錯誤轉為 HTTP 回應；儲存層細節只寫入 log。
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case alertDomain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
	default:
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("owner", currentUserID(c)),
			zap.Bool("storage", alertDomain.IsStorage(err)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error", "error_code": errCodeInternal})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg, "error_code": errCodeBadRequest})
}
