package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/folio/internal/companyctx"
	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	"go.uber.org/zap"
)

const (
	HeaderCompany     = "X-Company-ID"
	contextCompanyKey = "company"
)

// CompanyScope resolves the company a request operates on: the X-Company-ID
// header, else the company_id query parameter, else the active company.
func (s *Server) CompanyScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderCompany))
		if raw == "" {
			raw = strings.TrimSpace(c.Query("company_id"))
		}

		requested := ""
		if raw != "" {
			id, ok := companyctx.ParseCompanyID(raw)
			if !ok {
				AbortWithError(c, newValidationError("company_id", "invalid_company_id", "invalid company id"))
				return
			}
			requested = id
		}

		company, err := s.companySvc.Resolve(c.Request.Context(), requested)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(companyctx.WithCompanyID(c.Request.Context(), company.ID))
		c.Set(contextCompanyKey, company)
		c.Next()
	}
}

func scopedCompany(c *gin.Context) *companydomain.Company {
	v, ok := c.Get(contextCompanyKey)
	if !ok {
		return nil
	}
	company, _ := v.(*companydomain.Company)
	return company
}

// RenderRateLimit throttles PDF endpoints per company. Limiter failures are
// logged and the request goes through.
func (s *Server) RenderRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}
		companyID, _ := companyctx.CompanyIDFromContext(c.Request.Context())
		res, err := s.limiter.AllowRender(c.Request.Context(), companyID)
		if err != nil {
			s.log.Warn("render rate limit check failed", zap.String("company_id", companyID), zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
