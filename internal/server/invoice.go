package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	invoiceservice "github.com/smallbiznis/folio/internal/invoice/service"
)

type createInvoiceRequest struct {
	IssueDate       *string              `json:"issueDate"`
	PaymentTermDays *int                 `json:"paymentTermDays"`
	Client          invoicedomain.Client `json:"client"`
	LineItems       []lineItemRequest    `json:"lineItems"`
	Notes           string               `json:"notes"`
	Currency        string               `json:"currency"`
	TaxRate         amount               `json:"taxRate"`
}

type updateInvoiceRequest struct {
	Number          *string               `json:"number"`
	IssueDate       *string               `json:"issueDate"`
	PaymentTermDays *int                  `json:"paymentTermDays"`
	Client          *invoicedomain.Client `json:"client"`
	LineItems       []lineItemRequest     `json:"lineItems"`
	Notes           *string               `json:"notes"`
	Currency        *string               `json:"currency"`
	TaxRate         amount                `json:"taxRate"`
}

type updateInvoiceStatusRequest struct {
	Status string `json:"status"`
}

type renderBatchRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) ListInvoices(c *gin.Context) {
	status := invoicedomain.InvoiceStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	if status != "" && !status.Valid() {
		AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), scopedCompany(c).ID, invoiceservice.ListRequest{Status: status})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var amounts amountParser
	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		amounts.errs.Add("issueDate", "invalid_issue_date", "invalid issue date")
	}
	create := invoiceservice.CreateRequest{
		IssueDate:       issueDate,
		PaymentTermDays: req.PaymentTermDays,
		Client:          req.Client,
		LineItems:       amounts.lineItems(req.LineItems),
		Notes:           req.Notes,
		Currency:        req.Currency,
		TaxRate:         amounts.optional("taxRate", req.TaxRate),
	}
	if err := amounts.Err(); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), scopedCompany(c).ID, create)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetInvoice(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	resp, err := s.invoiceSvc.View(c.Request.Context(), scopedCompany(c).ID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	var amounts amountParser
	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		amounts.errs.Add("issueDate", "invalid_issue_date", "invalid issue date")
	}
	update := invoiceservice.UpdateRequest{
		Number:          req.Number,
		IssueDate:       issueDate,
		PaymentTermDays: req.PaymentTermDays,
		Client:          req.Client,
		LineItems:       amounts.lineItems(req.LineItems),
		Notes:           req.Notes,
		Currency:        req.Currency,
		TaxRate:         amounts.optional("taxRate", req.TaxRate),
	}
	if err := amounts.Err(); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), scopedCompany(c).ID, id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoiceStatus(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req updateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	status := invoicedomain.InvoiceStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
		return
	}

	resp, err := s.invoiceSvc.UpdateStatus(c.Request.Context(), scopedCompany(c).ID, id, status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	if err := s.invoiceSvc.Delete(c.Request.Context(), scopedCompany(c).ID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) DuplicateInvoice(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	resp, err := s.invoiceSvc.Duplicate(c.Request.Context(), scopedCompany(c).ID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RenderInvoice(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	company := scopedCompany(c)
	inv, err := s.invoiceSvc.Get(c.Request.Context(), company.ID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out, err := s.renderer.Render(c.Request.Context(), *inv, *company)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writePDF(c, "invoice-"+inv.Number, out)
}

func (s *Server) RenderInvoiceBatch(c *gin.Context) {
	var req renderBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	company := scopedCompany(c)
	invoices := make([]invoicedomain.Invoice, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, ok := parseID(raw)
		if !ok {
			AbortWithError(c, newValidationError("ids", "invalid_id", "invalid id"))
			return
		}
		inv, err := s.invoiceSvc.Get(c.Request.Context(), company.ID, id)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		invoices = append(invoices, *inv)
	}

	out, err := s.renderer.RenderBatch(c.Request.Context(), invoices, *company)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writePDF(c, "invoices-"+s.clock.Now().UTC().Format(dateOnlyLayout), out)
}

func (s *Server) InvoiceReceipt(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	company := scopedCompany(c)
	inv, err := s.invoiceSvc.Get(c.Request.Context(), company.ID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out, err := s.receipts.GenerateReceipt(c.Request.Context(), *inv, *company)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writePDF(c, "receipt-"+inv.Number, out)
}

func (s *Server) RunReminders(c *gin.Context) {
	resp, err := s.invoiceSvc.Reminders(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func writePDF(c *gin.Context, name string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", slug.Make(name)+".pdf"))
	c.Data(http.StatusOK, "application/pdf", body)
}
