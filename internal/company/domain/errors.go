package domain

import "errors"

var (
	ErrNotFound  = errors.New("company_not_found")
	ErrInvalidID = errors.New("invalid_company_id")
)

// LastCompanyError is returned when deleting would leave no company.
type LastCompanyError struct {
	CompanyID string
}

func (e *LastCompanyError) Error() string {
	return "cannot delete company " + e.CompanyID + ": at least one company must remain"
}

// ErrLastCompany matches any *LastCompanyError with errors.Is.
var ErrLastCompany = errors.New("last_company")

func (e *LastCompanyError) Is(target error) bool {
	return target == ErrLastCompany
}
