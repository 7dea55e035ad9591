package model

type Lead struct {
	ID                   int64   `json:"id" db:"id"`
	FullName             string  `json:"full_name" db:"full_name"`
	CompanyName          *string `json:"company_name" db:"company_name"`
	EmailAddress         *string `json:"email_address" db:"email_address"`
	ContactNumber        *string `json:"contact_number" db:"contact_number"`
	Status               string  `json:"status" db:"status"`
	LeadType             string  `json:"lead_type" db:"lead_type"`
	AssignedSalesStaffID *int64  `json:"assigned_sales_staff" db:"assigned_sales_staff_id"`
}

func (l *Lead) Snapshot() *LeadSnapshot {
	return &LeadSnapshot{
		ID:            l.ID,
		FullName:      l.FullName,
		CompanyName:   l.CompanyName,
		EmailAddress:  l.EmailAddress,
		ContactNumber: l.ContactNumber,
		Status:        l.Status,
		LeadType:      l.LeadType,
	}
}
