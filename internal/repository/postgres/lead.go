package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/repository"
)

type leadRepository struct {
	BaseRepository
}

func NewLeadRepository(base BaseRepository) repository.LeadRepository {
	return &leadRepository{base}
}

func (r *leadRepository) Create(ctx context.Context, l *model.Lead) error {
	query := `
		INSERT INTO leads (
			full_name, company_name, email_address, contact_number, status, lead_type,
			assigned_sales_staff_id
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, r.q(query),
		l.FullName,
		l.CompanyName,
		l.EmailAddress,
		l.ContactNumber,
		l.Status,
		l.LeadType,
		l.AssignedSalesStaffID,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

func (r *leadRepository) Get(ctx context.Context, id int64) (*model.Lead, error) {
	query := `
		SELECT id, full_name, company_name, email_address, contact_number, status, lead_type,
			assigned_sales_staff_id
		FROM leads
		WHERE id = ?
	`
	var l model.Lead
	if err := r.db.GetContext(ctx, &l, r.q(query), id); err != nil {
		return nil, notFoundOr(err, "get lead")
	}
	return &l, nil
}
