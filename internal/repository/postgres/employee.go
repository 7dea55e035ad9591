package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/repository"
)

type employeeRepository struct {
	BaseRepository
}

func NewEmployeeRepository(base BaseRepository) repository.EmployeeRepository {
	return &employeeRepository{base}
}

func (r *employeeRepository) Create(ctx context.Context, e *model.Employee) error {
	query := `
		INSERT INTO employees (
			email, first_name, last_name, password_hash, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	now := time.Now().UTC()
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))
	e.CreatedAt = now
	e.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, r.q(query),
		e.Email,
		e.FirstName,
		e.LastName,
		e.PasswordHash,
		e.IsActive,
		e.CreatedAt,
		e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

func (r *employeeRepository) Get(ctx context.Context, id int64) (*model.Employee, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, is_active, created_at, updated_at
		FROM employees
		WHERE id = ?
	`
	var e model.Employee
	if err := r.db.GetContext(ctx, &e, r.q(query), id); err != nil {
		return nil, notFoundOr(err, "get employee")
	}
	return &e, nil
}

func (r *employeeRepository) GetByEmail(ctx context.Context, email string) (*model.Employee, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, is_active, created_at, updated_at
		FROM employees
		WHERE email = ?
	`
	var e model.Employee
	if err := r.db.GetContext(ctx, &e, r.q(query), strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, notFoundOr(err, "get employee by email")
	}
	return &e, nil
}
