package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/contactdesk/backend/internal/common/db"
	"github.com/contactdesk/backend/internal/contact/domain"
)

// Contacts are append-only: created through a validated submission,
// never updated or deleted.
type Repository interface {
	Create(ctx context.Context, contact domain.Contact) error
	ListNewestFirst(ctx context.Context) ([]domain.Contact, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Create(ctx context.Context, contact domain.Contact) error {
	defer db.MeasureQuery("create_contact", "contacts", time.Now())

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO contacts (id, name, email, phone, message, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(contact.ID),
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Message,
		contact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (r *PgRepository) ListNewestFirst(ctx context.Context) ([]domain.Contact, error) {
	defer db.MeasureQuery("list_contacts", "contacts", time.Now())

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, name, email, phone, message, created_at
		 FROM contacts
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Message, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows iteration error: %w", rows.Err())
	}

	return contacts, nil
}
