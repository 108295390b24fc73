package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/resolvehq/resolve/internal/models"
)

type ComplaintRepository interface {
	Create(ctx context.Context, c *models.Complaint) error
	// GetByID returns (nil, nil) when no complaint exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	ListAll(ctx context.Context) ([]*models.Complaint, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Complaint, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ComplaintStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type complaintRepo struct {
	db DB
}

func NewComplaintRepository(db DB) ComplaintRepository {
	return &complaintRepo{db: db}
}

const baseSelectComplaint = `
	SELECT id, title, description, category, priority, status, submitted_by, submitted_at
	FROM complaints
`

func (r *complaintRepo) Create(ctx context.Context, c *models.Complaint) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO complaints (id, title, description, category, priority, status, submitted_by, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		c.ID, c.Title, c.Description, c.Category, c.Priority, c.Status, c.SubmittedBy, c.SubmittedAt,
	)
	return err
}

func (r *complaintRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	row := r.db.QueryRow(ctx, baseSelectComplaint+" WHERE id=$1", id)
	c, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *complaintRepo) ListAll(ctx context.Context) ([]*models.Complaint, error) {
	rows, err := r.db.Query(ctx, baseSelectComplaint+" ORDER BY submitted_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectComplaints(rows)
}

func (r *complaintRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Complaint, error) {
	rows, err := r.db.Query(ctx, baseSelectComplaint+" WHERE submitted_by=$1 ORDER BY submitted_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectComplaints(rows)
}

func (r *complaintRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ComplaintStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE complaints SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *complaintRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM complaints WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanComplaint(row pgx.Row) (*models.Complaint, error) {
	var c models.Complaint
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.Priority, &c.Status, &c.SubmittedBy, &c.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectComplaints(rows pgx.Rows) ([]*models.Complaint, error) {
	complaints := make([]*models.Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		complaints = append(complaints, c)
	}
	return complaints, rows.Err()
}
