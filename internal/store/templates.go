package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/mail-templater/internal/models"
)

// ErrTemplateNotFound is returned when a template id has no row.
var ErrTemplateNotFound = errors.New("email template not found")

// TemplateRepository handles email template persistence.
type TemplateRepository struct {
	db *DB
}

// NewTemplateRepository creates a TemplateRepository.
func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a template and returns its assigned id.
func (r *TemplateRepository) Create(ctx context.Context, tmpl *models.Template) (int64, error) {
	if tmpl == nil {
		return 0, errors.New("store: template is required")
	}
	if tmpl.Title == "" {
		return 0, errors.New("store: template title is required")
	}

	res, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO email_templates (title, message, is_html) VALUES (?, ?, ?)`,
		tmpl.Title, tmpl.Message, boolToInt(tmpl.IsHTML))
	if err != nil {
		return 0, fmt.Errorf("store: insert template: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: template insert id: %w", err)
	}
	return id, nil
}

// GetByID fetches one template. Returns ErrTemplateNotFound when absent.
func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*models.Template, error) {
	row := r.db.sql.QueryRowContext(ctx,
		`SELECT id, title, message, is_html FROM email_templates WHERE id = ?`, id)

	var tmpl models.Template
	var isHTML int
	if err := row.Scan(&tmpl.ID, &tmpl.Title, &tmpl.Message, &isHTML); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("store: get template: %w", err)
	}
	tmpl.IsHTML = isHTML != 0

	return &tmpl, nil
}

// ExistsByID reports whether a template with the given id is stored.
func (r *TemplateRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	row := r.db.sql.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM email_templates WHERE id = ?)`, id)

	var exists int
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("store: template exists: %w", err)
	}
	return exists != 0, nil
}

// Update replaces the stored title/message/html flag of a template.
func (r *TemplateRepository) Update(ctx context.Context, tmpl *models.Template) error {
	if tmpl == nil {
		return errors.New("store: template is required")
	}

	res, err := r.db.sql.ExecContext(ctx,
		`UPDATE email_templates SET title = ?, message = ?, is_html = ? WHERE id = ?`,
		tmpl.Title, tmpl.Message, boolToInt(tmpl.IsHTML), tmpl.ID)
	if err != nil {
		return fmt.Errorf("store: update template: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update template rows: %w", err)
	}
	if affected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// Delete removes a template by id.
func (r *TemplateRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.sql.ExecContext(ctx, `DELETE FROM email_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete template: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete template rows: %w", err)
	}
	if affected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// List returns every stored template ordered by id.
func (r *TemplateRepository) List(ctx context.Context) ([]models.Template, error) {
	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT id, title, message, is_html FROM email_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list templates: %w", err)
	}
	defer rows.Close()

	var out []models.Template
	for rows.Next() {
		var tmpl models.Template
		var isHTML int
		if err := rows.Scan(&tmpl.ID, &tmpl.Title, &tmpl.Message, &isHTML); err != nil {
			return nil, fmt.Errorf("store: scan template: %w", err)
		}
		tmpl.IsHTML = isHTML != 0
		out = append(out, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate templates: %w", err)
	}

	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
