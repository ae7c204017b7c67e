package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/mail-templater/internal/models"
)

// HistoryRepository persists sent-email outcomes and their categorized error
// records. Both tables are append-only.
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a HistoryRepository.
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// SaveError inserts one categorized error record and returns its id.
func (r *HistoryRepository) SaveError(ctx context.Context, rec *models.SendEmailError) (int64, error) {
	if rec == nil {
		return 0, errors.New("store: error record is required")
	}
	if rec.Timestamp.IsZero() {
		return 0, errors.New("store: error record timestamp is required")
	}

	res, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO send_email_errors
			(subject, message, sender_email, recipient_email, error, category, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Subject, rec.Message, rec.SenderEmail, rec.RecipientEmail,
		rec.Error, int64(rec.Category), formatTime(rec.Timestamp))
	if err != nil {
		return 0, fmt.Errorf("store: insert error record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: error record insert id: %w", err)
	}
	return id, nil
}

// SaveSentEmail inserts one delivery outcome and returns its id.
func (r *HistoryRepository) SaveSentEmail(ctx context.Context, rec *models.SentEmail) (int64, error) {
	if rec == nil {
		return 0, errors.New("store: sent email record is required")
	}
	if rec.Timestamp.IsZero() {
		return 0, errors.New("store: sent email timestamp is required")
	}

	var errorID any
	if rec.ErrorID != nil {
		errorID = *rec.ErrorID
	}

	res, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO sent_emails
			(email_template_id, sender_email, recipient_email, subject, message,
			 sent_successfully, confirmation_token, confirmation, send_email_error_id, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TemplateID, rec.SenderEmail, rec.RecipientEmail, rec.Subject, rec.Message,
		boolToInt(rec.SentSuccessfully), rec.ConfirmationToken, rec.Confirmation,
		errorID, formatTime(rec.Timestamp))
	if err != nil {
		return 0, fmt.Errorf("store: insert sent email: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: sent email insert id: %w", err)
	}
	return id, nil
}

// QuerySentEmails returns the sent-email history narrowed by the supplied
// filter, ordered by timestamp ascending. Failed outcomes carry the error
// message of their linked record.
func (r *HistoryRepository) QuerySentEmails(ctx context.Context, filter models.SentEmailFilter) ([]models.SentEmail, error) {
	var (
		conds []string
		args  []any
	)

	if filter.Subject != nil {
		conds = append(conds, "s.subject = ?")
		args = append(args, *filter.Subject)
	}
	if filter.SenderEmail != nil {
		conds = append(conds, "s.sender_email = ?")
		args = append(args, *filter.SenderEmail)
	}
	if filter.RecipientEmail != nil {
		conds = append(conds, "s.recipient_email = ?")
		args = append(args, *filter.RecipientEmail)
	}
	if filter.SentSuccessfully != nil {
		conds = append(conds, "s.sent_successfully = ?")
		args = append(args, boolToInt(*filter.SentSuccessfully))
	}
	if filter.Confirmation != nil {
		conds = append(conds, "s.confirmation = ?")
		args = append(args, *filter.Confirmation)
	}
	if filter.StartDate != nil {
		conds = append(conds, "s.timestamp >= ?")
		args = append(args, formatTime(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conds = append(conds, "s.timestamp <= ?")
		args = append(args, formatTime(*filter.EndDate))
	}

	query := `SELECT s.id, s.email_template_id, s.sender_email, s.recipient_email,
			s.subject, s.message, s.sent_successfully, s.confirmation_token,
			s.confirmation, s.send_email_error_id, s.timestamp, e.error
		FROM sent_emails s
		LEFT JOIN send_email_errors e ON e.id = s.send_email_error_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.timestamp ASC, s.id ASC"

	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query sent emails: %w", err)
	}
	defer rows.Close()

	var out []models.SentEmail
	for rows.Next() {
		var (
			rec      models.SentEmail
			sentOK   int
			errorID  sql.NullInt64
			ts       string
			errorMsg sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.TemplateID, &rec.SenderEmail, &rec.RecipientEmail,
			&rec.Subject, &rec.Message, &sentOK, &rec.ConfirmationToken,
			&rec.Confirmation, &errorID, &ts, &errorMsg); err != nil {
			return nil, fmt.Errorf("store: scan sent email: %w", err)
		}
		rec.SentSuccessfully = sentOK != 0
		if errorID.Valid {
			id := errorID.Int64
			rec.ErrorID = &id
		}
		if errorMsg.Valid {
			rec.ErrorMessage = errorMsg.String
		}
		parsed, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		rec.Timestamp = parsed
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate sent emails: %w", err)
	}

	return out, nil
}
