package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/restokit/restaurant-billing/internal/domain"
)

// PaymentFilter captures ledger listing parameters.
type PaymentFilter struct {
	Status         *domain.PaymentStatus
	Type           *domain.PaymentType
	ReferenceMonth *string
	ClientID       *string
}

// PaymentSettlement carries the facts recorded when a payment is marked paid.
// Nil ReceiptNumber or Notes keep the stored values.
type PaymentSettlement struct {
	Method        domain.PaymentMethod
	PaidDate      time.Time
	ReceiptNumber *string
	Notes         *string
}

// PaymentRepository encapsulates payment persistence.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	// CreateMonthlyIfAbsent inserts a MONTHLY payment unless one already exists
	// for the same client and reference month. It reports whether a row was written.
	CreateMonthlyIfAbsent(ctx context.Context, payment *domain.Payment) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]domain.PaymentWithClient, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Payment, error)
	ListOpenByClient(ctx context.Context, clientID string) ([]domain.Payment, error)
	// NextOpenByClients returns, per client, the earliest-due PENDING or OVERDUE payment.
	NextOpenByClients(ctx context.Context, clientIDs []string) (map[string]domain.Payment, error)
	// UpdateOpenTerms rewrites amount and due date only while the payment is
	// still PENDING or OVERDUE; otherwise it returns ErrStateChanged.
	UpdateOpenTerms(ctx context.Context, id string, amount *decimal.Decimal, dueDate *time.Time) error
	// MarkPaid settles a payment that is not PAID yet; a PAID one yields ErrStateChanged.
	MarkPaid(ctx context.Context, id string, settlement PaymentSettlement) (*domain.Payment, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	DeleteByClient(ctx context.Context, clientID string) (int64, error)
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository instantiates repository.
func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

const paymentColumns = `p.id, p.client_id, p.client_name, p.client_email, p.amount::text, p.due_date, p.type, p.status,
    p.description, p.reference_month, p.payment_method, p.paid_date, p.receipt_number, p.notes, p.created_at, p.updated_at`

const insertPayment = `
    INSERT INTO payments (client_id, client_name, client_email, amount, due_date, type, status, description, reference_month, notes)
    VALUES ($1,$2,$3,$4::numeric,$5,$6,$7,$8,$9,$10)`

func paymentInsertArgs(p *domain.Payment) []any {
	return []any{
		p.ClientID,
		p.ClientName,
		p.ClientEmail,
		p.Amount.String(),
		p.DueDate,
		p.Type,
		p.Status,
		p.Description,
		p.ReferenceMonth,
		p.Notes,
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := insertPayment + ` RETURNING id, created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query, paymentInsertArgs(payment)...).
		Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	return mapError(err)
}

func (r *paymentRepository) CreateMonthlyIfAbsent(ctx context.Context, payment *domain.Payment) (bool, error) {
	if payment.Type != domain.PaymentTypeMonthly || payment.ReferenceMonth == nil {
		return false, fmt.Errorf("monthly payment with reference month required")
	}
	query := insertPayment + `
        ON CONFLICT (client_id, reference_month) WHERE type = 'MONTHLY' DO NOTHING
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query, paymentInsertArgs(payment)...).
		Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err)
	}
	return true, nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.id=$1`
	payment, err := scanPayment(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return payment, nil
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentFilter) ([]domain.PaymentWithClient, error) {
	base := `SELECT ` + paymentColumns + `, u.id, u.name, u.email, u.active
             FROM payments p JOIN users u ON u.id = p.client_id`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("p.status=$%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("p.type=$%d", len(args)))
	}
	if filter.ReferenceMonth != nil {
		args = append(args, *filter.ReferenceMonth)
		clauses = append(clauses, fmt.Sprintf("p.reference_month=$%d", len(args)))
	}
	if filter.ClientID != nil {
		if _, err := uuid.Parse(*filter.ClientID); err != nil {
			return []domain.PaymentWithClient{}, nil
		}
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("p.client_id=$%d", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY p.due_date DESC, p.created_at DESC`, base, strings.Join(clauses, " AND "))

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.PaymentWithClient
	for rows.Next() {
		var item domain.PaymentWithClient
		var amount string
		dest := append(paymentScanTargets(&item.Payment, &amount),
			&item.Client.ID,
			&item.Client.Name,
			&item.Client.Email,
			&item.Client.Active,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if item.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		result = append(result, item)
	}
	return result, mapError(rows.Err())
}

func (r *paymentRepository) ListByClient(ctx context.Context, clientID string) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.client_id=$1 ORDER BY p.due_date DESC`
	return r.list(ctx, query, clientID)
}

func (r *paymentRepository) ListOpenByClient(ctx context.Context, clientID string) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p
        WHERE p.client_id=$1 AND p.status IN ('PENDING','OVERDUE')
        ORDER BY p.due_date ASC`
	return r.list(ctx, query, clientID)
}

func (r *paymentRepository) NextOpenByClients(ctx context.Context, clientIDs []string) (map[string]domain.Payment, error) {
	result := make(map[string]domain.Payment, len(clientIDs))
	if len(clientIDs) == 0 {
		return result, nil
	}
	query := `SELECT DISTINCT ON (p.client_id) ` + paymentColumns + ` FROM payments p
        WHERE p.client_id = ANY($1::uuid[]) AND p.status IN ('PENDING','OVERDUE')
        ORDER BY p.client_id, p.due_date ASC`

	payments, err := r.list(ctx, query, clientIDs)
	if err != nil {
		return nil, err
	}
	for _, payment := range payments {
		result[payment.ClientID] = payment
	}
	return result, nil
}

func (r *paymentRepository) UpdateOpenTerms(ctx context.Context, id string, amount *decimal.Decimal, dueDate *time.Time) error {
	const query = `
        UPDATE payments SET amount=COALESCE($1::numeric, amount), due_date=COALESCE($2, due_date), updated_at=NOW()
        WHERE id=$3 AND status IN ('PENDING','OVERDUE')`

	var amountArg *string
	if amount != nil {
		s := amount.String()
		amountArg = &s
	}
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, amountArg, dueDate, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrStateChanged
	}
	return nil
}

func (r *paymentRepository) MarkPaid(ctx context.Context, id string, settlement PaymentSettlement) (*domain.Payment, error) {
	query := `
        UPDATE payments p SET status='PAID', payment_method=$1, paid_date=$2,
            receipt_number=COALESCE($3, p.receipt_number), notes=COALESCE($4, p.notes), updated_at=NOW()
        WHERE p.id=$5 AND p.status <> 'PAID'
        RETURNING ` + paymentColumns

	payment, err := scanPayment(conn(ctx, r.pool).QueryRow(ctx, query,
		settlement.Method,
		settlement.PaidDate,
		settlement.ReceiptNumber,
		settlement.Notes,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStateChanged
	}
	if err != nil {
		return nil, mapError(err)
	}
	return payment, nil
}

func (r *paymentRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	const query = `
        UPDATE payments SET status='OVERDUE', updated_at=NOW()
        WHERE status='PENDING' AND due_date < $1`

	cmd, err := conn(ctx, r.pool).Exec(ctx, query, now)
	if err != nil {
		return 0, mapError(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *paymentRepository) DeleteByClient(ctx context.Context, clientID string) (int64, error) {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM payments WHERE client_id=$1`, clientID)
	if err != nil {
		return 0, mapError(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *paymentRepository) list(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *payment)
	}
	return result, mapError(rows.Err())
}

func paymentScanTargets(p *domain.Payment, amount *string) []any {
	return []any{
		&p.ID,
		&p.ClientID,
		&p.ClientName,
		&p.ClientEmail,
		amount,
		&p.DueDate,
		&p.Type,
		&p.Status,
		&p.Description,
		&p.ReferenceMonth,
		&p.PaymentMethod,
		&p.PaidDate,
		&p.ReceiptNumber,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var payment domain.Payment
	var amount string
	if err := row.Scan(paymentScanTargets(&payment, &amount)...); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	payment.Amount = parsed
	return &payment, nil
}
