package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/fleetpay/fleetpay/internal/apierror"
	"github.com/fleetpay/fleetpay/model"
)

// InsertPaymentsBatch writes a batch of payments inside a single
// transaction. Either every payment in the batch lands or none does;
// callers isolate partial failures by splitting their input into batches.
// Returns the number of payments written.
func (d Datasource) InsertPaymentsBatch(ctx context.Context, tenantID string, payments []*model.Payment) (int, error) {
	ctx, span := otel.Tracer("Payments").Start(ctx, "Saving payment batch to db")
	defer span.End()

	if len(payments) == 0 {
		return 0, nil
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO payments (payment_id, tenant_id, payment_number, amount, payment_date, payment_method, transaction_type, customer_id, contract_id, agreement_number, notes, meta_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to prepare payment insert", err)
	}
	defer stmt.Close()

	for _, payment := range payments {
		if payment.PaymentID == "" {
			payment.PaymentID = model.GenerateUUIDWithSuffix("pay")
		}
		payment.TenantID = tenantID
		if payment.CreatedAt.IsZero() {
			payment.CreatedAt = time.Now()
		}

		metaDataJSON, err := json.Marshal(payment.MetaData)
		if err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
		}

		_, err = stmt.ExecContext(ctx,
			payment.PaymentID, payment.TenantID, nullString(payment.PaymentNumber), payment.Amount,
			payment.PaymentDate, payment.PaymentMethod, payment.TransactionType,
			nullString(payment.CustomerID), nullString(payment.ContractID),
			nullString(payment.AgreementNumber), nullString(payment.Notes), metaDataJSON, payment.CreatedAt,
		)
		if err != nil {
			pqErr, ok := err.(*pq.Error)
			if ok {
				switch pqErr.Code.Name() {
				case "unique_violation":
					return 0, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Payment with ID '%s' already exists", payment.PaymentID), err)
				case "foreign_key_violation":
					return 0, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Payment '%s' references an unknown customer or contract", payment.PaymentID), err)
				default:
					return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
				}
			}
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert payment", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit payment batch", err)
	}

	return len(payments), nil
}

// UpdatePaymentLinks attaches a payment to a customer and contract.
func (d Datasource) UpdatePaymentLinks(ctx context.Context, tenantID, paymentID, customerID, contractID string) error {
	ctx, span := otel.Tracer("Payments").Start(ctx, "Updating payment links")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE payments
		SET customer_id = $3, contract_id = $4
		WHERE tenant_id = $1 AND payment_id = $2
	`, tenantID, paymentID, nullString(customerID), nullString(contractID))
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "foreign_key_violation" {
			return apierror.NewAPIError(apierror.ErrBadRequest, "Link target does not exist", err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update payment links", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payment '%s' not found for tenant", paymentID), nil)
	}

	return nil
}

// GetUnlinkedPayments retrieves a page of payments with no customer
// attached, oldest first. The linking engine pages through this set.
func (d Datasource) GetUnlinkedPayments(ctx context.Context, tenantID string, limit, offset int) ([]*model.Payment, error) {
	ctx, span := otel.Tracer("Payments").Start(ctx, "Fetching unlinked payments")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, payment_id, tenant_id, payment_number, amount, payment_date, payment_method, transaction_type, customer_id, contract_id, agreement_number, notes, reconciliation_status, meta_data, created_at
		FROM payments
		WHERE tenant_id = $1 AND customer_id IS NULL
		ORDER BY id
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payments", err)
	}
	defer rows.Close()

	payments := []*model.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payment data", err)
		}
		payments = append(payments, payment)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over payments", err)
	}

	return payments, nil
}

// GetAllPayments retrieves a page of payments across all tenants,
// ordered by insertion.
func (d Datasource) GetAllPayments(ctx context.Context, limit, offset int) ([]*model.Payment, error) {
	ctx, span := otel.Tracer("Payments").Start(ctx, "Fetching payments with pagination")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, payment_id, tenant_id, payment_number, amount, payment_date, payment_method, transaction_type, customer_id, contract_id, agreement_number, notes, reconciliation_status, meta_data, created_at
		FROM payments
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payments", err)
	}
	defer rows.Close()

	payments := []*model.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payment data", err)
		}
		payments = append(payments, payment)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over payments", err)
	}

	return payments, nil
}

// GetPayment retrieves a single payment by its public ID.
func (d Datasource) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	ctx, span := otel.Tracer("Payments").Start(ctx, "Fetching payment from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, payment_id, tenant_id, payment_number, amount, payment_date, payment_method, transaction_type, customer_id, contract_id, agreement_number, notes, reconciliation_status, meta_data, created_at
		FROM payments
		WHERE payment_id = $1
	`, id)

	payment, err := scanPayment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Payment not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payment", err)
	}

	return payment, nil
}

// GetLastPaymentNumber returns the payment number of the most recently
// inserted payment for a tenant, or the empty string when the tenant has
// no numbered payments yet. Import runs seed their in-memory counter from
// this once per run.
func (d Datasource) GetLastPaymentNumber(ctx context.Context, tenantID string) (string, error) {
	ctx, span := otel.Tracer("Payments").Start(ctx, "Fetching last payment number")
	defer span.End()

	var number sql.NullString
	err := d.Conn.QueryRowContext(ctx, `
		SELECT payment_number
		FROM payments
		WHERE tenant_id = $1 AND payment_number IS NOT NULL
		ORDER BY id DESC
		LIMIT 1
	`, tenantID).Scan(&number)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve last payment number", err)
	}

	return number.String, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*model.Payment, error) {
	payment := model.Payment{}
	var paymentNumber, customerID, contractID, agreementNumber, notes, reconciliationStatus sql.NullString
	var metaDataJSON []byte

	err := row.Scan(&payment.ID, &payment.PaymentID, &payment.TenantID, &paymentNumber, &payment.Amount,
		&payment.PaymentDate, &payment.PaymentMethod, &payment.TransactionType,
		&customerID, &contractID, &agreementNumber, &notes, &reconciliationStatus, &metaDataJSON, &payment.CreatedAt)
	if err != nil {
		return nil, err
	}

	payment.PaymentNumber = paymentNumber.String
	payment.CustomerID = customerID.String
	payment.ContractID = contractID.String
	payment.AgreementNumber = agreementNumber.String
	payment.Notes = notes.String
	payment.ReconciliationStatus = reconciliationStatus.String

	if len(metaDataJSON) > 0 {
		err = json.Unmarshal(metaDataJSON, &payment.MetaData)
		if err != nil {
			return nil, err
		}
	}

	return &payment, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
