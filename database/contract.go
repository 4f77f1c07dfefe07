package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/fleetpay/fleetpay/internal/apierror"
	"github.com/fleetpay/fleetpay/model"
)

// CreateContract inserts a new contract record into the database.
func (d Datasource) CreateContract(ctx context.Context, contract model.Contract) (model.Contract, error) {
	ctx, span := otel.Tracer("Contracts").Start(ctx, "Saving contract to db")
	defer span.End()

	if contract.ContractID == "" {
		contract.ContractID = model.GenerateUUIDWithSuffix("ctr")
	}
	if contract.Status == "" {
		contract.Status = "active"
	}
	contract.CreatedAt = time.Now()

	endDate := sql.NullTime{Time: contract.EndDate, Valid: !contract.EndDate.IsZero()}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO contracts (contract_id, tenant_id, contract_number, customer_id, monthly_amount, contract_amount, status, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, contract.ContractID, contract.TenantID, contract.ContractNumber, contract.CustomerID,
		contract.MonthlyAmount, contract.ContractAmount, contract.Status, contract.StartDate, endDate, contract.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Contract{}, apierror.NewAPIError(apierror.ErrConflict, "Contract with this ID already exists", err)
			case "foreign_key_violation":
				return model.Contract{}, apierror.NewAPIError(apierror.ErrBadRequest, "Customer does not exist", err)
			default:
				return model.Contract{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Contract{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create contract", err)
	}

	return contract, nil
}

// GetActiveContractsByTenant retrieves every contract for a tenant whose
// status is active. The linking engine works off this set.
func (d Datasource) GetActiveContractsByTenant(ctx context.Context, tenantID string) ([]*model.Contract, error) {
	ctx, span := otel.Tracer("Contracts").Start(ctx, "Fetching active contracts by tenant")
	defer span.End()

	cacheKey := fmt.Sprintf("contracts:active:%s", tenantID)
	if d.Cache != nil {
		var cached []*model.Contract
		if err := d.Cache.Get(ctx, cacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, contract_id, tenant_id, contract_number, customer_id, monthly_amount, contract_amount, status, start_date, end_date, created_at
		FROM contracts
		WHERE tenant_id = $1 AND status = 'active'
		ORDER BY id
	`, tenantID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve contracts", err)
	}
	defer rows.Close()

	contracts := []*model.Contract{}
	for rows.Next() {
		contract := model.Contract{}
		var endDate sql.NullTime
		err = rows.Scan(&contract.ID, &contract.ContractID, &contract.TenantID, &contract.ContractNumber,
			&contract.CustomerID, &contract.MonthlyAmount, &contract.ContractAmount, &contract.Status,
			&contract.StartDate, &endDate, &contract.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan contract data", err)
		}
		if endDate.Valid {
			contract.EndDate = endDate.Time
		}
		contracts = append(contracts, &contract)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over contracts", err)
	}

	if d.Cache != nil && len(contracts) > 0 {
		if err := d.Cache.Set(ctx, cacheKey, contracts, 5*time.Minute); err != nil {
			log.Printf("Failed to cache contracts: %v", err)
		}
	}

	return contracts, nil
}

// GetAllContracts retrieves a page of contracts across all tenants,
// ordered by insertion.
func (d Datasource) GetAllContracts(ctx context.Context, limit, offset int) ([]*model.Contract, error) {
	ctx, span := otel.Tracer("Contracts").Start(ctx, "Fetching contracts with pagination")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, contract_id, tenant_id, contract_number, customer_id, monthly_amount, contract_amount, status, start_date, end_date, created_at
		FROM contracts
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve contracts", err)
	}
	defer rows.Close()

	contracts := []*model.Contract{}
	for rows.Next() {
		contract := model.Contract{}
		var endDate sql.NullTime
		err = rows.Scan(&contract.ID, &contract.ContractID, &contract.TenantID, &contract.ContractNumber,
			&contract.CustomerID, &contract.MonthlyAmount, &contract.ContractAmount, &contract.Status,
			&contract.StartDate, &endDate, &contract.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan contract data", err)
		}
		if endDate.Valid {
			contract.EndDate = endDate.Time
		}
		contracts = append(contracts, &contract)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over contracts", err)
	}

	return contracts, nil
}

// GetContractByID retrieves a single contract by its public ID.
func (d Datasource) GetContractByID(ctx context.Context, id string) (*model.Contract, error) {
	ctx, span := otel.Tracer("Contracts").Start(ctx, "Fetching contract from db")
	defer span.End()

	contract := model.Contract{}
	var endDate sql.NullTime
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, contract_id, tenant_id, contract_number, customer_id, monthly_amount, contract_amount, status, start_date, end_date, created_at
		FROM contracts
		WHERE contract_id = $1
	`, id).Scan(&contract.ID, &contract.ContractID, &contract.TenantID, &contract.ContractNumber,
		&contract.CustomerID, &contract.MonthlyAmount, &contract.ContractAmount, &contract.Status,
		&contract.StartDate, &endDate, &contract.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Contract not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve contract", err)
	}
	if endDate.Valid {
		contract.EndDate = endDate.Time
	}

	return &contract, nil
}
