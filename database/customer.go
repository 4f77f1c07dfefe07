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

// CreateCustomer inserts a new customer record into the database.
func (d Datasource) CreateCustomer(ctx context.Context, customer model.Customer) (model.Customer, error) {
	ctx, span := otel.Tracer("Customers").Start(ctx, "Saving customer to db")
	defer span.End()

	if customer.CustomerID == "" {
		customer.CustomerID = model.GenerateUUIDWithSuffix("cst")
	}
	customer.CreatedAt = time.Now()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO customers (customer_id, tenant_id, company_name, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, customer.CustomerID, customer.TenantID, customer.CompanyName, customer.FirstName, customer.LastName, customer.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Customer{}, apierror.NewAPIError(apierror.ErrConflict, "Customer with this ID already exists", err)
			default:
				return model.Customer{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Customer{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create customer", err)
	}

	return customer, nil
}

// GetCustomersByTenant retrieves every customer belonging to a tenant.
func (d Datasource) GetCustomersByTenant(ctx context.Context, tenantID string) ([]*model.Customer, error) {
	ctx, span := otel.Tracer("Customers").Start(ctx, "Fetching customers by tenant")
	defer span.End()

	cacheKey := fmt.Sprintf("customers:%s", tenantID)
	if d.Cache != nil {
		var cached []*model.Customer
		if err := d.Cache.Get(ctx, cacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, customer_id, tenant_id, company_name, first_name, last_name, created_at
		FROM customers
		WHERE tenant_id = $1
		ORDER BY id
	`, tenantID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve customers", err)
	}
	defer rows.Close()

	customers := []*model.Customer{}
	for rows.Next() {
		customer := model.Customer{}
		var companyName, firstName, lastName sql.NullString
		err = rows.Scan(&customer.ID, &customer.CustomerID, &customer.TenantID, &companyName, &firstName, &lastName, &customer.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan customer data", err)
		}
		customer.CompanyName = companyName.String
		customer.FirstName = firstName.String
		customer.LastName = lastName.String
		customers = append(customers, &customer)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over customers", err)
	}

	if d.Cache != nil && len(customers) > 0 {
		if err := d.Cache.Set(ctx, cacheKey, customers, 5*time.Minute); err != nil {
			log.Printf("Failed to cache customers: %v", err)
		}
	}

	return customers, nil
}

// GetAllCustomers retrieves a page of customers across all tenants,
// ordered by insertion.
func (d Datasource) GetAllCustomers(ctx context.Context, limit, offset int) ([]*model.Customer, error) {
	ctx, span := otel.Tracer("Customers").Start(ctx, "Fetching customers with pagination")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, customer_id, tenant_id, company_name, first_name, last_name, created_at
		FROM customers
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve customers", err)
	}
	defer rows.Close()

	customers := []*model.Customer{}
	for rows.Next() {
		customer := model.Customer{}
		var companyName, firstName, lastName sql.NullString
		err = rows.Scan(&customer.ID, &customer.CustomerID, &customer.TenantID, &companyName, &firstName, &lastName, &customer.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan customer data", err)
		}
		customer.CompanyName = companyName.String
		customer.FirstName = firstName.String
		customer.LastName = lastName.String
		customers = append(customers, &customer)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over customers", err)
	}

	return customers, nil
}

// GetCustomerByID retrieves a single customer by its public ID.
func (d Datasource) GetCustomerByID(ctx context.Context, id string) (*model.Customer, error) {
	ctx, span := otel.Tracer("Customers").Start(ctx, "Fetching customer from db")
	defer span.End()

	customer := model.Customer{}
	var companyName, firstName, lastName sql.NullString
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, customer_id, tenant_id, company_name, first_name, last_name, created_at
		FROM customers
		WHERE customer_id = $1
	`, id).Scan(&customer.ID, &customer.CustomerID, &customer.TenantID, &companyName, &firstName, &lastName, &customer.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Customer not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve customer", err)
	}
	customer.CompanyName = companyName.String
	customer.FirstName = firstName.String
	customer.LastName = lastName.String

	return &customer, nil
}
