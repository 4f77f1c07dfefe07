package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/fleetpay/fleetpay/config"
	"github.com/fleetpay/fleetpay/internal/cache"
)

// Singleton datasource instance, shared across the process.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		ca, cacheErr := cache.NewCache()
		if cacheErr != nil {
			log.Printf("Running without the read-through cache: %v", cacheErr)
		}
		instance = &Datasource{Conn: con, Cache: ca}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = createCustomerTable(db)
	if err != nil {
		return nil, err
	}
	err = createContractTable(db)
	if err != nil {
		return nil, err
	}
	err = createPaymentTable(db)
	if err != nil {
		return nil, err
	}
	err = createImportRunTable(db)
	if err != nil {
		return nil, err
	}
	err = createLinkingRunTable(db)
	if err != nil {
		return nil, err
	}
	err = createProgressTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createCustomerTable creates a PostgreSQL table for the Customer struct
func createCustomerTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS customers (
			id SERIAL PRIMARY KEY,
			customer_id TEXT NOT NULL UNIQUE,
			tenant_id TEXT NOT NULL,
			company_name TEXT,
			first_name TEXT,
			last_name TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_customers_tenant ON customers (tenant_id)
	`)
	log.Println(err)
	return err
}

// createContractTable creates a PostgreSQL table for the Contract struct
func createContractTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS contracts (
			id SERIAL PRIMARY KEY,
			contract_id TEXT NOT NULL UNIQUE,
			tenant_id TEXT NOT NULL,
			contract_number TEXT NOT NULL,
			customer_id TEXT NOT NULL REFERENCES customers(customer_id),
			monthly_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			contract_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_contracts_tenant_status ON contracts (tenant_id, status)
	`)
	log.Println(err)
	return err
}

// createPaymentTable creates a PostgreSQL table for the Payment struct
func createPaymentTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payments (
			id SERIAL PRIMARY KEY,
			payment_id TEXT NOT NULL UNIQUE,
			tenant_id TEXT NOT NULL,
			payment_number TEXT,
			amount DOUBLE PRECISION NOT NULL,
			payment_date TIMESTAMP NOT NULL,
			payment_method TEXT NOT NULL DEFAULT 'cash',
			transaction_type TEXT NOT NULL DEFAULT 'receipt',
			customer_id TEXT REFERENCES customers(customer_id),
			contract_id TEXT REFERENCES contracts(contract_id),
			agreement_number TEXT,
			notes TEXT,
			reconciliation_status TEXT,
			meta_data JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_payments_tenant ON payments (tenant_id);
		CREATE INDEX IF NOT EXISTS idx_payments_unlinked ON payments (tenant_id) WHERE customer_id IS NULL
	`)
	log.Println(err)
	return err
}

// createImportRunTable creates a PostgreSQL table for the ImportRun struct
func createImportRunTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS import_runs (
			id SERIAL PRIMARY KEY,
			import_id TEXT NOT NULL UNIQUE,
			tenant_id TEXT NOT NULL,
			upload_id TEXT,
			status TEXT NOT NULL,
			total INTEGER NOT NULL DEFAULT 0,
			successful INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMP
		)
	`)
	log.Println(err)
	return err
}

// createProgressTable creates a PostgreSQL table holding per-run progress
// checkpoints, one row per import or linking run
func createProgressTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pipeline_progress (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL UNIQUE,
			payload JSONB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	log.Println(err)
	return err
}

// createLinkingRunTable creates a PostgreSQL table for the LinkingRun struct
func createLinkingRunTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS linking_runs (
			id SERIAL PRIMARY KEY,
			linking_id TEXT NOT NULL UNIQUE,
			tenant_id TEXT NOT NULL,
			status TEXT NOT NULL,
			is_dry_run BOOLEAN NOT NULL DEFAULT FALSE,
			linked INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMP
		)
	`)
	log.Println(err)
	return err
}
