/*
Copyright 2024 Fleetpay Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"

	"github.com/fleetpay/fleetpay/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	customer   // customer-related operations
	contract   // contract-related operations
	payment    // payment-related operations
	importRun  // import run bookkeeping
	linkingRun // linking run bookkeeping
}

// customer defines methods for handling customers.
type customer interface {
	CreateCustomer(ctx context.Context, customer model.Customer) (model.Customer, error)
	GetCustomersByTenant(ctx context.Context, tenantID string) ([]*model.Customer, error)
	GetAllCustomers(ctx context.Context, limit, offset int) ([]*model.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*model.Customer, error)
}

// contract defines methods for handling contracts.
type contract interface {
	CreateContract(ctx context.Context, contract model.Contract) (model.Contract, error)
	GetActiveContractsByTenant(ctx context.Context, tenantID string) ([]*model.Contract, error)
	GetAllContracts(ctx context.Context, limit, offset int) ([]*model.Contract, error)
	GetContractByID(ctx context.Context, id string) (*model.Contract, error)
}

// payment defines methods for handling payments.
type payment interface {
	InsertPaymentsBatch(ctx context.Context, tenantID string, payments []*model.Payment) (int, error)
	UpdatePaymentLinks(ctx context.Context, tenantID, paymentID, customerID, contractID string) error
	GetUnlinkedPayments(ctx context.Context, tenantID string, limit, offset int) ([]*model.Payment, error)
	GetAllPayments(ctx context.Context, limit, offset int) ([]*model.Payment, error)
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
	GetLastPaymentNumber(ctx context.Context, tenantID string) (string, error)
}

// importRun defines methods for import run bookkeeping.
type importRun interface {
	RecordImportRun(ctx context.Context, run *model.ImportRun) error
	GetImportRun(ctx context.Context, id string) (*model.ImportRun, error)
	UpdateImportRunStatus(ctx context.Context, id, status string, total, successful, failed int) error
	SaveImportProgress(ctx context.Context, importID string, progress model.ImportProgress) error
	LoadImportProgress(ctx context.Context, importID string) (model.ImportProgress, error)
}

// linkingRun defines methods for linking run bookkeeping.
type linkingRun interface {
	RecordLinkingRun(ctx context.Context, run *model.LinkingRun) error
	GetLinkingRun(ctx context.Context, id string) (*model.LinkingRun, error)
	UpdateLinkingRunStatus(ctx context.Context, id, status string, linked, failed int) error
	SaveLinkingProgress(ctx context.Context, linkingID string, progress model.LinkingProgress) error
	LoadLinkingProgress(ctx context.Context, linkingID string) (model.LinkingProgress, error)
}
