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
package mocks

import (
	"context"

	"github.com/fleetpay/fleetpay/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Customer methods

func (m *MockDataSource) CreateCustomer(ctx context.Context, customer model.Customer) (model.Customer, error) {
	args := m.Called(ctx, customer)
	return args.Get(0).(model.Customer), args.Error(1)
}

func (m *MockDataSource) GetCustomersByTenant(ctx context.Context, tenantID string) ([]*model.Customer, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*model.Customer), args.Error(1)
}

func (m *MockDataSource) GetAllCustomers(ctx context.Context, limit, offset int) ([]*model.Customer, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*model.Customer), args.Error(1)
}

func (m *MockDataSource) GetCustomerByID(ctx context.Context, id string) (*model.Customer, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.Customer), args.Error(1)
}

// Contract methods

func (m *MockDataSource) CreateContract(ctx context.Context, contract model.Contract) (model.Contract, error) {
	args := m.Called(ctx, contract)
	return args.Get(0).(model.Contract), args.Error(1)
}

func (m *MockDataSource) GetActiveContractsByTenant(ctx context.Context, tenantID string) ([]*model.Contract, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*model.Contract), args.Error(1)
}

func (m *MockDataSource) GetAllContracts(ctx context.Context, limit, offset int) ([]*model.Contract, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*model.Contract), args.Error(1)
}

func (m *MockDataSource) GetContractByID(ctx context.Context, id string) (*model.Contract, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.Contract), args.Error(1)
}

// Payment methods

func (m *MockDataSource) InsertPaymentsBatch(ctx context.Context, tenantID string, payments []*model.Payment) (int, error) {
	args := m.Called(ctx, tenantID, payments)
	return args.Int(0), args.Error(1)
}

func (m *MockDataSource) UpdatePaymentLinks(ctx context.Context, tenantID, paymentID, customerID, contractID string) error {
	args := m.Called(ctx, tenantID, paymentID, customerID, contractID)
	return args.Error(0)
}

func (m *MockDataSource) GetUnlinkedPayments(ctx context.Context, tenantID string, limit, offset int) ([]*model.Payment, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	return args.Get(0).([]*model.Payment), args.Error(1)
}

func (m *MockDataSource) GetAllPayments(ctx context.Context, limit, offset int) ([]*model.Payment, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*model.Payment), args.Error(1)
}

func (m *MockDataSource) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockDataSource) GetLastPaymentNumber(ctx context.Context, tenantID string) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// Import run methods

func (m *MockDataSource) RecordImportRun(ctx context.Context, run *model.ImportRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockDataSource) GetImportRun(ctx context.Context, id string) (*model.ImportRun, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.ImportRun), args.Error(1)
}

func (m *MockDataSource) UpdateImportRunStatus(ctx context.Context, id, status string, total, successful, failed int) error {
	args := m.Called(ctx, id, status, total, successful, failed)
	return args.Error(0)
}

func (m *MockDataSource) SaveImportProgress(ctx context.Context, importID string, progress model.ImportProgress) error {
	args := m.Called(ctx, importID, progress)
	return args.Error(0)
}

func (m *MockDataSource) LoadImportProgress(ctx context.Context, importID string) (model.ImportProgress, error) {
	args := m.Called(ctx, importID)
	return args.Get(0).(model.ImportProgress), args.Error(1)
}

// Linking run methods

func (m *MockDataSource) RecordLinkingRun(ctx context.Context, run *model.LinkingRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockDataSource) GetLinkingRun(ctx context.Context, id string) (*model.LinkingRun, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.LinkingRun), args.Error(1)
}

func (m *MockDataSource) UpdateLinkingRunStatus(ctx context.Context, id, status string, linked, failed int) error {
	args := m.Called(ctx, id, status, linked, failed)
	return args.Error(0)
}

func (m *MockDataSource) SaveLinkingProgress(ctx context.Context, linkingID string, progress model.LinkingProgress) error {
	args := m.Called(ctx, linkingID, progress)
	return args.Error(0)
}

func (m *MockDataSource) LoadLinkingProgress(ctx context.Context, linkingID string) (model.LinkingProgress, error) {
	args := m.Called(ctx, linkingID)
	return args.Get(0).(model.LinkingProgress), args.Error(1)
}
