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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/fleetpay/fleetpay/internal/apierror"
	"github.com/fleetpay/fleetpay/model"
)

func TestInsertPaymentsBatch_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	ctx := context.TODO()

	payments := []*model.Payment{
		{PaymentNumber: "PAY-001", Amount: 1500, PaymentDate: time.Now(), PaymentMethod: model.MethodCash, TransactionType: model.TypeReceipt},
		{PaymentNumber: "PAY-002", Amount: 3500.50, PaymentDate: time.Now(), PaymentMethod: model.MethodBankTransfer, TransactionType: model.TypeReceipt},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO payments")
	for range payments {
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	count, err := ds.InsertPaymentsBatch(ctx, "tenant1", payments)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NotEmpty(t, payments[0].PaymentID)
	assert.Equal(t, "tenant1", payments[0].TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPaymentsBatch_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	count, err := ds.InsertPaymentsBatch(context.TODO(), "tenant1", nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPaymentsBatch_UniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	payments := []*model.Payment{
		{PaymentID: "pay_dup", Amount: 100, PaymentDate: time.Now(), PaymentMethod: model.MethodCash, TransactionType: model.TypeReceipt},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO payments")
	prep.ExpectExec().WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	count, err := ds.InsertPaymentsBatch(context.TODO(), "tenant1", payments)
	assert.Error(t, err)
	assert.Equal(t, 0, count)

	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
}

func TestUpdatePaymentLinks_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE payments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.UpdatePaymentLinks(context.TODO(), "tenant1", "pay_1", "cst_1", "ctr_1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePaymentLinks_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE payments").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = ds.UpdatePaymentLinks(context.TODO(), "tenant1", "missing", "cst_1", "ctr_1")
	assert.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestGetUnlinkedPayments(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "payment_id", "tenant_id", "payment_number", "amount", "payment_date",
		"payment_method", "transaction_type", "customer_id", "contract_id",
		"agreement_number", "notes", "reconciliation_status", "meta_data", "created_at",
	}).
		AddRow(1, "pay_1", "tenant1", "PAY-001", 1500.0, now, "cash", "receipt", nil, nil, "LTO-2024-001", "دفعة ايجار", nil, nil, now).
		AddRow(2, "pay_2", "tenant1", nil, 5000.0, now, "bank_transfer", "receipt", nil, nil, nil, nil, nil, []byte(`{"source":"import"}`), now)

	mock.ExpectQuery("SELECT .* FROM payments").
		WithArgs("tenant1", 50, 0).
		WillReturnRows(rows)

	payments, err := ds.GetUnlinkedPayments(context.TODO(), "tenant1", 50, 0)
	assert.NoError(t, err)
	assert.Len(t, payments, 2)
	assert.Equal(t, "PAY-001", payments[0].PaymentNumber)
	assert.Equal(t, "LTO-2024-001", payments[0].AgreementNumber)
	assert.Empty(t, payments[1].PaymentNumber)
	assert.Equal(t, "import", payments[1].MetaData["source"])
}

func TestGetLastPaymentNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT payment_number").
		WithArgs("tenant1").
		WillReturnRows(sqlmock.NewRows([]string{"payment_number"}).AddRow("PAY-000123"))

	number, err := ds.GetLastPaymentNumber(context.TODO(), "tenant1")
	assert.NoError(t, err)
	assert.Equal(t, "PAY-000123", number)
}

func TestGetLastPaymentNumber_NoPayments(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT payment_number").
		WithArgs("tenant-empty").
		WillReturnRows(sqlmock.NewRows([]string{"payment_number"}))

	number, err := ds.GetLastPaymentNumber(context.TODO(), "tenant-empty")
	assert.NoError(t, err)
	assert.Empty(t, number)
}
