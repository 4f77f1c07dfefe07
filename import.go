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

package fleetpay

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/wacul/ptr"
	"go.opentelemetry.io/otel"

	"github.com/fleetpay/fleetpay/config"
	"github.com/fleetpay/fleetpay/internal/files"
	redlock "github.com/fleetpay/fleetpay/internal/lock"
	"github.com/fleetpay/fleetpay/internal/normalize"
	"github.com/fleetpay/fleetpay/internal/notification"
	"github.com/fleetpay/fleetpay/model"
)

// importRow pairs a raw upload row with its position in the source file.
type importRow struct {
	index int
	row   model.RawRow
}

// uploadPaymentData reads an uploaded payment sheet into memory and
// returns the upload ID together with the parsed rows. Rows keep their
// original column names; normalization happens during the import run.
func (f *Fleetpay) uploadPaymentData(ctx context.Context, reader io.Reader, filename string) (string, []importRow, error) {
	rows := []importRow{}
	uploadID, _, err := files.ReadUpload(ctx, reader, filename, func(_ context.Context, _ string, rowIndex int, row model.RawRow) error {
		rows = append(rows, importRow{index: rowIndex, row: row})
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return uploadID, rows, nil
}

// ImportPayments runs the full bulk-import pipeline synchronously:
// normalize rows, resolve customer and contract references, validate,
// allocate payment numbers, and write the survivors in batches. A failed
// batch marks only its own rows failed; the run continues.
func (f *Fleetpay) ImportPayments(ctx context.Context, reader io.Reader, filename string, opts model.ImportOptions) (*model.ImportResult, error) {
	ctx, span := otel.Tracer("Imports").Start(ctx, "Importing payments")
	defer span.End()

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	_, rows, err := f.uploadPaymentData(ctx, reader, filename)
	if err != nil {
		return nil, err
	}

	return f.runImport(ctx, "", rows, opts)
}

// StartImport records an import run and processes the upload in the
// background, returning the run ID immediately. Progress and the final
// counters land on the run record.
func (f *Fleetpay) StartImport(ctx context.Context, reader io.Reader, filename string, opts model.ImportOptions) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}

	uploadID, rows, err := f.uploadPaymentData(ctx, reader, filename)
	if err != nil {
		return "", err
	}

	importID := model.GenerateUUIDWithSuffix("imp")
	run := &model.ImportRun{
		ImportID:  importID,
		TenantID:  opts.TenantID,
		UploadID:  uploadID,
		Status:    model.StatusStarted,
		Total:     len(rows),
		StartedAt: time.Now(),
	}
	if err := f.datasource.RecordImportRun(ctx, run); err != nil {
		return "", err
	}

	go func() {
		result, err := f.runImport(context.Background(), importID, rows, opts)
		if err != nil {
			log.Printf("Error in import process: %v", err)
			if err := f.datasource.UpdateImportRunStatus(context.Background(), importID, model.StatusFailed, len(rows), 0, 0); err != nil {
				log.Printf("Error updating import run status: %v", err)
			}
			if err := SendWebhook(NewWebhook{Event: EventImportFailed, Payload: map[string]interface{}{"import_id": importID}}); err != nil {
				notification.NotifyError(err)
			}
			return
		}
		if err := f.datasource.UpdateImportRunStatus(context.Background(), importID, model.StatusCompleted, result.Total, result.Successful, result.Failed); err != nil {
			log.Printf("Error updating import run status: %v", err)
		}
		run.Status = model.StatusCompleted
		run.Total = result.Total
		run.Successful = result.Successful
		run.Failed = result.Failed
		run.CompletedAt = ptr.Time(time.Now())
		if err := f.queue.queueIndexData(importID, "import_runs", run); err != nil {
			notification.NotifyError(err)
		}
		if err := SendWebhook(NewWebhook{Event: EventImportCompleted, Payload: map[string]interface{}{"import_id": importID, "result": result}}); err != nil {
			notification.NotifyError(err)
		}
	}()

	return importID, nil
}

// GetImportRun retrieves the bookkeeping record of an import run.
func (f *Fleetpay) GetImportRun(ctx context.Context, id string) (*model.ImportRun, error) {
	return f.datasource.GetImportRun(ctx, id)
}

// GetImportProgress retrieves the last checkpointed progress of a run.
func (f *Fleetpay) GetImportProgress(ctx context.Context, id string) (model.ImportProgress, error) {
	return f.datasource.LoadImportProgress(ctx, id)
}

func (f *Fleetpay) runImport(ctx context.Context, importID string, rows []importRow, opts model.ImportOptions) (*model.ImportResult, error) {
	startTime := time.Now()

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = cnf.Pipeline.DefaultBatchSize
	}

	if importID != "" {
		if err := f.datasource.UpdateImportRunStatus(ctx, importID, model.StatusInProgress, len(rows), 0, 0); err != nil {
			log.Printf("Error updating import run status: %v", err)
		}
	}

	resolver, err := f.BuildResolver(ctx, opts.TenantID)
	if err != nil {
		return nil, err
	}

	result := &model.ImportResult{Total: len(rows)}
	normalized := make([]*model.NormalizedPayment, 0, len(rows))
	for _, item := range rows {
		np := f.normalizeRow(ctx, item, resolver, opts)
		if np.Rejected && !opts.SkipValidation {
			result.Failed++
			result.Errors = append(result.Errors, model.RowError{Row: np.RowIndex, Message: np.RejectReason})
			continue
		}
		normalized = append(normalized, np)
	}

	payments, err := f.buildPayments(ctx, normalized, opts.TenantID)
	if err != nil {
		return nil, err
	}

	totalBatches := (len(payments) + batchSize - 1) / batchSize
	for batchIndex := 0; batchIndex < totalBatches; batchIndex++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := batchIndex * batchSize
		end := start + batchSize
		if end > len(payments) {
			end = len(payments)
		}
		batch := payments[start:end]

		count, err := f.datasource.InsertPaymentsBatch(ctx, opts.TenantID, batch)
		if err != nil {
			log.Printf("Error inserting payment batch %d: %v", batchIndex+1, err)
			result.Failed += len(batch)
			for i := range batch {
				result.Errors = append(result.Errors, model.RowError{
					Row:     normalized[start+i].RowIndex,
					Message: fmt.Sprintf("batch insert failed: %v", err),
				})
			}
		} else {
			result.Successful += count
			for _, payment := range batch {
				f.postPaymentActions(ctx, payment)
			}
		}

		if importID != "" {
			progress := model.ImportProgress{
				CompletedBatches: batchIndex + 1,
				TotalBatches:     totalBatches,
				Percentage:       float64(batchIndex+1) / float64(totalBatches) * 100,
			}
			if err := f.datasource.SaveImportProgress(ctx, importID, progress); err != nil {
				log.Printf("Error saving import progress: %v", err)
			}
		}

		if batchIndex < totalBatches-1 && cnf.Pipeline.InterBatchDelayMs > 0 {
			time.Sleep(time.Duration(cnf.Pipeline.InterBatchDelayMs) * time.Millisecond)
		}
	}

	result.ProcessingTime = time.Since(startTime).String()
	return result, nil
}

// normalizeRow coerces one raw row into a normalized payment and resolves
// its customer and contract references against the tenant snapshot.
func (f *Fleetpay) normalizeRow(ctx context.Context, item importRow, resolver *Resolver, opts model.ImportOptions) *model.NormalizedPayment {
	fields := normalize.NormalizeRow(item.row)
	method, methodRecognized := normalize.LookupMethod(fields[normalize.FieldPaymentMethod])

	np := &model.NormalizedPayment{
		RowIndex:        item.index,
		CustomerName:    strings.TrimSpace(fields[normalize.FieldCustomerName]),
		ContractNumber:  strings.TrimSpace(fields[normalize.FieldContractNumber]),
		Amount:          normalize.Amount(fields[normalize.FieldAmount]),
		PaymentDate:     normalize.Date(fields[normalize.FieldPaymentDate]),
		PaymentMethod:   method,
		TransactionType: normalize.TransactionType(fields[normalize.FieldTransactionType]),
		AgreementNumber: strings.TrimSpace(fields[normalize.FieldAgreementNumber]),
		Notes:           strings.TrimSpace(fields[normalize.FieldNotes]),
	}
	if np.ContractNumber == "" {
		np.ContractNumber = np.AgreementNumber
	}

	if np.ContractNumber != "" {
		if contract := resolver.ResolveContract(np.ContractNumber); contract != nil {
			np.ContractID = contract.ContractID
			np.CustomerID = contract.CustomerID
		}
	}

	if np.CustomerID == "" && np.CustomerName != "" {
		match := resolver.ResolveCustomer(np.CustomerName)
		np.CustomerID = match.CustomerID
		np.AmbiguousCustomer = match.Ambiguous
		if np.CustomerID == "" && !match.Ambiguous && opts.AutoCreateCustomers {
			customer, err := f.datasource.CreateCustomer(ctx, model.Customer{
				TenantID:    opts.TenantID,
				CompanyName: np.CustomerName,
			})
			if err != nil {
				log.Printf("Error auto-creating customer %q: %v", np.CustomerName, err)
			} else {
				np.CustomerID = customer.CustomerID
			}
		}
	}

	switch {
	case np.Amount <= 0:
		np.Rejected = true
		np.RejectReason = "amount must be greater than zero"
	case np.PaymentDate.IsZero():
		np.Rejected = true
		np.RejectReason = "payment date is missing or unparseable"
	case np.AmbiguousCustomer:
		np.Rejected = true
		np.RejectReason = fmt.Sprintf("customer name %q matches more than one customer", np.CustomerName)
	case !opts.UseAutoFix && !methodRecognized && strings.TrimSpace(fields[normalize.FieldPaymentMethod]) != "":
		np.Rejected = true
		np.RejectReason = fmt.Sprintf("unrecognized payment method %q", fields[normalize.FieldPaymentMethod])
	}

	return np
}

// buildPayments turns normalized rows into payment records, allocating
// sequential payment numbers. The counter is seeded from the database
// once and the whole allocation happens under a per-tenant lock so
// concurrent imports cannot hand out the same number.
func (f *Fleetpay) buildPayments(ctx context.Context, normalized []*model.NormalizedPayment, tenantID string) ([]*model.Payment, error) {
	locker := redlock.NewLocker(f.redis, fmt.Sprintf("import:number:%s", tenantID), model.GenerateUUIDWithSuffix("lock"))
	if err := locker.WaitLock(ctx, 30*time.Second, 60*time.Second); err != nil {
		return nil, err
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			log.Printf("Error releasing import lock: %v", err)
		}
	}()

	lastNumber, err := f.datasource.GetLastPaymentNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	next := nextPaymentSequence(lastNumber)

	payments := make([]*model.Payment, 0, len(normalized))
	for _, np := range normalized {
		payment := &model.Payment{
			PaymentID:       model.GenerateUUIDWithSuffix("pay"),
			TenantID:        tenantID,
			PaymentNumber:   fmt.Sprintf("PAY-%06d", next),
			Amount:          np.Amount,
			PaymentDate:     np.PaymentDate,
			PaymentMethod:   np.PaymentMethod,
			TransactionType: np.TransactionType,
			CustomerID:      np.CustomerID,
			ContractID:      np.ContractID,
			AgreementNumber: np.AgreementNumber,
			Notes:           np.Notes,
			MetaData:        map[string]interface{}{"source_row": np.RowIndex},
		}
		next++
		payments = append(payments, payment)
	}
	return payments, nil
}

// nextPaymentSequence parses the numeric tail of the last issued payment
// number. An empty or malformed number starts the sequence at 1.
func nextPaymentSequence(lastNumber string) int {
	if lastNumber == "" {
		return 1
	}
	idx := strings.LastIndex(lastNumber, "-")
	if idx < 0 || idx == len(lastNumber)-1 {
		return 1
	}
	n, err := strconv.Atoi(lastNumber[idx+1:])
	if err != nil {
		return 1
	}
	return n + 1
}

func (f *Fleetpay) postPaymentActions(_ context.Context, payment *model.Payment) {
	go func() {
		err := f.queue.queueIndexData(payment.PaymentID, "payments", payment)
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}
