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
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wacul/ptr"
	"go.opentelemetry.io/otel"

	"github.com/fleetpay/fleetpay/config"
	"github.com/fleetpay/fleetpay/internal/extract"
	"github.com/fleetpay/fleetpay/internal/notification"
	"github.com/fleetpay/fleetpay/model"
)

const linkingPageSize = 500

// SuggestLinks scores every unlinked payment of a tenant against the
// active-contract snapshot and returns the resulting suggestions sorted
// by descending confidence. Nothing is written.
func (f *Fleetpay) SuggestLinks(ctx context.Context, tenantID string) ([]model.LinkingSuggestion, error) {
	ctx, span := otel.Tracer("Linking").Start(ctx, "Generating linking suggestions")
	defer span.End()

	resolver, err := f.BuildResolver(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	suggestions := []model.LinkingSuggestion{}
	offset := 0
	for {
		payments, err := f.datasource.GetUnlinkedPayments(ctx, tenantID, linkingPageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(payments) == 0 {
			break
		}

		pageSuggestions, err := f.suggestForPayments(ctx, payments, resolver)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, pageSuggestions...)

		if len(payments) < linkingPageSize {
			break
		}
		offset += linkingPageSize
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions, nil
}

// suggestForPayments fans one page of payments out over a bounded worker
// pool and collects at most one suggestion per payment.
func (f *Fleetpay) suggestForPayments(ctx context.Context, payments []*model.Payment, resolver *Resolver) ([]model.LinkingSuggestion, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	workers := cnf.Pipeline.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	results := make([]*model.LinkingSuggestion, len(payments))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, payment := range payments {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, payment *model.Payment) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = f.suggestForPayment(payment, resolver, cnf.Pipeline)
		}(i, payment)
	}
	wg.Wait()

	suggestions := []model.LinkingSuggestion{}
	for _, suggestion := range results {
		if suggestion != nil {
			suggestions = append(suggestions, *suggestion)
		}
	}
	return suggestions, nil
}

// suggestForPayment runs the two matching tiers for a single payment.
// Tier 1 looks for an explicit contract-number reference in the payment
// text. Tier 2 falls back to comparing the amount and date against each
// active contract. More than one surviving candidate collapses into a
// single low-confidence manual suggestion; none yields no suggestion.
func (f *Fleetpay) suggestForPayment(payment *model.Payment, resolver *Resolver, pipeline config.PipelineConfig) *model.LinkingSuggestion {
	if suggestion := f.matchByContractNumber(payment, resolver); suggestion != nil {
		return suggestion
	}
	return f.matchByAmountAndDate(payment, resolver, pipeline)
}

// matchByContractNumber extracts contract-number candidates from the
// payment's reference fields and resolves them against the snapshot. The
// first candidate that resolves wins.
func (f *Fleetpay) matchByContractNumber(payment *model.Payment, resolver *Resolver) *model.LinkingSuggestion {
	if payment.AgreementNumber != "" {
		if contract := resolver.ResolveContract(payment.AgreementNumber); contract != nil {
			return &model.LinkingSuggestion{
				PaymentID:       payment.PaymentID,
				ContractID:      contract.ContractID,
				CustomerID:      contract.CustomerID,
				Confidence:      0.95,
				Reasons:         []string{fmt.Sprintf("agreement number %q resolves to contract %s", payment.AgreementNumber, contract.ContractNumber)},
				MatchType:       model.MatchContractNumber,
				SuggestedAction: model.ActionAutoLink,
			}
		}
	}

	text := strings.TrimSpace(payment.AgreementNumber + " " + payment.Notes)
	if text == "" {
		return nil
	}

	for _, candidate := range extract.ContractCandidates(text) {
		contract := resolver.ResolveContract(candidate.Value)
		if contract == nil {
			continue
		}
		return &model.LinkingSuggestion{
			PaymentID:       payment.PaymentID,
			ContractID:      contract.ContractID,
			CustomerID:      contract.CustomerID,
			Confidence:      0.95,
			Reasons:         []string{fmt.Sprintf("reference %q resolves to contract %s", candidate.Value, contract.ContractNumber)},
			MatchType:       model.MatchContractNumber,
			SuggestedAction: model.ActionAutoLink,
		}
	}
	return nil
}

// matchByAmountAndDate keeps the contracts whose term covers the payment
// date and whose reference amount for the classified payment kind sits
// within the configured tolerance. Confidence scales with the kind
// classifier's own confidence.
func (f *Fleetpay) matchByAmountAndDate(payment *model.Payment, resolver *Resolver, pipeline config.PipelineConfig) *model.LinkingSuggestion {
	kind, kindConfidence := extract.ClassifyKind(payment.Notes)

	candidates := []*model.Contract{}
	for _, contract := range resolver.Contracts() {
		if !contract.Covers(payment.PaymentDate) {
			continue
		}
		if payment.CustomerID != "" && contract.CustomerID != payment.CustomerID {
			continue
		}
		if math.Abs(payment.Amount-contract.ReferenceAmount(kind)) > pipeline.AmountTolerance {
			continue
		}
		candidates = append(candidates, contract)
	}

	switch len(candidates) {
	case 0:
		return nil
	case 1:
		contract := candidates[0]
		confidence := 0.75 + 0.2*kindConfidence
		if confidence > 0.95 {
			confidence = 0.95
		}
		return &model.LinkingSuggestion{
			PaymentID:  payment.PaymentID,
			ContractID: contract.ContractID,
			CustomerID: contract.CustomerID,
			Confidence: confidence,
			Reasons: []string{
				fmt.Sprintf("amount %.2f within %.0f of contract %s (%s)", payment.Amount, pipeline.AmountTolerance, contract.ContractNumber, kind),
				"payment date falls inside the contract term",
			},
			MatchType:       model.MatchAmountDate,
			SuggestedAction: model.ActionReviewRequired,
		}
	default:
		numbers := make([]string, 0, len(candidates))
		for _, contract := range candidates {
			numbers = append(numbers, contract.ContractNumber)
		}
		return &model.LinkingSuggestion{
			PaymentID:       payment.PaymentID,
			ContractID:      candidates[0].ContractID,
			CustomerID:      candidates[0].CustomerID,
			Confidence:      0.5,
			Reasons:         []string{fmt.Sprintf("amount and date match %d contracts: %s", len(candidates), strings.Join(numbers, ", "))},
			MatchType:       model.MatchAmountDate,
			SuggestedAction: model.ActionManualLink,
		}
	}
}

// AutoLink applies the given suggestions that clear the auto-link gate:
// confidence at or above the configured threshold and an auto_link
// action. Payments are linked one at a time so a failure only loses its
// own record.
func (f *Fleetpay) AutoLink(ctx context.Context, tenantID string, suggestions []model.LinkingSuggestion) (*model.LinkingResult, error) {
	ctx, span := otel.Tracer("Linking").Start(ctx, "Applying auto-link suggestions")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	threshold := cnf.Pipeline.AutoLinkConfidenceThreshold

	startTime := time.Now()
	result := &model.LinkingResult{Total: len(suggestions)}
	for _, suggestion := range suggestions {
		if suggestion.SuggestedAction != model.ActionAutoLink || suggestion.Confidence < threshold {
			continue
		}
		err := f.datasource.UpdatePaymentLinks(ctx, tenantID, suggestion.PaymentID, suggestion.CustomerID, suggestion.ContractID)
		if err != nil {
			log.Printf("Error linking payment %s: %v", suggestion.PaymentID, err)
			result.Failed++
			result.Errors = append(result.Errors, model.LinkError{PaymentID: suggestion.PaymentID, Message: err.Error()})
			continue
		}
		result.Linked++
		f.postLinkActions(ctx, suggestion)
	}

	result.ProcessingTime = time.Since(startTime).String()
	return result, nil
}

// StartLinkingRun records a linking run and processes it in the
// background, returning the run ID immediately. A dry run generates
// suggestions and counters without writing any link.
func (f *Fleetpay) StartLinkingRun(ctx context.Context, tenantID string, isDryRun bool) (string, error) {
	linkingID := model.GenerateUUIDWithSuffix("lnk")
	run := &model.LinkingRun{
		LinkingID: linkingID,
		TenantID:  tenantID,
		Status:    model.StatusStarted,
		IsDryRun:  isDryRun,
		StartedAt: time.Now(),
	}
	if err := f.datasource.RecordLinkingRun(ctx, run); err != nil {
		return "", err
	}

	go func() {
		if err := f.processLinkingRun(context.Background(), run); err != nil {
			log.Printf("Error in linking process: %v", err)
			if err := f.datasource.UpdateLinkingRunStatus(context.Background(), linkingID, model.StatusFailed, 0, 0); err != nil {
				log.Printf("Error updating linking run status: %v", err)
			}
		}
	}()

	return linkingID, nil
}

// GetLinkingRun retrieves the bookkeeping record of a linking run.
func (f *Fleetpay) GetLinkingRun(ctx context.Context, id string) (*model.LinkingRun, error) {
	return f.datasource.GetLinkingRun(ctx, id)
}

func (f *Fleetpay) processLinkingRun(ctx context.Context, run *model.LinkingRun) error {
	if err := f.datasource.UpdateLinkingRunStatus(ctx, run.LinkingID, model.StatusInProgress, 0, 0); err != nil {
		log.Printf("Error updating linking run status: %v", err)
	}

	suggestions, err := f.SuggestLinks(ctx, run.TenantID)
	if err != nil {
		return err
	}

	if err := f.datasource.SaveLinkingProgress(ctx, run.LinkingID, model.LinkingProgress{Total: len(suggestions)}); err != nil {
		log.Printf("Error saving linking progress: %v", err)
	}

	linked, failed := 0, 0
	if !run.IsDryRun {
		result, err := f.AutoLink(ctx, run.TenantID, suggestions)
		if err != nil {
			return err
		}
		linked, failed = result.Linked, result.Failed
	}

	if err := f.datasource.SaveLinkingProgress(ctx, run.LinkingID, model.LinkingProgress{Processed: len(suggestions), Total: len(suggestions)}); err != nil {
		log.Printf("Error saving linking progress: %v", err)
	}
	if err := f.datasource.UpdateLinkingRunStatus(ctx, run.LinkingID, model.StatusCompleted, linked, failed); err != nil {
		log.Printf("Error updating linking run status: %v", err)
	}
	run.Status = model.StatusCompleted
	run.Linked = linked
	run.Failed = failed
	run.CompletedAt = ptr.Time(time.Now())
	if err := f.queue.queueIndexData(run.LinkingID, "linking_runs", run); err != nil {
		notification.NotifyError(err)
	}

	if err := SendWebhook(NewWebhook{Event: EventLinkingCompleted, Payload: map[string]interface{}{
		"linking_id": run.LinkingID,
		"dry_run":    run.IsDryRun,
		"linked":     linked,
		"failed":     failed,
	}}); err != nil {
		notification.NotifyError(err)
	}
	return nil
}

func (f *Fleetpay) postLinkActions(_ context.Context, suggestion model.LinkingSuggestion) {
	go func() {
		if err := f.queue.queueIndexData(suggestion.PaymentID, "payments", suggestion); err != nil {
			notification.NotifyError(err)
		}
		if err := SendWebhook(NewWebhook{Event: EventPaymentLinked, Payload: suggestion}); err != nil {
			notification.NotifyError(err)
		}
	}()
}
