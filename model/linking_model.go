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
package model

import "time"

// MatchType identifies which tier of the linking engine produced a
// suggestion.
type MatchType string

const (
	MatchContractNumber MatchType = "contract_number"
	MatchAmountDate     MatchType = "amount_date"
)

// SuggestedAction tells the caller what to do with a suggestion.
type SuggestedAction string

const (
	ActionAutoLink       SuggestedAction = "auto_link"
	ActionReviewRequired SuggestedAction = "review_required"
	ActionManualLink     SuggestedAction = "manual_link"
)

// LinkingSuggestion proposes attaching one payment to a contract (and its
// customer). Confidence is a heuristic score in [0,1], not a calibrated
// probability. Suggestions are ephemeral; they are returned for review or
// consumed immediately by the auto-link executor, never persisted.
type LinkingSuggestion struct {
	PaymentID       string          `json:"payment_id"`
	ContractID      string          `json:"contract_id,omitempty"`
	CustomerID      string          `json:"customer_id,omitempty"`
	Confidence      float64         `json:"confidence"`
	Reasons         []string        `json:"reasons"`
	MatchType       MatchType       `json:"match_type"`
	SuggestedAction SuggestedAction `json:"suggested_action"`
}

// LinkError records one payment whose link update failed.
type LinkError struct {
	PaymentID string `json:"payment_id"`
	Message   string `json:"message"`
}

// LinkingResult is the terminal summary of a linking run.
type LinkingResult struct {
	Total          int                 `json:"total"`
	Linked         int                 `json:"linked"`
	Failed         int                 `json:"failed"`
	Suggestions    []LinkingSuggestion `json:"suggestions,omitempty"`
	Errors         []LinkError         `json:"errors,omitempty"`
	ProcessingTime string              `json:"processing_time"`
}

// LinkingRun is the persisted record of one linking invocation. Dry runs
// generate suggestions without writing any link.
type LinkingRun struct {
	ID          int64      `json:"-"`
	LinkingID   string     `json:"linking_id"`
	TenantID    string     `json:"tenant_id"`
	Status      string     `json:"status"`
	IsDryRun    bool       `json:"is_dry_run"`
	Linked      int        `json:"linked"`
	Failed      int        `json:"failed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// LinkingProgress tracks how far through the unlinked-payment set a run
// has advanced.
type LinkingProgress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}
