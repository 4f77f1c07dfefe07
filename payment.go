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

	"github.com/fleetpay/fleetpay/model"
)

func (f *Fleetpay) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	return f.datasource.GetPayment(ctx, id)
}

func (f *Fleetpay) GetUnlinkedPayments(ctx context.Context, tenantID string, limit, offset int) ([]*model.Payment, error) {
	return f.datasource.GetUnlinkedPayments(ctx, tenantID, limit, offset)
}
