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

	"github.com/fleetpay/fleetpay/internal/notification"
	"github.com/fleetpay/fleetpay/model"
)

func (f *Fleetpay) postContractActions(_ context.Context, contract *model.Contract) {
	go func() {
		err := f.queue.queueIndexData(contract.ContractID, "contracts", contract)
		if err != nil {
			notification.NotifyError(err)
		}
		err = SendWebhook(NewWebhook{
			Event:   "contract.created",
			Payload: contract,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

func (f *Fleetpay) CreateContract(ctx context.Context, contract model.Contract) (model.Contract, error) {
	contract, err := f.datasource.CreateContract(ctx, contract)
	if err != nil {
		return model.Contract{}, err
	}
	f.postContractActions(ctx, &contract)
	return contract, nil
}

func (f *Fleetpay) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	return f.datasource.GetContractByID(ctx, id)
}

func (f *Fleetpay) GetActiveContracts(ctx context.Context, tenantID string) ([]*model.Contract, error) {
	return f.datasource.GetActiveContractsByTenant(ctx, tenantID)
}
