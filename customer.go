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

func (f *Fleetpay) postCustomerActions(_ context.Context, customer *model.Customer) {
	go func() {
		err := f.queue.queueIndexData(customer.CustomerID, "customers", customer)
		if err != nil {
			notification.NotifyError(err)
		}
		err = SendWebhook(NewWebhook{
			Event:   "customer.created",
			Payload: customer,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

func (f *Fleetpay) CreateCustomer(ctx context.Context, customer model.Customer) (model.Customer, error) {
	customer, err := f.datasource.CreateCustomer(ctx, customer)
	if err != nil {
		return model.Customer{}, err
	}
	f.postCustomerActions(ctx, &customer)
	return customer, nil
}

func (f *Fleetpay) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	return f.datasource.GetCustomerByID(ctx, id)
}

func (f *Fleetpay) GetCustomers(ctx context.Context, tenantID string) ([]*model.Customer, error) {
	return f.datasource.GetCustomersByTenant(ctx, tenantID)
}
