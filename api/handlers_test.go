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

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fleetpay/fleetpay"
	model2 "github.com/fleetpay/fleetpay/api/model"
	"github.com/fleetpay/fleetpay/config"
	"github.com/fleetpay/fleetpay/database/mocks"
	"github.com/fleetpay/fleetpay/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		err := json.NewDecoder(resp.Body).Decode(&s.Response)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func setupRouter(t *testing.T, mockDS *mocks.MockDataSource) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})
	service, err := fleetpay.NewFleetpay(mockDS)
	if err != nil {
		t.Fatalf("Failed to setup service: %v", err)
	}
	return NewAPI(service).Router()
}

func TestCreateCustomer(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	mockDS.On("CreateCustomer", mock.Anything, mock.Anything).Return(model.Customer{
		CustomerID:  "cst_01",
		TenantID:    "tnt_1",
		CompanyName: "Gulf Fleet Services",
	}, nil)
	router := setupRouter(t, mockDS)

	tests := []struct {
		name         string
		payload      model2.CreateCustomer
		expectedCode int
	}{
		{
			name: "Valid Customer",
			payload: model2.CreateCustomer{
				TenantID:    "tnt_1",
				CompanyName: "Gulf Fleet Services",
			},
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Missing Tenant",
			payload:      model2.CreateCustomer{CompanyName: "Gulf Fleet Services"},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "No Name At All",
			payload:      model2.CreateCustomer{TenantID: "tnt_1"},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payloadBytes, err := json.Marshal(tt.payload)
			assert.NoError(t, err)

			var response map[string]interface{}
			resp, err := SetUpTestRequest(TestRequest{
				Payload:  bytes.NewBuffer(payloadBytes),
				Router:   router,
				Response: &response,
				Method:   "POST",
				Route:    "/customers",
			})
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}

func TestCreateContract_Validation(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	router := setupRouter(t, mockDS)

	payload := model2.CreateContract{
		TenantID:      "tnt_1",
		MonthlyAmount: 950,
	}
	payloadBytes, err := json.Marshal(payload)
	assert.NoError(t, err)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBuffer(payloadBytes),
		Router:   router,
		Response: &response,
		Method:   "POST",
		Route:    "/contracts",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, response["errors"], "contract_number")
	mockDS.AssertNotCalled(t, "CreateContract")
}

func TestGetImportRun(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	mockDS.On("GetImportRun", mock.Anything, "imp_01").Return(&model.ImportRun{
		ImportID:   "imp_01",
		TenantID:   "tnt_1",
		Status:     model.StatusCompleted,
		Total:      40,
		Successful: 38,
		Failed:     2,
		StartedAt:  time.Now(),
	}, nil)
	router := setupRouter(t, mockDS)

	var run model.ImportRun
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &run,
		Method:   "GET",
		Route:    "/import-runs/imp_01",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "imp_01", run.ImportID)
	assert.Equal(t, model.StatusCompleted, run.Status)
	assert.Equal(t, 38, run.Successful)
}

func TestGetLinkingRun(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	mockDS.On("GetLinkingRun", mock.Anything, "lnk_01").Return(&model.LinkingRun{
		LinkingID: "lnk_01",
		TenantID:  "tnt_1",
		Status:    model.StatusInProgress,
		IsDryRun:  true,
		StartedAt: time.Now(),
	}, nil)
	router := setupRouter(t, mockDS)

	var run model.LinkingRun
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &run,
		Method:   "GET",
		Route:    "/linking-runs/lnk_01",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "lnk_01", run.LinkingID)
	assert.True(t, run.IsDryRun)
}

func TestStartLinkingRun_MissingTenant(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	router := setupRouter(t, mockDS)

	payloadBytes, err := json.Marshal(model2.StartLinking{DryRun: true})
	assert.NoError(t, err)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBuffer(payloadBytes),
		Router:   router,
		Response: &response,
		Method:   "POST",
		Route:    "/linking-runs",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	mockDS.AssertNotCalled(t, "RecordLinkingRun")
}

func TestGetUnlinkedPayments(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	mockDS.On("GetUnlinkedPayments", mock.Anything, "tnt_1", 50, 0).Return([]*model.Payment{
		{PaymentID: "pay_01", TenantID: "tnt_1", Amount: 950},
		{PaymentID: "pay_02", TenantID: "tnt_1", Amount: 1500},
	}, nil)
	router := setupRouter(t, mockDS)

	var payments []*model.Payment
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &payments,
		Method:   "GET",
		Route:    "/payments/unlinked?tenant_id=tnt_1",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, payments, 2)
	assert.Equal(t, "pay_01", payments[0].PaymentID)
}

func TestGetUnlinkedPayments_RequiresTenant(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	router := setupRouter(t, mockDS)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   "GET",
		Route:    "/payments/unlinked",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	mockDS.AssertNotCalled(t, "GetUnlinkedPayments")
}

func TestStartImport_NoFile(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	router := setupRouter(t, mockDS)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBufferString(""),
		Router:   router,
		Response: &response,
		Method:   "POST",
		Route:    "/payments/import",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "File upload failed", response["error"])
}

func TestHealthRoute(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	router := setupRouter(t, mockDS)

	var response string
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   "GET",
		Route:    "/",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "server running...", response)
}
