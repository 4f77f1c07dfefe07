package api

import (
	"net/http"
	"strconv"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"

	model2 "github.com/fleetpay/fleetpay/api/model"
)

func (a Api) CreateCustomer(c *gin.Context) {
	var newCustomer model2.CreateCustomer
	if err := c.ShouldBindJSON(&newCustomer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := newCustomer.ValidateCreateCustomer()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.service.CreateCustomer(c.Request.Context(), newCustomer.ToCustomer())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetCustomer(c *gin.Context) {
	id := c.Param("id")

	customer, err := a.service.GetCustomer(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (a Api) GetAllCustomers(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}

	customers, err := a.service.GetCustomers(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (a Api) CreateContract(c *gin.Context) {
	var newContract model2.CreateContract
	if err := c.ShouldBindJSON(&newContract); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := newContract.ValidateCreateContract()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.service.CreateContract(c.Request.Context(), newContract.ToContract())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetContract(c *gin.Context) {
	id := c.Param("id")

	contract, err := a.service.GetContract(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (a Api) GetAllContracts(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}

	contracts, err := a.service.GetActiveContracts(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, contracts)
}

func (a Api) GetPayment(c *gin.Context) {
	id := c.Param("id")

	payment, err := a.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (a Api) GetUnlinkedPayments(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a number"})
		return
	}

	payments, err := a.service.GetUnlinkedPayments(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (a Api) generateMockPayment(c *gin.Context) {
	c.JSON(200, gin.H{
		"customer_name":  gofakeit.Company(),
		"amount":         gofakeit.Price(100, 5000),
		"payment_date":   gofakeit.Date().Format("2006-01-02"),
		"payment_method": "bank_transfer",
	})
}
