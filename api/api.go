package api

import (
	"net/http"

	"github.com/typesense/typesense-go/typesense/api"

	"github.com/fleetpay/fleetpay/config"

	"github.com/fleetpay/fleetpay/api/middleware"

	"github.com/fleetpay/fleetpay"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	service *fleetpay.Fleetpay
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/payments/import", a.StartImport)
	router.GET("/import-runs/:id", a.GetImportRun)
	router.GET("/import-runs/:id/progress", a.GetImportProgress)

	router.POST("/linking-runs", a.StartLinkingRun)
	router.GET("/linking-runs/:id", a.GetLinkingRun)
	router.GET("/linking/suggestions", a.GetLinkingSuggestions)

	router.POST("/customers", a.CreateCustomer)
	router.GET("/customers/:id", a.GetCustomer)
	router.GET("/customers", a.GetAllCustomers)

	router.POST("/contracts", a.CreateContract)
	router.GET("/contracts/:id", a.GetContract)
	router.GET("/contracts", a.GetAllContracts)

	router.GET("/payments/:id", a.GetPayment)
	router.GET("/payments/unlinked", a.GetUnlinkedPayments)

	router.GET("/mocked-payment", a.generateMockPayment)

	router.POST("/search/:collection", a.Search)
	router.POST("/reindex", a.StartReindex)
	router.GET("/reindex/progress", a.GetReindexProgress)
	return a.router
}

func NewAPI(service *fleetpay.Fleetpay) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware("FLEETPAY"))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{service: service, router: r}
}

func (a Api) Search(c *gin.Context) {
	collection, passed := c.Params.Get("collection")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection is required. pass id in the route /:collection"})
		return
	}

	var query api.SearchCollectionParams
	err := c.BindJSON(&query)
	if err != nil {
		return
	}

	resp, err := a.service.Search(collection, &query)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}
