package httpapi

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
	"github.com/Welison92/luestilo-backoffice/internal/service/auth"
	"github.com/Welison92/luestilo-backoffice/internal/service/catalog"
	"github.com/Welison92/luestilo-backoffice/internal/service/clients"
	"github.com/Welison92/luestilo-backoffice/internal/service/orders"
)

// Server агрегирует сервисы, обслуживающие HTTP API.
type Server struct {
	auth       auth.Service
	clients    clients.Service
	clientRepo domain.ClientRepository
	catalog    catalog.Service
	orders     orders.Reconciler
	logger     *log.Entry
	staticDir  string
}

// Options задаёт параметры HTTP-сервера.
type Options struct {
	Auth       auth.Service
	Clients    clients.Service
	ClientRepo domain.ClientRepository
	Catalog    catalog.Service
	Orders     orders.Reconciler
	Logger     *log.Entry
	// StaticDir — каталог с изображениями товаров; пустой отключает /static.
	StaticDir string
}

// NewServer создаёт HTTP-сервер поверх сервисного слоя.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}
	return &Server{
		auth:       opts.Auth,
		clients:    opts.Clients,
		clientRepo: opts.ClientRepo,
		catalog:    opts.Catalog,
		orders:     opts.Orders,
		logger:     logger,
		staticDir:  opts.StaticDir,
	}
}

// Router собирает gin-движок с middleware и маршрутами.
// Имена маршрутов повторяют исторический контракт API.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.logger))
	router.Use(MetricsMiddleware())

	if s.staticDir != "" {
		router.Static("/static", s.staticDir)
	}

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", s.register)
		authGroup.POST("/login", s.login)
		authGroup.POST("/refresh-token", s.refreshToken)
	}

	authorized := router.Group("/", RequireAuth(s.auth, s.clientRepo))
	{
		authorized.POST("/auth/logout", s.logout)

		clientsGroup := authorized.Group("/clients")
		{
			clientsGroup.POST("/create_client", s.createClient)
			clientsGroup.GET("/get_detail_client/:id_client", s.getClient)
			clientsGroup.GET("/get_clients", s.listClients)
			clientsGroup.PUT("/update_client/:id_client", s.updateClient)
			clientsGroup.DELETE("/delete_client/:id_client", s.deleteClient)
		}

		productsGroup := authorized.Group("/products")
		{
			productsGroup.POST("/create_product", s.createProduct)
			productsGroup.GET("/get_detail_product/:product_id", s.getProduct)
			productsGroup.GET("/get_products", s.listProducts)
			productsGroup.PUT("/update_product/:product_id", s.updateProduct)
			productsGroup.DELETE("/delete_product/:product_id", s.deleteProduct)
			productsGroup.POST("/upload_image/:product_id", s.uploadImage)
			productsGroup.DELETE("/delete_image/:image_id", s.deleteImage)
		}

		ordersGroup := authorized.Group("/orders")
		{
			ordersGroup.POST("/create_order", s.createOrder)
			ordersGroup.GET("/get_detail_order/:order_id", s.getOrder)
			ordersGroup.GET("/get_orders", s.listOrders)
			ordersGroup.PUT("/update_order/:order_id", s.updateOrder)
			ordersGroup.DELETE("/delete_order/:order_id", s.deleteOrder)
			ordersGroup.GET("/get_history/:order_id", s.orderHistory)
		}
	}

	return router
}
