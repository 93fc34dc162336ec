package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
	"github.com/Welison92/luestilo-backoffice/internal/service/auth"
	"github.com/Welison92/luestilo-backoffice/internal/service/catalog"
	"github.com/Welison92/luestilo-backoffice/internal/service/clients"
	"github.com/Welison92/luestilo-backoffice/internal/service/orders"
	"github.com/Welison92/luestilo-backoffice/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nullFileStore struct{}

func (nullFileStore) Save(name string, _ io.Reader) (string, error) { return "/static/" + name, nil }
func (nullFileStore) Remove(string) error                           { return nil }

type apiFixture struct {
	router     *gin.Engine
	clients    clients.Service
	catalog    catalog.Service
	staffToken string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	clientRepo := memory.NewClientRepository()
	userRepo := memory.NewUserRepository()
	sessionRepo := memory.NewSessionRepository()
	productRepo := memory.NewProductRepository()
	orderRepo := memory.NewOrderRepository(productRepo)
	historyRepo := memory.NewHistoryRepository()
	outboxRepo := memory.NewOutboxRepository()

	authSvc := auth.New(userRepo, clientRepo, sessionRepo, nil)
	reconciler := orders.NewReconcilerWithoutMetrics(orderRepo, productRepo, clientRepo, historyRepo, outboxRepo, nil)
	clientSvc := clients.New(clientRepo, userRepo, reconciler, nil)
	catalogSvc := catalog.New(productRepo, nullFileStore{}, nil)

	server := NewServer(Options{
		Auth:       authSvc,
		Clients:    clientSvc,
		ClientRepo: clientRepo,
		Catalog:    catalogSvc,
		Orders:     reconciler,
	})

	f := &apiFixture{
		router:  server.Router(),
		clients: clientSvc,
		catalog: catalogSvc,
	}
	f.staffToken = f.registerAndLogin(t, "staff@luestilo.com.br")
	return f
}

func (f *apiFixture) registerAndLogin(t *testing.T, email string) string {
	t.Helper()

	resp := f.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"email":    email,
		"password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = f.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email":    email,
		"password": "s3cret",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AccessToken)
	return body.Data.AccessToken
}

// registerClient регистрирует пользователя и создаёт парного клиента.
func (f *apiFixture) registerClient(t *testing.T, email, cpf string) (domain.Client, string) {
	t.Helper()

	token := f.registerAndLogin(t, email)

	client, err := f.clients.Create(clients.Input{
		Name:     "Ana",
		LastName: "Souza",
		Email:    email,
		CPF:      cpf,
		Phone:    "(11) 98765-4321",
	})
	require.NoError(t, err)
	return client, token
}

func (f *apiFixture) createProduct(t *testing.T, barcode string, stock int32) int64 {
	t.Helper()

	product, err := f.catalog.Create(catalog.CreateInput{
		Description: "Camisa polo",
		PriceMinor:  7990,
		Barcode:     barcode,
		Section:     "masculino",
		Stock:       stock,
	})
	require.NoError(t, err)
	return product.ID
}

func (f *apiFixture) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return resp
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/orders/get_orders", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.do(t, http.MethodGet, "/orders/get_orders", "bogus-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"email":    "staff@luestilo.com.br",
		"password": "other",
	})
	require.Equal(t, http.StatusConflict, resp.Code)

	body := decodeResponse(t, resp)
	require.Equal(t, "error", body.Status)
	require.Equal(t, http.StatusConflict, body.Code)
}

func TestCreateOrderFlow(t *testing.T) {
	f := newAPIFixture(t)

	client, _ := f.registerClient(t, "ana@lojas.com.br", "123.456.789-09")
	productID := f.createProduct(t, "7891234567890", 5)

	resp := f.do(t, http.MethodPost, "/orders/create_order", f.staffToken, gin.H{
		"client_id": client.ID,
		"items":     []gin.H{{"product_id": productID, "qty": 3}},
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	body := decodeResponse(t, resp)
	require.Equal(t, "success", body.Status)

	data, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var order orderOutput
	require.NoError(t, json.Unmarshal(data, &order))
	require.Equal(t, "PENDING", order.Status)
	require.Equal(t, int32(3), order.TotalItems)
	require.Equal(t, int64(3*7990), order.TotalMinor)

	// остаток списан
	got, getErr := f.catalog.Get(productID)
	require.NoError(t, getErr)
	require.Equal(t, int32(2), got.Stock)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newAPIFixture(t)

	client, _ := f.registerClient(t, "ana@lojas.com.br", "123.456.789-09")
	productID := f.createProduct(t, "7891234567890", 2)

	resp := f.do(t, http.MethodPost, "/orders/create_order", f.staffToken, gin.H{
		"client_id": client.ID,
		"items":     []gin.H{{"product_id": productID, "qty": 3}},
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	body := decodeResponse(t, resp)
	require.Equal(t, "error", body.Status)

	data, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var details struct {
		ProductID int64 `json:"product_id"`
		Requested int32 `json:"requested"`
		Available int32 `json:"available"`
	}
	require.NoError(t, json.Unmarshal(data, &details))
	require.Equal(t, productID, details.ProductID)
	require.Equal(t, int32(3), details.Requested)
	require.Equal(t, int32(2), details.Available)
}

func TestClientTokenOwnsOrders(t *testing.T) {
	f := newAPIFixture(t)

	_, anaToken := f.registerClient(t, "ana@lojas.com.br", "123.456.789-09")
	other, _ := f.registerClient(t, "bia@lojas.com.br", "987.654.321-00")
	productID := f.createProduct(t, "7891234567890", 10)

	// клиентский токен игнорирует чужой client_id в теле
	resp := f.do(t, http.MethodPost, "/orders/create_order", anaToken, gin.H{
		"client_id": other.ID,
		"items":     []gin.H{{"product_id": productID, "qty": 1}},
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	// заказ второго клиента недоступен первому
	resp = f.do(t, http.MethodPost, "/orders/create_order", f.staffToken, gin.H{
		"client_id": other.ID,
		"items":     []gin.H{{"product_id": productID, "qty": 1}},
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	body := decodeResponse(t, resp)
	data, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var otherOrder orderOutput
	require.NoError(t, json.Unmarshal(data, &otherOrder))

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/orders/get_detail_order/%d", otherOrder.ID), anaToken, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, http.MethodDelete, fmt.Sprintf("/orders/delete_order/%d", otherOrder.ID), anaToken, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)

	// журнал чужого заказа тоже закрыт
	resp = f.do(t, http.MethodGet, fmt.Sprintf("/orders/get_history/%d", otherOrder.ID), anaToken, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/orders/get_history/%d", otherOrder.ID), f.staffToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestListOrdersEmptyFilter(t *testing.T) {
	f := newAPIFixture(t)

	client, _ := f.registerClient(t, "ana@lojas.com.br", "123.456.789-09")
	productID := f.createProduct(t, "7891234567890", 5)

	resp := f.do(t, http.MethodPost, "/orders/create_order", f.staffToken, gin.H{
		"client_id": client.ID,
		"items":     []gin.H{{"product_id": productID, "qty": 1}},
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = f.do(t, http.MethodGet, "/orders/get_orders?category=feminino", f.staffToken, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)

	body := decodeResponse(t, resp)
	data, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var details struct {
		Filter string `json:"filter"`
		Value  string `json:"value"`
	}
	require.NoError(t, json.Unmarshal(data, &details))
	require.Equal(t, "section", details.Filter)
	require.Equal(t, "feminino", details.Value)
}

func TestListOrdersInvalidDate(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/orders/get_orders?start_date=01-06-2025", f.staffToken, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateOrderStatusCanceledRestoresStock(t *testing.T) {
	f := newAPIFixture(t)

	client, _ := f.registerClient(t, "ana@lojas.com.br", "123.456.789-09")
	productID := f.createProduct(t, "7891234567890", 5)

	resp := f.do(t, http.MethodPost, "/orders/create_order", f.staffToken, gin.H{
		"client_id": client.ID,
		"items":     []gin.H{{"product_id": productID, "qty": 3}},
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	body := decodeResponse(t, resp)
	data, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var order orderOutput
	require.NoError(t, json.Unmarshal(data, &order))

	resp = f.do(t, http.MethodPut, fmt.Sprintf("/orders/update_order/%d", order.ID), f.staffToken, gin.H{
		"status": "CANCELED",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	product, err := f.catalog.Get(productID)
	require.NoError(t, err)
	require.Equal(t, int32(5), product.Stock)

	// отменённый заказ больше не существует
	resp = f.do(t, http.MethodGet, fmt.Sprintf("/orders/get_detail_order/%d", order.ID), f.staffToken, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)

	// история переживает удаление заказа
	resp = f.do(t, http.MethodGet, fmt.Sprintf("/orders/get_history/%d", order.ID), f.staffToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestUpdateOrderInvalidStatus(t *testing.T) {
	f := newAPIFixture(t)

	client, _ := f.registerClient(t, "ana@lojas.com.br", "123.456.789-09")
	productID := f.createProduct(t, "7891234567890", 5)

	resp := f.do(t, http.MethodPost, "/orders/create_order", f.staffToken, gin.H{
		"client_id": client.ID,
		"items":     []gin.H{{"product_id": productID, "qty": 1}},
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	body := decodeResponse(t, resp)
	data, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var order orderOutput
	require.NoError(t, json.Unmarshal(data, &order))

	resp = f.do(t, http.MethodPut, fmt.Sprintf("/orders/update_order/%d", order.ID), f.staffToken, gin.H{
		"status": "SHIPPED",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateProductConflict(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/products/create_product", f.staffToken, gin.H{
		"description": "Camisa polo",
		"price_minor": 7990,
		"barcode":     "7891234567890",
		"section":     "masculino",
		"stock":       5,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = f.do(t, http.MethodPost, "/products/create_product", f.staffToken, gin.H{
		"description": "Camisa polo verde",
		"price_minor": 8990,
		"barcode":     "7891234567890",
		"section":     "masculino",
		"stock":       2,
	})
	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestDeleteClientReleasesOrders(t *testing.T) {
	f := newAPIFixture(t)

	client, _ := f.registerClient(t, "ana@lojas.com.br", "123.456.789-09")
	productID := f.createProduct(t, "7891234567890", 5)

	resp := f.do(t, http.MethodPost, "/orders/create_order", f.staffToken, gin.H{
		"client_id": client.ID,
		"items":     []gin.H{{"product_id": productID, "qty": 3}},
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = f.do(t, http.MethodDelete, fmt.Sprintf("/clients/delete_client/%d", client.ID), f.staffToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	product, err := f.catalog.Get(productID)
	require.NoError(t, err)
	require.Equal(t, int32(5), product.Stock)

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/clients/get_detail_client/%d", client.ID), f.staffToken, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetClientsFilter(t *testing.T) {
	f := newAPIFixture(t)

	f.registerClient(t, "ana@lojas.com.br", "123.456.789-09")

	resp := f.do(t, http.MethodGet, "/clients/get_clients?name=ana", f.staffToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	body := decodeResponse(t, resp)
	data, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var list []clientOutput
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 1)
	require.Equal(t, "12345678909", list[0].CPF)
}
