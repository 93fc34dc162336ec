package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
	"github.com/Welison92/luestilo-backoffice/internal/service/orders"
)

type orderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Qty       int32 `json:"qty" binding:"required"`
}

type createOrderRequest struct {
	ClientID int64              `json:"client_id"`
	Items    []orderItemRequest `json:"items" binding:"required"`
}

type updateOrderRequest struct {
	Status string             `json:"status"`
	Items  []orderItemRequest `json:"items"`
}

type orderItemOutput struct {
	ID         int64 `json:"id"`
	ProductID  int64 `json:"product_id"`
	Qty        int32 `json:"qty"`
	PriceMinor int64 `json:"price_minor"`
}

type orderOutput struct {
	ID         int64             `json:"id"`
	ClientID   int64             `json:"client_id"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	Items      []orderItemOutput `json:"items"`
	TotalItems int32             `json:"total_items"`
	TotalMinor int64             `json:"total_minor"`
}

type historyEventOutput struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func newOrderOutput(order domain.Order) orderOutput {
	output := orderOutput{
		ID:         order.ID,
		ClientID:   order.ClientID,
		Status:     string(order.Status),
		CreatedAt:  order.CreatedAt,
		Items:      make([]orderItemOutput, 0, len(order.Items)),
		TotalItems: order.TotalItems(),
		TotalMinor: order.TotalMinor(),
	}
	for _, item := range order.Items {
		output.Items = append(output.Items, orderItemOutput{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
		})
	}
	return output
}

func toItemInputs(items []orderItemRequest) []orders.ItemInput {
	inputs := make([]orders.ItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, orders.ItemInput{
			ProductID: item.ProductID,
			Qty:       item.Qty,
		})
	}
	return inputs
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Corpo da requisição inválido", err)
		return
	}

	forClient := currentClientID(c)
	clientID := req.ClientID
	// Авторизованный клиент создаёт заказы только на себя.
	if forClient > 0 {
		clientID = forClient
	}

	order, err := s.orders.Create(orders.CreateInput{
		ClientID: clientID,
		Items:    toItemInputs(req.Items),
	}, forClient)
	if err != nil {
		respondDomainError(c, "Falha ao criar pedido", err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Pedido criado com sucesso", newOrderOutput(order))
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	order, err := s.orders.Get(id, currentClientID(c))
	if err != nil {
		respondDomainError(c, "Pedido não encontrado", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Dados do pedido retornados com sucesso", newOrderOutput(order))
}

func (s *Server) listOrders(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}

	filter := orders.Filter{
		Section: c.Query("category"),
		Status:  c.Query("status"),
		Page:    page,
		Limit:   limit,
	}

	if value := c.Query("order_id"); value != "" {
		id, err := parsePositiveInt(value)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Parâmetro order_id inválido", nil)
			return
		}
		filter.OrderID = id
	}
	if value := c.Query("client_id"); value != "" {
		id, err := parsePositiveInt(value)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Parâmetro client_id inválido", nil)
			return
		}
		filter.ClientID = id
	}

	from, err := parseOptionalDate(c.Query("start_date"))
	if err != nil {
		respondDomainError(c, "Data inicial inválida", err)
		return
	}
	filter.From = from

	to, err := parseOptionalDate(c.Query("end_date"))
	if err != nil {
		respondDomainError(c, "Data final inválida", err)
		return
	}
	if to != nil {
		// Граница включает весь день end_date.
		inclusive := to.Add(24*time.Hour - time.Second)
		filter.To = &inclusive
	}

	list, err := s.orders.List(filter, currentClientID(c))
	if err != nil {
		respondDomainError(c, "Falha ao listar pedidos", err)
		return
	}

	outputs := make([]orderOutput, 0, len(list))
	for _, order := range list {
		outputs = append(outputs, newOrderOutput(order))
	}
	respondSuccess(c, http.StatusOK, "Pedidos retornados com sucesso", outputs)
}

func (s *Server) updateOrder(c *gin.Context) {
	id, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Corpo da requisição inválido", err)
		return
	}

	input := orders.UpdateInput{}
	if req.Status != "" {
		status := domain.OrderStatus(req.Status)
		input.Status = &status
	}
	if len(req.Items) > 0 {
		input.Items = toItemInputs(req.Items)
	}

	order, err := s.orders.Update(id, input, currentClientID(c))
	if err != nil {
		respondDomainError(c, "Falha ao atualizar pedido", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Pedido atualizado com sucesso", newOrderOutput(order))
}

func (s *Server) deleteOrder(c *gin.Context) {
	id, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	if err := s.orders.Delete(id, currentClientID(c)); err != nil {
		respondDomainError(c, "Falha ao excluir pedido", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Pedido excluído com sucesso", nil)
}

func (s *Server) orderHistory(c *gin.Context) {
	id, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	events, err := s.orders.History(id, currentClientID(c))
	if err != nil {
		respondDomainError(c, "Histórico não encontrado", err)
		return
	}

	outputs := make([]historyEventOutput, 0, len(events))
	for _, event := range events {
		outputs = append(outputs, historyEventOutput{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	respondSuccess(c, http.StatusOK, "Histórico retornado com sucesso", outputs)
}
