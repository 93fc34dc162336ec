package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
	"github.com/Welison92/luestilo-backoffice/internal/service/clients"
)

type clientRequest struct {
	Name     string `json:"name" binding:"required"`
	LastName string `json:"last_name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	CPF      string `json:"cpf" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

type clientOutput struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	CPF      string `json:"cpf"`
	Phone    string `json:"phone"`
}

func newClientOutput(client domain.Client) clientOutput {
	return clientOutput{
		ID:       client.ID,
		Name:     client.Name,
		LastName: client.LastName,
		Email:    client.Email,
		CPF:      client.CPF,
		Phone:    client.Phone,
	}
}

func (s *Server) createClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Corpo da requisição inválido", err)
		return
	}

	client, err := s.clients.Create(clients.Input{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		CPF:      req.CPF,
		Phone:    req.Phone,
	})
	if err != nil {
		respondDomainError(c, "Falha ao criar cliente", err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Cliente criado com sucesso", newClientOutput(client))
}

func (s *Server) getClient(c *gin.Context) {
	id, ok := pathID(c, "id_client")
	if !ok {
		return
	}

	client, err := s.clients.Get(id)
	if err != nil {
		respondDomainError(c, "Cliente não encontrado", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Dados do cliente retornados com sucesso", newClientOutput(client))
}

func (s *Server) listClients(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}

	list, err := s.clients.List(domain.ClientFilter{
		Name:  c.Query("name"),
		Email: c.Query("email"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		respondDomainError(c, "Falha ao listar clientes", err)
		return
	}

	outputs := make([]clientOutput, 0, len(list))
	for _, client := range list {
		outputs = append(outputs, newClientOutput(client))
	}
	respondSuccess(c, http.StatusOK, "Clientes retornados com sucesso", outputs)
}

func (s *Server) updateClient(c *gin.Context) {
	id, ok := pathID(c, "id_client")
	if !ok {
		return
	}

	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Corpo da requisição inválido", err)
		return
	}

	client, err := s.clients.Update(id, clients.Input{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		CPF:      req.CPF,
		Phone:    req.Phone,
	})
	if err != nil {
		respondDomainError(c, "Falha ao atualizar cliente", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Cliente atualizado com sucesso", newClientOutput(client))
}

func (s *Server) deleteClient(c *gin.Context) {
	id, ok := pathID(c, "id_client")
	if !ok {
		return
	}

	if err := s.clients.Delete(id); err != nil {
		respondDomainError(c, "Falha ao excluir cliente", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Cliente excluído com sucesso", nil)
}

// pathID разбирает числовой идентификатор из параметра пути.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "Identificador inválido", nil)
		return 0, false
	}
	return id, true
}

// parsePositiveInt разбирает положительный числовой параметр запроса.
func parsePositiveInt(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

// pagination разбирает параметры page/limit с значениями по умолчанию.
func pagination(c *gin.Context) (page, limit int, ok bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		respondError(c, http.StatusBadRequest, "Parâmetro page inválido", nil)
		return 0, 0, false
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		respondError(c, http.StatusBadRequest, "Parâmetro limit inválido", nil)
		return 0, 0, false
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, true
}
