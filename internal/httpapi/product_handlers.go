package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
	"github.com/Welison92/luestilo-backoffice/internal/service/catalog"
)

type productRequest struct {
	Description string `json:"description" binding:"required"`
	PriceMinor  int64  `json:"price_minor"`
	Barcode     string `json:"barcode" binding:"required"`
	Section     string `json:"section" binding:"required"`
	Stock       int32  `json:"stock"`
	ExpiryDate  string `json:"expiry_date"`
}

type productImageOutput struct {
	ID       int64  `json:"id"`
	Path     string `json:"path"`
	Position int32  `json:"position"`
}

type productOutput struct {
	ID          int64                `json:"id"`
	Description string               `json:"description"`
	PriceMinor  int64                `json:"price_minor"`
	Barcode     string               `json:"barcode"`
	Section     string               `json:"section"`
	Stock       int32                `json:"stock"`
	ExpiryDate  string               `json:"expiry_date,omitempty"`
	Images      []productImageOutput `json:"images"`
}

func newProductOutput(product domain.Product) productOutput {
	output := productOutput{
		ID:          product.ID,
		Description: product.Description,
		PriceMinor:  product.PriceMinor,
		Barcode:     product.Barcode,
		Section:     product.Section,
		Stock:       product.Stock,
		Images:      make([]productImageOutput, 0, len(product.Images)),
	}
	if product.ExpiryDate != nil {
		output.ExpiryDate = product.ExpiryDate.Format(dateLayout)
	}
	for _, image := range product.Images {
		output.Images = append(output.Images, productImageOutput{
			ID:       image.ID,
			Path:     image.Path,
			Position: image.Position,
		})
	}
	return output
}

const dateLayout = "2006-01-02"

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, domain.ErrDateInvalid
	}
	return &parsed, nil
}

func (s *Server) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Corpo da requisição inválido", err)
		return
	}

	expiry, err := parseOptionalDate(req.ExpiryDate)
	if err != nil {
		respondDomainError(c, "Data de validade inválida", err)
		return
	}

	product, err := s.catalog.Create(catalog.CreateInput{
		Description: req.Description,
		PriceMinor:  req.PriceMinor,
		Barcode:     req.Barcode,
		Section:     req.Section,
		Stock:       req.Stock,
		ExpiryDate:  expiry,
	})
	if err != nil {
		respondDomainError(c, "Falha ao criar produto", err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Produto criado com sucesso", newProductOutput(product))
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	product, err := s.catalog.Get(id)
	if err != nil {
		respondDomainError(c, "Produto não encontrado", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Dados do produto retornados com sucesso", newProductOutput(product))
}

func (s *Server) listProducts(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}

	list, err := s.catalog.List(domain.ProductFilter{
		Section:       c.Query("section"),
		OnlyAvailable: c.Query("available") == "true",
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		respondDomainError(c, "Falha ao listar produtos", err)
		return
	}

	outputs := make([]productOutput, 0, len(list))
	for _, product := range list {
		outputs = append(outputs, newProductOutput(product))
	}
	respondSuccess(c, http.StatusOK, "Produtos retornados com sucesso", outputs)
}

func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Corpo da requisição inválido", err)
		return
	}

	expiry, err := parseOptionalDate(req.ExpiryDate)
	if err != nil {
		respondDomainError(c, "Data de validade inválida", err)
		return
	}

	product, err := s.catalog.Update(id, catalog.UpdateInput{
		Description: req.Description,
		PriceMinor:  req.PriceMinor,
		Barcode:     req.Barcode,
		Section:     req.Section,
		ExpiryDate:  expiry,
	})
	if err != nil {
		respondDomainError(c, "Falha ao atualizar produto", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Produto atualizado com sucesso", newProductOutput(product))
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	if err := s.catalog.Delete(id); err != nil {
		respondDomainError(c, "Falha ao excluir produto", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Produto excluído com sucesso", nil)
}

func (s *Server) uploadImage(c *gin.Context) {
	id, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Arquivo de imagem ausente", err)
		return
	}

	reader, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Falha ao ler arquivo de imagem", err)
		return
	}
	defer func() { _ = reader.Close() }()

	image, err := s.catalog.AddImage(id, file.Filename, reader)
	if err != nil {
		respondDomainError(c, "Falha ao salvar imagem", err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Imagem salva com sucesso", productImageOutput{
		ID:       image.ID,
		Path:     image.Path,
		Position: image.Position,
	})
}

func (s *Server) deleteImage(c *gin.Context) {
	id, ok := pathID(c, "image_id")
	if !ok {
		return
	}

	if err := s.catalog.DeleteImage(id); err != nil {
		respondDomainError(c, "Falha ao excluir imagem", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Imagem excluída com sucesso", nil)
}
