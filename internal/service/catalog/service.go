// Package catalog реализует управление каталогом товаров и их изображениями.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

// CreateInput описывает запрос на создание товара.
type CreateInput struct {
	Description string
	PriceMinor  int64
	Barcode     string
	Section     string
	Stock       int32
	ExpiryDate  *time.Time
}

// UpdateInput описывает запрос на изменение товара. Остаток не принимается:
// его меняют только заказы.
type UpdateInput struct {
	Description string
	PriceMinor  int64
	Barcode     string
	Section     string
	ExpiryDate  *time.Time
}

// Service описывает операции каталога.
type Service interface {
	Create(input CreateInput) (domain.Product, error)
	Get(id int64) (domain.Product, error)
	List(filter domain.ProductFilter) ([]domain.Product, error)
	Update(id int64, input UpdateInput) (domain.Product, error)
	Delete(id int64) error
	// AddImage сохраняет файл изображения и привязывает его к товару.
	AddImage(productID int64, filename string, data io.Reader) (domain.ProductImage, error)
	DeleteImage(imageID int64) error
}

type service struct {
	products domain.ProductRepository
	files    domain.FileStore
	logger   *log.Entry
}

// New создаёт сервис каталога.
func New(products domain.ProductRepository, files domain.FileStore, logger *log.Entry) Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &service{
		products: products,
		files:    files,
		logger:   logger,
	}
}

func (s *service) Create(input CreateInput) (domain.Product, error) {
	product := domain.Product{
		Description: strings.TrimSpace(input.Description),
		PriceMinor:  input.PriceMinor,
		Barcode:     strings.TrimSpace(input.Barcode),
		Section:     strings.TrimSpace(input.Section),
		Stock:       input.Stock,
		ExpiryDate:  input.ExpiryDate,
	}
	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, errors.Join(errs...)
	}

	created, err := s.products.Create(product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": created.ID,
		"barcode":    created.Barcode,
	}).Info("product created")
	return created, nil
}

func (s *service) Get(id int64) (domain.Product, error) {
	return s.products.Get(id)
}

func (s *service) List(filter domain.ProductFilter) ([]domain.Product, error) {
	return s.products.List(filter)
}

func (s *service) Update(id int64, input UpdateInput) (domain.Product, error) {
	current, err := s.products.Get(id)
	if err != nil {
		return domain.Product{}, err
	}

	current.Description = strings.TrimSpace(input.Description)
	current.PriceMinor = input.PriceMinor
	current.Barcode = strings.TrimSpace(input.Barcode)
	current.Section = strings.TrimSpace(input.Section)
	current.ExpiryDate = input.ExpiryDate
	if errs := current.Validate(); len(errs) > 0 {
		return domain.Product{}, errors.Join(errs...)
	}

	if err := s.products.Update(current); err != nil {
		return domain.Product{}, err
	}
	return s.products.Get(id)
}

// Delete удаляет товар вместе с файлами изображений.
func (s *service) Delete(id int64) error {
	product, err := s.products.Get(id)
	if err != nil {
		return err
	}

	if err := s.products.Delete(id); err != nil {
		return err
	}

	for _, image := range product.Images {
		if s.files == nil {
			break
		}
		if err := s.files.Remove(image.Path); err != nil {
			s.logger.WithError(err).WithField("path", image.Path).Warn("failed to remove image file")
		}
	}

	s.logger.WithField("product_id", id).Info("product deleted")
	return nil
}

// AddImage сохраняет файл под детерминированным именем
// (product_<id>_<position><ext>) и регистрирует запись изображения.
func (s *service) AddImage(productID int64, filename string, data io.Reader) (domain.ProductImage, error) {
	product, err := s.products.Get(productID)
	if err != nil {
		return domain.ProductImage{}, err
	}

	position := int32(len(product.Images) + 1)
	name := fmt.Sprintf("product_%d_%d%s", productID, position, path.Ext(filename))

	ref, err := s.files.Save(name, data)
	if err != nil {
		return domain.ProductImage{}, fmt.Errorf("save image: %w", err)
	}

	image, err := s.products.AddImage(domain.ProductImage{
		ProductID: productID,
		Path:      ref,
		Position:  position,
	})
	if err != nil {
		// Запись не создана: файл больше никому не принадлежит.
		if removeErr := s.files.Remove(ref); removeErr != nil {
			s.logger.WithError(removeErr).WithField("path", ref).Warn("failed to remove orphan image file")
		}
		return domain.ProductImage{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": productID,
		"image_id":   image.ID,
		"path":       image.Path,
	}).Info("product image added")
	return image, nil
}

func (s *service) DeleteImage(imageID int64) error {
	image, err := s.products.DeleteImage(imageID)
	if err != nil {
		return err
	}

	if s.files != nil {
		if err := s.files.Remove(image.Path); err != nil {
			s.logger.WithError(err).WithField("path", image.Path).Warn("failed to remove image file")
		}
	}
	return nil
}
