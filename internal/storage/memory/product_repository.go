package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

// productRepositoryInMemory — простая in-memory реализация ProductRepository.
type productRepositoryInMemory struct {
	mu          sync.RWMutex
	items       map[int64]domain.Product
	images      map[int64]domain.ProductImage
	nextID      int64
	nextImageID int64
}

// NewProductRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{
		items:  make(map[int64]domain.Product),
		images: make(map[int64]domain.ProductImage),
	}
}

// Create сохраняет новый товар, проверяя уникальность штрихкода.
func (r *productRepositoryInMemory) Create(product domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Barcode == product.Barcode {
			return domain.Product{}, domain.ErrBarcodeTaken
		}
	}

	r.nextID++
	product.ID = r.nextID
	product.Images = nil
	r.items[product.ID] = product
	return r.withImages(product), nil
}

// Get возвращает товар с изображениями или ErrProductNotFound.
func (r *productRepositoryInMemory) Get(id int64) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return r.withImages(product), nil
}

// GetByBarcode возвращает товар по штрихкоду.
func (r *productRepositoryInMemory) GetByBarcode(barcode string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, product := range r.items {
		if product.Barcode == barcode {
			return r.withImages(product), nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

// List возвращает страницу каталога, отсортированную по ID.
func (r *productRepositoryInMemory) List(filter domain.ProductFilter) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		if filter.Section != "" && !strings.EqualFold(product.Section, filter.Section) {
			continue
		}
		if filter.OnlyAvailable && product.Stock <= 0 {
			continue
		}
		result = append(result, r.withImages(product))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return paginate(result, filter.Page, filter.Limit), nil
}

// Update перезаписывает поля товара, сохраняя контроль уникальности штрихкода.
func (r *productRepositoryInMemory) Update(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	for id, existing := range r.items {
		if id != product.ID && existing.Barcode == product.Barcode {
			return domain.ErrBarcodeTaken
		}
	}

	product.Stock = current.Stock
	product.Images = nil
	r.items[product.ID] = product
	return nil
}

// Delete удаляет товар вместе с записями изображений.
func (r *productRepositoryInMemory) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.items, id)
	for imageID, image := range r.images {
		if image.ProductID == id {
			delete(r.images, imageID)
		}
	}
	return nil
}

// AdjustStock применяет набор дельт атомарно: сначала все проверки, потом все записи.
func (r *productRepositoryInMemory) AdjustStock(deltas map[int64]int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for productID, delta := range deltas {
		product, ok := r.items[productID]
		if !ok {
			return domain.ErrProductNotFound
		}
		if product.Stock+delta < 0 {
			return &domain.InsufficientStockError{
				ProductID: productID,
				Requested: -delta,
				Available: product.Stock,
			}
		}
	}

	for productID, delta := range deltas {
		product := r.items[productID]
		product.Stock += delta
		r.items[productID] = product
	}
	return nil
}

// AddImage регистрирует изображение товара.
func (r *productRepositoryInMemory) AddImage(image domain.ProductImage) (domain.ProductImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[image.ProductID]; !ok {
		return domain.ProductImage{}, domain.ErrProductNotFound
	}

	r.nextImageID++
	image.ID = r.nextImageID
	r.images[image.ID] = image
	return image, nil
}

// DeleteImage удаляет запись изображения, возвращая её для очистки файла.
func (r *productRepositoryInMemory) DeleteImage(imageID int64) (domain.ProductImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	image, ok := r.images[imageID]
	if !ok {
		return domain.ProductImage{}, domain.ErrImageNotFound
	}
	delete(r.images, imageID)
	return image, nil
}

// withImages дополняет копию товара его изображениями. Вызывается под блокировкой.
func (r *productRepositoryInMemory) withImages(product domain.Product) domain.Product {
	images := make([]domain.ProductImage, 0)
	for _, image := range r.images {
		if image.ProductID == product.ID {
			images = append(images, image)
		}
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Position < images[j].Position })
	product.Images = images
	return product
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
