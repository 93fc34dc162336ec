package domain

import "time"

// Product описывает товар каталога.
type Product struct {
	ID          int64
	Description string
	// PriceMinor — актуальная цена за единицу в сентаво.
	PriceMinor int64
	// Barcode уникален в пределах каталога; уникальность проверяется при записи.
	Barcode string
	Section string
	// Stock — доступный остаток. Инвариант: stock >= 0 в любой момент времени.
	Stock int32
	// ExpiryDate опционален (nil — товар без срока годности).
	ExpiryDate *time.Time
	Images     []ProductImage
}

// ProductImage — ссылка на загруженное изображение товара.
// Path формируется из ID товара и порядкового номера загрузки.
type ProductImage struct {
	ID        int64
	ProductID int64
	Path      string
	Position  int32
}

// Validate проверяет обязательные поля товара.
func (p *Product) Validate() []error {
	var errs []error

	if p.Description == "" {
		errs = append(errs, ErrDescriptionRequired)
	}
	if p.Barcode == "" {
		errs = append(errs, ErrBarcodeRequired)
	}
	if p.Section == "" {
		errs = append(errs, ErrSectionRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrPriceNegative)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}
