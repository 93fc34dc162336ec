package domain

import "time"

// ProductFilter задаёт необязательные условия листинга каталога.
type ProductFilter struct {
	// Section — точное совпадение секции без учёта регистра.
	Section string
	// OnlyAvailable оставляет только товары с положительным остатком.
	OnlyAvailable bool
	Page          int
	Limit         int
}

// ProductRepository описывает требования к хранилищу каталога.
type ProductRepository interface {
	// Create сохраняет новый товар. Возвращает ErrBarcodeTaken при дубле штрихкода.
	Create(product Product) (Product, error)
	// Get возвращает товар с изображениями или ErrProductNotFound.
	Get(id int64) (Product, error)
	// GetByBarcode возвращает товар по штрихкоду или ErrProductNotFound.
	GetByBarcode(barcode string) (Product, error)
	// List возвращает страницу каталога по фильтру.
	List(filter ProductFilter) ([]Product, error)
	// Update перезаписывает поля товара (кроме изображений).
	Update(product Product) error
	// Delete удаляет товар вместе с изображениями.
	Delete(id int64) error
	// AdjustStock применяет набор дельт остатков атомарно: либо все, либо ни одной.
	// Дельта, уводящая остаток ниже нуля, отклоняет весь набор с
	// InsufficientStockError по первому нарушившему товару.
	AdjustStock(deltas map[int64]int32) error
	// AddImage регистрирует загруженное изображение товара.
	AddImage(image ProductImage) (ProductImage, error)
	// DeleteImage удаляет запись изображения и возвращает её для очистки файла.
	DeleteImage(imageID int64) (ProductImage, error)
}

// ClientFilter задаёт необязательные условия листинга клиентов.
type ClientFilter struct {
	// Name и Email — подстрочные совпадения без учёта регистра.
	Name  string
	Email string
	Page  int
	Limit int
}

// ClientRepository описывает требования к хранилищу клиентов.
type ClientRepository interface {
	// Create сохраняет нового клиента. Возвращает ErrEmailTaken/ErrCPFTaken при дублях.
	Create(client Client) (Client, error)
	// Get возвращает клиента или ErrClientNotFound.
	Get(id int64) (Client, error)
	GetByEmail(email string) (Client, error)
	GetByCPF(cpf string) (Client, error)
	// List возвращает страницу клиентов по фильтру.
	List(filter ClientFilter) ([]Client, error)
	Update(client Client) error
	Delete(id int64) error
}

// UserRepository описывает требования к хранилищу пользователей.
type UserRepository interface {
	// Create сохраняет нового пользователя. Возвращает ErrEmailTaken при дубле email.
	Create(user User) (User, error)
	Get(id int64) (User, error)
	GetByEmail(email string) (User, error)
	// Update перезаписывает email и хеш пароля.
	Update(user User) error
	Delete(id int64) error
}

// OrderRepository описывает требования к хранилищу заказов.
//
// Сложные операции объединяют запись заказа и изменение остатков товаров
// в одну атомарную единицу: проверка достаточности и списание выполняются
// как условное обновление, закрывая гонку check-then-act между
// конкурентными запросами.
type OrderRepository interface {
	// Create вставляет заказ с позициями и списывает остатки условно
	// (stock >= qty). При нехватке по любой позиции не остаётся ни записи
	// заказа, ни частичных списаний; возвращается InsufficientStockError.
	Create(order Order) (Order, error)
	// Get возвращает заказ с позициями или ErrOrderNotFound.
	Get(id int64) (Order, error)
	// ListAll возвращает все заказы с позициями, старые первыми.
	ListAll() ([]Order, error)
	// ListByClient возвращает заказы клиента с позициями.
	ListByClient(clientID int64) ([]Order, error)
	// ReplaceItems целиком заменяет позиции заказа: возвращает сток по старым,
	// списывает по новым — одной атомарной операцией. При нехватке заказ
	// остаётся в исходном состоянии.
	ReplaceItems(orderID int64, items []OrderItem) (Order, error)
	// Delete удаляет заказ с позициями; при restoreStock возвращает сток
	// по каждой позиции в той же атомарной операции.
	Delete(id int64, restoreStock bool) error
}

// SessionRepository хранит выданные bearer-токены.
type SessionRepository interface {
	Create(session Session) (Session, error)
	// Get возвращает сессию или ErrSessionNotFound.
	Get(token string) (Session, error)
	Delete(token string) error
	// DeleteExpired удаляет до limit просроченных сессий, возвращает число удалённых.
	DeleteExpired(before time.Time, limit int) (int, error)
}

// HistoryRepository хранит события жизненного цикла заказов.
type HistoryRepository interface {
	Append(event HistoryEvent) error
	// List возвращает события заказа в порядке возникновения.
	List(orderID int64) ([]HistoryEvent, error)
}
