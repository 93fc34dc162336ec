package domain

import "time"

// User — аккаунт доступа к API. Концептуально парный клиенту по email;
// пара закреплена обратной ссылкой Client.UserID.
type User struct {
	ID int64
	// Email уникален среди пользователей.
	Email string
	// PasswordHash — bcrypt-хеш пароля; в открытом виде пароль не хранится.
	PasswordHash string
	CreatedAt    time.Time
}
