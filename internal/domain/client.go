package domain

import (
	"regexp"
	"strings"
)

var (
	// Принимает 123.456.789-09 и 12345678909.
	cpfPattern = regexp.MustCompile(`^\d{3}\.?\d{3}\.?\d{3}-?\d{2}$`)
	// Принимает (12) 93456-7890 и 12934567890.
	phonePattern = regexp.MustCompile(`^\(?\d{2}\)? ?\d{4,5}-?\d{4}$`)

	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Client описывает покупателя back-office.
type Client struct {
	ID       int64
	Name     string
	LastName string
	// Email уникален среди клиентов.
	Email string
	// CPF хранится нормализованным: только цифры.
	CPF string
	// Phone хранится нормализованным: только цифры.
	Phone string
	// UserID — явная ссылка на парный аккаунт пользователя (0 — пары нет).
	// Пара поддерживается сервисом клиентов при каждой записи, меняющей email.
	UserID int64
}

// NormalizeCPF убирает пунктуацию из CPF.
func NormalizeCPF(cpf string) string {
	replacer := strings.NewReplacer(".", "", "-", "")
	return replacer.Replace(strings.TrimSpace(cpf))
}

// NormalizePhone убирает скобки, дефисы и пробелы из телефона.
func NormalizePhone(phone string) string {
	replacer := strings.NewReplacer("(", "", ")", "", "-", "", " ", "")
	return replacer.Replace(strings.TrimSpace(phone))
}

// ValidCPF проверяет формат CPF до нормализации.
func ValidCPF(cpf string) bool {
	return cpfPattern.MatchString(strings.TrimSpace(cpf))
}

// ValidPhone проверяет формат телефона до нормализации.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(strings.TrimSpace(phone))
}

// ValidEmail проверяет базовую форму email.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// Validate проверяет обязательные поля клиента.
// CPF и телефон валидируются в исходном (ненормализованном) виде.
func (c *Client) Validate() []error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if c.LastName == "" {
		errs = append(errs, ErrLastNameRequired)
	}
	if !ValidEmail(c.Email) {
		errs = append(errs, ErrEmailInvalid)
	}
	if !ValidCPF(c.CPF) {
		errs = append(errs, ErrCPFInvalid)
	}
	if !ValidPhone(c.Phone) {
		errs = append(errs, ErrPhoneInvalid)
	}

	return errs
}
