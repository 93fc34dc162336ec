package domain

import "time"

// SessionKind различает access- и refresh-токены.
type SessionKind string

const (
	// SessionKindAccess — короткоживущий токен для обычных запросов.
	SessionKindAccess SessionKind = "access"
	// SessionKindRefresh — долгоживущий токен для ротации access-токена.
	SessionKindRefresh SessionKind = "refresh"
)

// Valid проверяет, что вид сессии относится к поддерживаемым значениям.
func (k SessionKind) Valid() bool {
	switch k {
	case SessionKindAccess, SessionKindRefresh:
		return true
	default:
		return false
	}
}

// Session — выданный bearer-токен с TTL. Просроченные записи
// периодически удаляются фоновым воркером.
type Session struct {
	Token     string
	UserID    int64
	Kind      SessionKind
	TTLAt     time.Time
	CreatedAt time.Time
}

// Expired сообщает, истёк ли токен к моменту now.
func (s *Session) Expired(now time.Time) bool {
	return !s.TTLAt.After(now)
}
