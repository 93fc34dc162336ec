package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

const (
	contextUserKey   = "current_user"
	contextClientKey = "current_client_id"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_http_requests_total",
		Help: "Total number of HTTP requests grouped by method, route and status.",
	}, []string{"method", "route", "status"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds grouped by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// MetricsMiddleware собирает счётчик и гистограмму запросов по маршрутам.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).
			Observe(time.Since(start).Seconds())
	}
}

// RequestLogger пишет итог каждого запроса в структурированный лог.
func RequestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}

// Authenticator проверяет bearer-токен и возвращает владельца.
type Authenticator interface {
	Authenticate(token string) (domain.User, error)
}

// RequireAuth проверяет заголовок Authorization и кладёт в контекст запроса
// текущего пользователя и id парного клиента (0 — пары нет, staff-доступ).
func RequireAuth(auth Authenticator, clients domain.ClientRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			respondError(c, http.StatusUnauthorized, "Credenciais ausentes", domain.ErrSessionNotFound)
			return
		}

		user, err := auth.Authenticate(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "Credenciais inválidas", err)
			return
		}

		c.Set(contextUserKey, user)

		// Владелец заказа определяется парным клиентом; аккаунт без
		// пары считается staff и видит все заказы. Staff-доступ даётся
		// только по подтверждённому отсутствию пары: ошибка хранилища
		// обрывает запрос.
		var clientID int64
		switch client, err := clients.GetByEmail(user.Email); {
		case err == nil:
			clientID = client.ID
		case errors.Is(err, domain.ErrClientNotFound):
			// Пары нет, staff.
		default:
			respondError(c, http.StatusInternalServerError, "Erro interno do servidor", err)
			return
		}
		c.Set(contextClientKey, clientID)

		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func currentUser(c *gin.Context) domain.User {
	if value, ok := c.Get(contextUserKey); ok {
		if user, ok := value.(domain.User); ok {
			return user
		}
	}
	return domain.User{}
}

func currentClientID(c *gin.Context) int64 {
	if value, ok := c.Get(contextClientKey); ok {
		if id, ok := value.(int64); ok {
			return id
		}
	}
	return 0
}
