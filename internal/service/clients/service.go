// Package clients реализует управление покупателями и поддержание пары
// клиент ↔ пользователь.
package clients

import (
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
	"github.com/Welison92/luestilo-backoffice/internal/service/orders"
)

// Input описывает данные клиента при создании и изменении.
// CPF и телефон принимаются с пунктуацией и нормализуются при записи.
type Input struct {
	Name     string
	LastName string
	Email    string
	CPF      string
	Phone    string
}

// Service описывает операции над клиентами.
type Service interface {
	Create(input Input) (domain.Client, error)
	Get(id int64) (domain.Client, error)
	List(filter domain.ClientFilter) ([]domain.Client, error)
	Update(id int64, input Input) (domain.Client, error)
	// Delete снимает резерв открытых заказов клиента, удаляет клиента
	// и парный аккаунт пользователя.
	Delete(id int64) error
}

type service struct {
	clients    domain.ClientRepository
	users      domain.UserRepository
	reconciler orders.Reconciler
	logger     *log.Entry
}

// New создаёт сервис клиентов.
func New(clients domain.ClientRepository, users domain.UserRepository, reconciler orders.Reconciler, logger *log.Entry) Service {
	if logger == nil {
		logger = log.New().WithField("component", "clients")
	}
	return &service{
		clients:    clients,
		users:      users,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Create заводит клиента для уже зарегистрированного пользователя:
// email клиента обязан принадлежать существующему аккаунту.
func (s *service) Create(input Input) (domain.Client, error) {
	client := domain.Client{
		Name:     strings.TrimSpace(input.Name),
		LastName: strings.TrimSpace(input.LastName),
		Email:    strings.TrimSpace(input.Email),
		CPF:      strings.TrimSpace(input.CPF),
		Phone:    strings.TrimSpace(input.Phone),
	}
	if errs := client.Validate(); len(errs) > 0 {
		return domain.Client{}, errors.Join(errs...)
	}

	user, err := s.users.GetByEmail(client.Email)
	if err != nil {
		return domain.Client{}, err
	}
	client.UserID = user.ID

	client.CPF = domain.NormalizeCPF(client.CPF)
	client.Phone = domain.NormalizePhone(client.Phone)

	created, err := s.clients.Create(client)
	if err != nil {
		return domain.Client{}, err
	}

	s.logger.WithFields(log.Fields{
		"client_id": created.ID,
		"user_id":   created.UserID,
	}).Info("client created")
	return created, nil
}

func (s *service) Get(id int64) (domain.Client, error) {
	return s.clients.Get(id)
}

func (s *service) List(filter domain.ClientFilter) ([]domain.Client, error) {
	return s.clients.List(filter)
}

// Update перезаписывает данные клиента. Смена email синхронизируется
// с парным пользователем, чтобы вход по email оставался согласованным.
func (s *service) Update(id int64, input Input) (domain.Client, error) {
	current, err := s.clients.Get(id)
	if err != nil {
		return domain.Client{}, err
	}

	updated := current
	updated.Name = strings.TrimSpace(input.Name)
	updated.LastName = strings.TrimSpace(input.LastName)
	updated.Email = strings.TrimSpace(input.Email)
	updated.CPF = strings.TrimSpace(input.CPF)
	updated.Phone = strings.TrimSpace(input.Phone)
	if errs := updated.Validate(); len(errs) > 0 {
		return domain.Client{}, errors.Join(errs...)
	}

	updated.CPF = domain.NormalizeCPF(updated.CPF)
	updated.Phone = domain.NormalizePhone(updated.Phone)

	emailChanged := !strings.EqualFold(current.Email, updated.Email)
	if emailChanged && updated.UserID != 0 {
		user, err := s.users.Get(updated.UserID)
		if err != nil {
			return domain.Client{}, err
		}
		user.Email = updated.Email
		if err := s.users.Update(user); err != nil {
			return domain.Client{}, err
		}
	}

	if err := s.clients.Update(updated); err != nil {
		// Откат email пользователя, чтобы пара не разъехалась.
		if emailChanged && updated.UserID != 0 {
			if user, getErr := s.users.Get(updated.UserID); getErr == nil {
				user.Email = current.Email
				if rollbackErr := s.users.Update(user); rollbackErr != nil {
					s.logger.WithError(rollbackErr).WithField("user_id", user.ID).Warn("failed to roll back user email")
				}
			}
		}
		return domain.Client{}, err
	}

	return updated, nil
}

func (s *service) Delete(id int64) error {
	client, err := s.clients.Get(id)
	if err != nil {
		return err
	}

	released, err := s.reconciler.ReleaseClientOrders(id)
	if err != nil {
		return err
	}

	if err := s.clients.Delete(id); err != nil {
		return err
	}

	if client.UserID != 0 {
		if err := s.users.Delete(client.UserID); err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			s.logger.WithError(err).WithField("user_id", client.UserID).Warn("failed to delete paired user")
		}
	}

	s.logger.WithFields(log.Fields{
		"client_id": id,
		"released":  released,
	}).Info("client deleted")
	return nil
}
