package clients

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
	"github.com/Welison92/luestilo-backoffice/internal/service/orders"
	"github.com/Welison92/luestilo-backoffice/internal/storage/memory"
)

type fixture struct {
	service    Service
	clients    domain.ClientRepository
	users      domain.UserRepository
	products   domain.ProductRepository
	reconciler orders.Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := memory.NewProductRepository()
	clientRepo := memory.NewClientRepository()
	users := memory.NewUserRepository()
	orderRepo := memory.NewOrderRepository(products)
	history := memory.NewHistoryRepository()
	outbox := memory.NewOutboxRepository()

	reconciler := orders.NewReconcilerWithoutMetrics(orderRepo, products, clientRepo, history, outbox, nil)

	return &fixture{
		service:    New(clientRepo, users, reconciler, nil),
		clients:    clientRepo,
		users:      users,
		products:   products,
		reconciler: reconciler,
	}
}

func (f *fixture) seedUser(t *testing.T, email string) domain.User {
	t.Helper()
	user, err := f.users.Create(domain.User{Email: email, PasswordHash: "x"})
	require.NoError(t, err)
	return user
}

func validInput(email string) Input {
	return Input{
		Name:     "Maria",
		LastName: "Silva",
		Email:    email,
		CPF:      "123.456.789-09",
		Phone:    "(11) 98765-4321",
	}
}

func TestCreateNormalizesAndPairsUser(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "maria@example.com")

	client, err := f.service.Create(validInput("maria@example.com"))
	require.NoError(t, err)
	require.Equal(t, "12345678909", client.CPF)
	require.Equal(t, "11987654321", client.Phone)
	require.Equal(t, user.ID, client.UserID)
}

func TestCreateRequiresRegisteredUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(validInput("nobody@example.com"))
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCreateValidatesFormats(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "maria@example.com")

	badCPF := validInput("maria@example.com")
	badCPF.CPF = "12-34"
	_, err := f.service.Create(badCPF)
	require.ErrorIs(t, err, domain.ErrCPFInvalid)

	badPhone := validInput("maria@example.com")
	badPhone.Phone = "123"
	_, err = f.service.Create(badPhone)
	require.ErrorIs(t, err, domain.ErrPhoneInvalid)

	badEmail := validInput("maria@example.com")
	badEmail.Email = "not-an-email"
	_, err = f.service.Create(badEmail)
	require.ErrorIs(t, err, domain.ErrEmailInvalid)
}

func TestCreateDuplicateCPF(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "maria@example.com")
	f.seedUser(t, "joana@example.com")

	_, err := f.service.Create(validInput("maria@example.com"))
	require.NoError(t, err)

	duplicate := validInput("joana@example.com")
	_, err = f.service.Create(duplicate)
	require.ErrorIs(t, err, domain.ErrCPFTaken)
}

func TestUpdateEmailSyncsPairedUser(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "maria@example.com")

	client, err := f.service.Create(validInput("maria@example.com"))
	require.NoError(t, err)

	changed := validInput("nova@example.com")
	updated, err := f.service.Update(client.ID, changed)
	require.NoError(t, err)
	require.Equal(t, "nova@example.com", updated.Email)

	pairedUser, err := f.users.Get(user.ID)
	require.NoError(t, err)
	require.Equal(t, "nova@example.com", pairedUser.Email)
}

func TestDeleteReleasesOrdersAndRemovesUser(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "maria@example.com")

	client, err := f.service.Create(validInput("maria@example.com"))
	require.NoError(t, err)

	product, err := f.products.Create(domain.Product{
		Description: "camiseta",
		PriceMinor:  1000,
		Barcode:     "1",
		Section:     "camisetas",
		Stock:       10,
	})
	require.NoError(t, err)

	_, err = f.reconciler.Create(orders.CreateInput{
		ClientID: client.ID,
		Items:    []orders.ItemInput{{ProductID: product.ID, Qty: 4}},
	}, 0)
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(client.ID))

	// Резерв возвращён, клиент и парный пользователь удалены.
	got, err := f.products.Get(product.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10, got.Stock)

	_, err = f.clients.Get(client.ID)
	require.ErrorIs(t, err, domain.ErrClientNotFound)

	_, err = f.users.Get(user.ID)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "maria@example.com")
	f.seedUser(t, "joana@example.com")

	_, err := f.service.Create(validInput("maria@example.com"))
	require.NoError(t, err)

	second := validInput("joana@example.com")
	second.Name = "Joana"
	second.CPF = "987.654.321-00"
	_, err = f.service.Create(second)
	require.NoError(t, err)

	byName, err := f.service.List(domain.ClientFilter{Name: "joa"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	require.Equal(t, "Joana", byName[0].Name)

	byEmail, err := f.service.List(domain.ClientFilter{Email: "maria@example.com"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
}
