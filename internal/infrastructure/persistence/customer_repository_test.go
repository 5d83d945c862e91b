package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/orderhub/backend/internal/domain/partner"
	"github.com/orderhub/backend/internal/domain/shared"
)

// newMockCustomerRepository creates a GormCustomerRepository with a mocked SQL connection
func newMockCustomerRepository(t *testing.T) (*GormCustomerRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormCustomerRepository(gormDB), mock, mockDB
}

func customerRows(id uuid.UUID, code, name string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "name", "contact_name", "email", "phone", "active", "version"}).
		AddRow(id, code, name, "", "", "", true, 1)
}

func TestNewGormCustomerRepository(t *testing.T) {
	t.Run("creates repository with valid DB", func(t *testing.T) {
		repo, _, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		assert.NotNil(t, repo)
		assert.NotNil(t, repo.db)
	})
}

func TestGormCustomerRepository_FindByID(t *testing.T) {
	t.Run("finds existing customer", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(customerID, 1).
			WillReturnRows(customerRows(customerID, "ACME01", "Acme Trading"))

		customer, err := repo.FindByID(context.Background(), customerID)

		assert.NoError(t, err)
		assert.NotNil(t, customer)
		assert.Equal(t, customerID, customer.ID)
		assert.Equal(t, "ACME01", customer.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns error for non-existent customer", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(customerID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		customer, err := repo.FindByID(context.Background(), customerID)

		assert.Error(t, err)
		assert.Nil(t, customer)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCustomerRepository_FindByCode(t *testing.T) {
	t.Run("normalizes the code before lookup", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE code = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("ACME01", 1).
			WillReturnRows(customerRows(customerID, "ACME01", "Acme Trading"))

		customer, err := repo.FindByCode(context.Background(), " acme01 ")

		assert.NoError(t, err)
		assert.Equal(t, "ACME01", customer.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCustomerRepository_FindByIdentifier(t *testing.T) {
	t.Run("joins marketplace identifiers", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()

		mock.ExpectQuery(`SELECT "customers"\..* FROM "customers" JOIN customer_identifiers ci ON ci\.customer_id = customers\.id WHERE ci\.marketplace = \$1 AND ci\.identifier = \$2 ORDER BY .* LIMIT .*`).
			WithArgs("rakuten", "shop-12345", 1).
			WillReturnRows(customerRows(customerID, "ACME01", "Acme Trading"))

		customer, err := repo.FindByIdentifier(context.Background(), "Rakuten", "shop-12345")

		assert.NoError(t, err)
		assert.Equal(t, customerID, customer.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for unknown identifier", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT "customers"\..* FROM "customers" JOIN customer_identifiers ci`).
			WithArgs("wowma", "nobody", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		customer, err := repo.FindByIdentifier(context.Background(), "wowma", "nobody")

		assert.Nil(t, customer)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCustomerRepository_Update(t *testing.T) {
	t.Run("returns not found when no rows affected", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customer, err := partner.NewCustomer("acme01", "Acme Trading")
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "customers" SET .* WHERE id = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Update(context.Background(), customer)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
