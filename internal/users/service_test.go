package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'buyer',
  phone TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	bankAccounts := `
CREATE TABLE IF NOT EXISTS bank_accounts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  bank_name TEXT NOT NULL,
  account_number TEXT NOT NULL,
  account_name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(bankAccounts).Error)
	return db
}

func newUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "Mali",
		Role:        enums.UserRoleSeller,
		IsActive:    true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newUsersService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestUpdateProfileTrimsAndPersists(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)
	user := newUser(t, db, "trim@example.com")

	name := "  Mali Ceramics  "
	phone := " +66 81 000 0000 "
	updated, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		DisplayName: &name,
		Phone:       &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mali Ceramics", updated.DisplayName)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "+66 81 000 0000", *updated.Phone)
}

func TestUpdateProfileRejectsEmptyName(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)
	user := newUser(t, db, "emptyname@example.com")

	name := "   "
	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{DisplayName: &name})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateProfileRequiresAtLeastOneField(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)
	user := newUser(t, db, "nofields@example.com")

	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestBankAccountLifecycle(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)
	user := newUser(t, db, "lifecycle@example.com")

	account, err := svc.AddBankAccount(context.Background(), user.ID, BankAccountInput{
		BankName:      "Krung Thai",
		AccountNumber: "123-4-56789-0",
		AccountName:   "Mali Ceramics",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, account.ID)

	accounts, err := svc.ListBankAccounts(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Krung Thai", accounts[0].BankName)

	require.NoError(t, svc.RemoveBankAccount(context.Background(), user.ID, account.ID))
	accounts, err = svc.ListBankAccounts(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestAddBankAccountRejectsBlankFields(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)
	user := newUser(t, db, "blank@example.com")

	_, err := svc.AddBankAccount(context.Background(), user.ID, BankAccountInput{
		BankName:      "  ",
		AccountNumber: "123",
		AccountName:   "Mali",
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRemoveBankAccountIgnoresForeignRows(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)
	owner := newUser(t, db, "mali@example.com")
	stranger := newUser(t, db, "foreign@example.com")

	account, err := svc.AddBankAccount(context.Background(), owner.ID, BankAccountInput{
		BankName:      "Krung Thai",
		AccountNumber: "123-4-56789-0",
		AccountName:   "Mali Ceramics",
	})
	require.NoError(t, err)

	err = svc.RemoveBankAccount(context.Background(), stranger.ID, account.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	accounts, err := svc.ListBankAccounts(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestGetUnknownUserIsNotFound(t *testing.T) {
	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
