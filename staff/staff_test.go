package staff_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/villacheck/server/apperr"
	"github.com/villacheck/server/session"
	"github.com/villacheck/server/staff"
	"github.com/villacheck/server/store/a1"
	"github.com/villacheck/server/store/memory"
	"github.com/villacheck/server/testutil"
	"golang.org/x/crypto/bcrypt"
)

func setup(t *testing.T, plaintext bool) (*staff.Service, *memory.Backend) {
	t.Helper()
	st, b := testutil.SetupTestStore(t)
	hash, err := staff.HashPassword("pw1", bcrypt.MinCost)
	require.NoError(t, err)
	testutil.Seed(t, b, testutil.Tables.Staff,
		[]string{"S1", "Maria", "maria", hash},
		[]string{"S2", "", "budi", "legacy"},
		[]string{"S3", "Nobody", "nopass", ""},
	)
	sessions := session.NewStore(testutil.SetupTestCache(t))
	svc := staff.NewService(st, sessions, staff.Options{Table: testutil.Tables.Staff, AllowPlaintext: plaintext}, nil)
	return svc, b
}

func TestLogin_Bcrypt(t *testing.T) {
	svc, _ := setup(t, false)
	ctx := context.Background()

	res, err := svc.Login(ctx, " MARIA ", " pw1 ")
	require.NoError(t, err)
	assert.Equal(t, "S1", res.StaffID)
	assert.Equal(t, "Maria", res.Name)
	assert.Equal(t, "MARIA", res.Login)
	assert.NotEmpty(t, res.Token)

	id, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "S1", id.StaffID)
}

func TestLogin_Rejected(t *testing.T) {
	svc, _ := setup(t, false)
	ctx := context.Background()

	for _, tc := range []struct{ login, password string }{
		{"maria", "wrong"},
		{"ghost", "pw1"},
		{"budi", "legacy"}, // plaintext disabled
		{"nopass", ""},
	} {
		_, err := svc.Login(ctx, tc.login, tc.password)
		var ae *apperr.AuthError
		require.True(t, errors.As(err, &ae), tc.login)
		assert.Equal(t, apperr.MsgInvalidCredentials, ae.Reason)
	}

	_, err := svc.Login(ctx, "  ", "pw1")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLogin_PlaintextOptIn(t *testing.T) {
	svc, _ := setup(t, true)
	res, err := svc.Login(context.Background(), "budi", "legacy ")
	require.NoError(t, err)
	assert.Equal(t, "S2", res.StaffID)
	assert.Equal(t, "", res.Name)
}

func TestLogin_StoreDown(t *testing.T) {
	svc, b := setup(t, false)
	b.SetFault(func(string, a1.Range) error { return errors.New("503 backend error") })
	_, err := svc.Login(context.Background(), "maria", "pw1")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestLogout(t *testing.T) {
	svc, _ := setup(t, false)
	ctx := context.Background()

	res, err := svc.Login(ctx, "maria", "pw1")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, res.Token))

	_, err = svc.Authenticate(ctx, res.Token)
	var ae *apperr.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.MsgSessionExpired, ae.Reason)

	assert.NoError(t, svc.Logout(ctx, res.Token))
	assert.NoError(t, svc.Logout(ctx, ""))
}

func TestAuthenticate_Missing(t *testing.T) {
	svc, _ := setup(t, false)
	_, err := svc.Authenticate(context.Background(), "")
	var ae *apperr.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.MsgNotAuthenticated, ae.Reason)
}

func TestHashPassword(t *testing.T) {
	h, err := staff.HashPassword(" secret ", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("secret")))
}
