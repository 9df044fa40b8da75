package mfa

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/squeezyhq/squeezy/internal/apperr"
	"github.com/squeezyhq/squeezy/internal/models"
)

type fakeUsers struct {
	byEmail map[string]*models.User
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUsers) UpdatePreferences(_ context.Context, id primitive.ObjectID, prefs models.UserPreferences) error {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.Preferences = prefs
			return nil
		}
	}
	return errors.New("no such user")
}

type fakeIssuer struct {
	calls int
	err   error
}

func (f *fakeIssuer) IssueTokens(_ context.Context, _ *models.User, _ string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.calls++
	return "access-token", "refresh-token", nil
}

func newService() (*Service, *fakeUsers, *fakeIssuer) {
	users := &fakeUsers{byEmail: make(map[string]*models.User)}
	issuer := &fakeIssuer{}
	service := NewService(users, issuer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return service, users, issuer
}

func addUser(users *fakeUsers, email string, prefs models.UserPreferences) *models.User {
	user := &models.User{
		ID:              primitive.NewObjectID(),
		Name:            "Test User",
		Email:           email,
		IsEmailVerified: true,
		Preferences:     prefs,
	}
	users.byEmail[email] = user
	return user
}

func TestGenerateSetupProvisionsAndPersistsSecret(t *testing.T) {
	service, users, _ := newService()
	user := addUser(users, "ada@example.com", models.UserPreferences{})

	setup, err := service.GenerateSetup(context.Background(), user)
	if err != nil {
		t.Fatalf("GenerateSetup: %v", err)
	}
	if setup.Secret == "" {
		t.Fatal("missing secret")
	}
	if !strings.HasPrefix(setup.QRImageURL, "data:image/png;base64,") {
		t.Fatalf("qr url %q is not an inline png", setup.QRImageURL[:min(40, len(setup.QRImageURL))])
	}
	if users.byEmail["ada@example.com"].Preferences.TwoFactorSecret != setup.Secret {
		t.Fatal("secret not persisted to preferences")
	}
}

func TestGenerateSetupIsIdempotentBeforeVerification(t *testing.T) {
	service, users, _ := newService()
	user := addUser(users, "ada@example.com", models.UserPreferences{})

	first, err := service.GenerateSetup(context.Background(), user)
	if err != nil {
		t.Fatalf("first GenerateSetup: %v", err)
	}
	second, err := service.GenerateSetup(context.Background(), user)
	if err != nil {
		t.Fatalf("second GenerateSetup: %v", err)
	}
	if first.Secret != second.Secret {
		t.Fatalf("secret changed across setup calls: %q vs %q", first.Secret, second.Secret)
	}
}

func TestGenerateSetupShortCircuitsWhenEnabled(t *testing.T) {
	service, users, _ := newService()
	user := addUser(users, "ada@example.com", models.UserPreferences{Enable2FA: true, TwoFactorSecret: "SECRET"})

	setup, err := service.GenerateSetup(context.Background(), user)
	if err != nil {
		t.Fatalf("GenerateSetup: %v", err)
	}
	if setup.Secret != "" || setup.QRImageURL != "" {
		t.Fatal("setup material returned for an already-enabled account")
	}
}

func TestVerifySetupEnablesMFA(t *testing.T) {
	service, users, _ := newService()
	user := addUser(users, "ada@example.com", models.UserPreferences{})

	setup, err := service.GenerateSetup(context.Background(), user)
	if err != nil {
		t.Fatalf("GenerateSetup: %v", err)
	}

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}

	prefs, err := service.VerifySetup(context.Background(), user, code)
	if err != nil {
		t.Fatalf("VerifySetup: %v", err)
	}
	if !prefs.Enable2FA {
		t.Fatal("MFA not enabled")
	}
	if !users.byEmail["ada@example.com"].Preferences.Enable2FA {
		t.Fatal("enablement not persisted")
	}
}

func TestVerifySetupRejectsBadCode(t *testing.T) {
	service, users, _ := newService()
	user := addUser(users, "ada@example.com", models.UserPreferences{})

	if _, err := service.GenerateSetup(context.Background(), user); err != nil {
		t.Fatalf("GenerateSetup: %v", err)
	}

	_, err := service.VerifySetup(context.Background(), user, "000000")
	if !apperr.Is(err, apperr.CodeInvalidMFACode) {
		t.Fatalf("got %v, want invalid-mfa-code", err)
	}
	if user.Preferences.Enable2FA {
		t.Fatal("MFA enabled despite bad code")
	}
}

func TestVerifySetupWithoutProvisioning(t *testing.T) {
	service, users, _ := newService()
	user := addUser(users, "ada@example.com", models.UserPreferences{})

	_, err := service.VerifySetup(context.Background(), user, "123456")
	if !apperr.Is(err, apperr.CodeMFAUnavailable) {
		t.Fatalf("got %v, want mfa-unavailable", err)
	}
}

func TestRevokeClearsSecret(t *testing.T) {
	service, users, _ := newService()
	user := addUser(users, "ada@example.com", models.UserPreferences{Enable2FA: true, TwoFactorSecret: "SECRET"})

	result, err := service.Revoke(context.Background(), user)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if result.Preferences.Enable2FA || result.Preferences.TwoFactorSecret != "" {
		t.Fatalf("prefs after revoke = %+v", result.Preferences)
	}
}

func TestRevokeWithoutMFAIsInformationalNoOp(t *testing.T) {
	service, users, _ := newService()
	user := addUser(users, "ada@example.com", models.UserPreferences{})

	result, err := service.Revoke(context.Background(), user)
	if err != nil {
		t.Fatalf("Revoke on non-enabled account: %v", err)
	}
	if result.Message == "" {
		t.Fatal("expected an informational message")
	}
	if result.Preferences.Enable2FA {
		t.Fatalf("preferences changed: %+v", result.Preferences)
	}

	// Revoking after a real revoke behaves the same way.
	enabled := addUser(users, "bob@example.com", models.UserPreferences{Enable2FA: true, TwoFactorSecret: "SECRET"})
	if _, err := service.Revoke(context.Background(), enabled); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if _, err := service.Revoke(context.Background(), enabled); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
}

func TestVerifyLoginIssuesTokens(t *testing.T) {
	service, users, issuer := newService()
	user := addUser(users, "ada@example.com", models.UserPreferences{})

	setup, err := service.GenerateSetup(context.Background(), user)
	if err != nil {
		t.Fatalf("GenerateSetup: %v", err)
	}
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if _, err := service.VerifySetup(context.Background(), user, code); err != nil {
		t.Fatalf("VerifySetup: %v", err)
	}

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	result, err := service.VerifyLogin(context.Background(), "ada@example.com", code, "cli/1.0")
	if err != nil {
		t.Fatalf("VerifyLogin: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("missing tokens")
	}
	if issuer.calls != 1 {
		t.Fatalf("issuer called %d times, want 1", issuer.calls)
	}
}

func TestVerifyLoginFailures(t *testing.T) {
	service, users, issuer := newService()

	_, err := service.VerifyLogin(context.Background(), "ghost@example.com", "123456", "")
	if !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("unknown user: got %v, want not-found", err)
	}

	addUser(users, "plain@example.com", models.UserPreferences{})
	_, err = service.VerifyLogin(context.Background(), "plain@example.com", "123456", "")
	if !apperr.Is(err, apperr.CodeMFAUnavailable) {
		t.Fatalf("mfa disabled: got %v, want mfa-unavailable", err)
	}

	addUser(users, "mfa@example.com", models.UserPreferences{Enable2FA: true, TwoFactorSecret: "JBSWY3DPEHPK3PXP"})
	_, err = service.VerifyLogin(context.Background(), "mfa@example.com", "000000", "")
	if !apperr.Is(err, apperr.CodeInvalidMFACode) {
		t.Fatalf("bad code: got %v, want invalid-mfa-code", err)
	}

	if issuer.calls != 0 {
		t.Fatalf("issuer called %d times on failures", issuer.calls)
	}
}
