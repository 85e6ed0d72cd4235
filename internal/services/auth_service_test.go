package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/terraincognita07/roomdesk/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stubAuthUserRepo struct {
	users               map[uint]models.User
	nextID              uint
	createErr           error
	resetPasswordCalled bool
}

func newStubAuthUserRepo(users ...models.User) *stubAuthUserRepo {
	repo := &stubAuthUserRepo{users: make(map[uint]models.User), nextID: 1}
	for _, user := range users {
		repo.users[user.ID] = user
		if user.ID >= repo.nextID {
			repo.nextID = user.ID + 1
		}
	}
	return repo
}

func (stub *stubAuthUserRepo) FindByID(_ context.Context, userID uint) (models.User, error) {
	user, ok := stub.users[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (stub *stubAuthUserRepo) FindByLogin(_ context.Context, login string) (models.User, error) {
	for _, user := range stub.users {
		if user.Username == login || strings.EqualFold(user.Email, login) {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (stub *stubAuthUserRepo) FindByNormalizedEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range stub.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (stub *stubAuthUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, user := range stub.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (stub *stubAuthUserRepo) ExistsByNormalizedEmail(ctx context.Context, email string) (bool, error) {
	_, err := stub.FindByNormalizedEmail(ctx, email)
	return err == nil, nil
}

func (stub *stubAuthUserRepo) Create(_ context.Context, user *models.User) error {
	if stub.createErr != nil {
		return stub.createErr
	}
	user.ID = stub.nextID
	stub.nextID++
	stub.users[user.ID] = *user
	return nil
}

func (stub *stubAuthUserRepo) UpdatePassword(_ context.Context, userID uint, passwordHash string, mustChangePassword bool) error {
	user := stub.users[userID]
	user.PasswordHash = passwordHash
	user.MustChangePassword = mustChangePassword
	stub.users[userID] = user
	return nil
}

func (stub *stubAuthUserRepo) ResetPassword(_ context.Context, userID uint, passwordHash string, recoveryHash string) error {
	stub.resetPasswordCalled = true
	user := stub.users[userID]
	user.PasswordHash = passwordHash
	user.RecoveryCodeHash = recoveryHash
	user.MustChangePassword = false
	stub.users[userID] = user
	return nil
}

func (stub *stubAuthUserRepo) UpdateRecoveryCodeHash(_ context.Context, userID uint, recoveryHash string) error {
	user := stub.users[userID]
	user.RecoveryCodeHash = recoveryHash
	stub.users[userID] = user
	return nil
}

func (stub *stubAuthUserRepo) ListWithRecoveryCodeHash(context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(stub.users))
	for _, user := range stub.users {
		if user.RecoveryCodeHash != "" {
			users = append(users, user)
		}
	}
	return users, nil
}

type stubResetSender struct {
	email string
	link  string
	err   error
	calls int
}

func (stub *stubResetSender) SendPasswordReset(_ context.Context, email string, resetLink string) error {
	stub.calls++
	stub.email = email
	stub.link = resetLink
	return stub.err
}

var authTestNow = time.Date(2030, time.March, 1, 10, 0, 0, 0, time.UTC)

func newAuthServiceForTest(repo *stubAuthUserRepo, sender PasswordResetSender, mode string) *AuthService {
	return NewAuthService(repo, sender, AuthOptions{
		SecretKey:     []byte("auth-service-test-secret"),
		ResetMode:     mode,
		PublicBaseURL: "https://rooms.example.com/",
	}, func() time.Time { return authTestNow }, nil)
}

func registerForTest(t *testing.T, service *AuthService, username string, email string) (models.User, string) {
	t.Helper()

	user, code, err := service.Register(context.Background(), RegisterInput{
		Username:        username,
		Email:           email,
		Password:        "StrongPass1",
		ConfirmPassword: "StrongPass1",
	})
	if err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}
	return user, code
}

func TestAuthServiceRegisterHashesSecrets(t *testing.T) {
	repo := newStubAuthUserRepo()
	service := newAuthServiceForTest(repo, nil, ResetModeRecoveryCode)

	user, code := registerForTest(t, service, " Alice ", "ALICE@example.com")
	if user.Username != "alice" || user.Email != "alice@example.com" {
		t.Fatalf("expected normalized identity, got %q %q", user.Username, user.Email)
	}
	if err := ValidateRecoveryCodeFormat(code); err != nil {
		t.Fatalf("expected formatted recovery code, got %q", code)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("StrongPass1")) != nil {
		t.Fatal("expected bcrypt password hash")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.RecoveryCodeHash), []byte(code)) != nil {
		t.Fatal("expected bcrypt recovery code hash")
	}
}

func TestAuthServiceRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	repo := newStubAuthUserRepo()
	service := newAuthServiceForTest(repo, nil, ResetModeRecoveryCode)
	registerForTest(t, service, "alice", "alice@example.com")

	tests := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{name: "username taken", input: RegisterInput{Username: "ALICE", Email: "other@example.com", Password: "StrongPass1", ConfirmPassword: "StrongPass1"}, want: ErrUsernameTaken},
		{name: "email taken", input: RegisterInput{Username: "bob", Email: "Alice@Example.com", Password: "StrongPass1", ConfirmPassword: "StrongPass1"}, want: ErrEmailTaken},
		{name: "bad username", input: RegisterInput{Username: "b", Email: "bob@example.com", Password: "StrongPass1", ConfirmPassword: "StrongPass1"}, want: ErrInvalidUsername},
		{name: "bad email", input: RegisterInput{Username: "bob", Email: "nope", Password: "StrongPass1", ConfirmPassword: "StrongPass1"}, want: ErrInvalidEmail},
		{name: "mismatch", input: RegisterInput{Username: "bob", Email: "bob@example.com", Password: "StrongPass1", ConfirmPassword: "StrongPass2"}, want: ErrPasswordMismatch},
		{name: "weak", input: RegisterInput{Username: "bob", Email: "bob@example.com", Password: "weak", ConfirmPassword: "weak"}, want: ErrWeakPassword},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			if _, _, err := service.Register(context.Background(), testCase.input); !errors.Is(err, testCase.want) {
				t.Fatalf("expected %v, got %v", testCase.want, err)
			}
		})
	}
}

func TestAuthServiceAuthenticateByUsernameOrEmail(t *testing.T) {
	repo := newStubAuthUserRepo()
	service := newAuthServiceForTest(repo, nil, ResetModeRecoveryCode)
	user, _ := registerForTest(t, service, "alice", "alice@example.com")

	for _, login := range []string{"alice", "ALICE@example.com"} {
		session, err := service.Authenticate(context.Background(), login, "StrongPass1")
		if err != nil {
			t.Fatalf("Authenticate(%q) unexpected error: %v", login, err)
		}
		resolved, err := service.CurrentUser(context.Background(), session.Token)
		if err != nil {
			t.Fatalf("CurrentUser() unexpected error: %v", err)
		}
		if resolved.ID != user.ID {
			t.Fatalf("expected user %d, got %d", user.ID, resolved.ID)
		}
	}

	if _, err := service.Authenticate(context.Background(), "alice", "WrongPass1"); !errors.Is(err, ErrAuthCredentialsInvalid) {
		t.Fatalf("expected ErrAuthCredentialsInvalid for wrong password, got %v", err)
	}
	if _, err := service.Authenticate(context.Background(), "ghost", "StrongPass1"); !errors.Is(err, ErrAuthCredentialsInvalid) {
		t.Fatalf("expected ErrAuthCredentialsInvalid for unknown user, got %v", err)
	}
	if _, err := service.CurrentUser(context.Background(), "garbage"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for garbage token, got %v", err)
	}
}

func TestAuthServiceRecoveryCodeResetFlow(t *testing.T) {
	repo := newStubAuthUserRepo()
	service := newAuthServiceForTest(repo, nil, ResetModeRecoveryCode)
	user, code := registerForTest(t, service, "alice", "alice@example.com")

	token, err := service.StartRecoveryCodeReset(context.Background(), strings.ToLower(code))
	if err != nil {
		t.Fatalf("StartRecoveryCodeReset() unexpected error: %v", err)
	}

	newCode, err := service.ResetPassword(context.Background(), token, "EvenStronger2", "EvenStronger2")
	if err != nil {
		t.Fatalf("ResetPassword() unexpected error: %v", err)
	}
	if !repo.resetPasswordCalled {
		t.Fatal("expected ResetPassword() to reach the repository")
	}
	if newCode == code {
		t.Fatal("expected recovery code rotation")
	}
	if _, err := service.Authenticate(context.Background(), "alice", "EvenStronger2"); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}

	if _, err := service.ResetPassword(context.Background(), token, "ThirdPass33", "ThirdPass33"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected reused token to be rejected, got %v", err)
	}
	if _, err := service.StartRecoveryCodeReset(context.Background(), code); !errors.Is(err, ErrAuthRecoveryCodeInvalid) {
		t.Fatalf("expected old recovery code to be rejected, got %v", err)
	}
	if repo.users[user.ID].MustChangePassword {
		t.Fatal("expected MustChangePassword=false after reset")
	}
}

func TestAuthServiceEmailResetSendsLinkOnlyForKnownAccounts(t *testing.T) {
	repo := newStubAuthUserRepo()
	sender := &stubResetSender{}
	service := newAuthServiceForTest(repo, sender, ResetModeEmail)
	registerForTest(t, service, "alice", "alice@example.com")

	if err := service.RequestEmailReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("expected silent success for unknown email, got %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("expected no mail for unknown email, got %d", sender.calls)
	}

	if err := service.RequestEmailReset(context.Background(), " Alice@Example.com "); err != nil {
		t.Fatalf("RequestEmailReset() unexpected error: %v", err)
	}
	if sender.calls != 1 || sender.email != "alice@example.com" {
		t.Fatalf("expected one mail to alice, got calls=%d email=%q", sender.calls, sender.email)
	}

	parsed, err := url.Parse(sender.link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if parsed.Host != "rooms.example.com" || parsed.Path != "/reset-password" {
		t.Fatalf("unexpected reset link %q", sender.link)
	}
	if _, err := service.ResolveUserByResetToken(context.Background(), parsed.Query().Get("token")); err != nil {
		t.Fatalf("expected link token to resolve, got %v", err)
	}

	if _, err := service.StartRecoveryCodeReset(context.Background(), "ROOM-AAAA-BBBB-CCCC"); !errors.Is(err, ErrResetModeDisabled) {
		t.Fatalf("expected recovery mode to be disabled, got %v", err)
	}
}

func TestAuthServiceEmailResetReportsDeliveryFailure(t *testing.T) {
	repo := newStubAuthUserRepo()
	sender := &stubResetSender{err: errors.New("smtp down")}
	service := newAuthServiceForTest(repo, sender, ResetModeEmail)
	registerForTest(t, service, "alice", "alice@example.com")

	if err := service.RequestEmailReset(context.Background(), "alice@example.com"); !errors.Is(err, ErrResetDelivery) {
		t.Fatalf("expected ErrResetDelivery, got %v", err)
	}
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newStubAuthUserRepo()
	service := newAuthServiceForTest(repo, nil, ResetModeRecoveryCode)
	user, _ := registerForTest(t, service, "alice", "alice@example.com")

	if err := service.ChangePassword(context.Background(), user.ID, "WrongPass1", "NewStrong2", "NewStrong2"); !errors.Is(err, ErrInvalidCurrentPassword) {
		t.Fatalf("expected ErrInvalidCurrentPassword, got %v", err)
	}
	if err := service.ChangePassword(context.Background(), user.ID, "StrongPass1", "StrongPass1", "StrongPass1"); !errors.Is(err, ErrNewPasswordMustDiffer) {
		t.Fatalf("expected ErrNewPasswordMustDiffer, got %v", err)
	}
	if err := service.ChangePassword(context.Background(), user.ID, "StrongPass1", "NewStrong2", "NewStrong2"); err != nil {
		t.Fatalf("ChangePassword() unexpected error: %v", err)
	}
	if _, err := service.Authenticate(context.Background(), "alice", "NewStrong2"); err != nil {
		t.Fatalf("expected changed password to authenticate, got %v", err)
	}
}
