package profile

import (
	"context"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
)

// MockService — конфигурируемая заглушка ProfileProvider и SignatureVerifier
// для тестов и локальной разработки без прокси.
type MockService struct {
	Profile    domain.Profile
	ProfileErr error
	VerifyErr  error

	ProfileCalls int
	VerifyCalls  int
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		Profile: domain.Profile{Name: "dev-user", Avatar: "dev-avatar"},
	}
}

// GetUserProfile возвращает заранее настроенный профиль и считает вызовы.
func (m *MockService) GetUserProfile(_ context.Context, _ string) (domain.Profile, error) {
	m.ProfileCalls++
	if m.ProfileErr != nil {
		return domain.Profile{}, m.ProfileErr
	}
	return m.Profile, nil
}

// VerifySignature доверяет адресу из подписи, если не настроена ошибка.
func (m *MockService) VerifySignature(_ context.Context, sig domain.Signature) (string, error) {
	m.VerifyCalls++
	if m.VerifyErr != nil {
		return "", m.VerifyErr
	}
	if sig.Address == "" {
		return "", domain.ErrUnauthorized
	}
	return sig.Address, nil
}

var (
	_ domain.ProfileProvider   = (*MockService)(nil)
	_ domain.SignatureVerifier = (*MockService)(nil)
)
