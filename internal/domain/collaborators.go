package domain

import (
	"context"
	"io"
)

// Profile — отображаемые данные владельца адреса из внешнего сервиса профилей.
type Profile struct {
	Name   string
	Avatar string
}

// ProfileProvider описывает взаимодействие с сервисом профилей Bastyon.
type ProfileProvider interface {
	// GetUserProfile возвращает профиль адреса или ErrProfileLookup.
	GetUserProfile(ctx context.Context, address string) (Profile, error)
}

// Signature — подпись запроса, разобранная из заголовка.
type Signature struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
	PubKey    string `json:"pubkey,omitempty"`
	Nonce     string `json:"nonce,omitempty"`
}

// SignatureVerifier проверяет подпись и возвращает подтверждённый адрес.
type SignatureVerifier interface {
	VerifySignature(ctx context.Context, sig Signature) (string, error)
}

// BlobStore сохраняет загруженные подтверждения оплаты и возвращает
// стабильную ссылку; ядро хранит только ссылку.
type BlobStore interface {
	Store(fieldName, fileName string, r io.Reader) (string, error)
}

// EventPublisher публикует события жизненного цикла офферов и ордеров.
// Публикация best-effort: ошибка не должна ломать основную операцию.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}
