// Package profile — клиент прокси-ноды Bastyon: профили пользователей,
// проверка подписей запросов и информация о ноде.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/andyoknen/p2p-bastyon-backend/internal/domain"
)

const defaultRequestTimeout = 10 * time.Second

// Client ходит в JSON-RPC прокси Bastyon по HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Entry
}

// NewClient конструирует клиента прокси; baseURL без завершающего слэша.
func NewClient(baseURL string, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.WithField("component", "proxy-client")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultRequestTimeout},
		logger:  logger,
	}
}

type rpcRequest struct {
	Method     string      `json:"method"`
	Parameters interface{} `json:"parameters,omitempty"`
}

// call выполняет один RPC-вызов и декодирует ответ в out.
func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	body, err := json.Marshal(rpcRequest{Method: method, Parameters: params})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call proxy method %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("proxy method %s returned status %d", method, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode proxy response for %s: %w", method, err)
	}

	return nil
}

type userProfileResponse struct {
	Data []struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Avatar  string `json:"i"`
	} `json:"data"`
}

// GetUserProfile возвращает имя и аватар адреса. Пустой ответ прокси
// трактуется как отсутствие профиля.
func (c *Client) GetUserProfile(ctx context.Context, address string) (domain.Profile, error) {
	var resp userProfileResponse
	err := c.call(ctx, "getuserprofile", map[string]interface{}{
		"addresses": []string{address},
	}, &resp)
	if err != nil {
		c.logger.WithError(err).WithField("address", address).Warn("profile lookup failed")
		return domain.Profile{}, fmt.Errorf("%w: %v", domain.ErrProfileLookup, err)
	}
	if len(resp.Data) == 0 {
		return domain.Profile{}, fmt.Errorf("%w: no profile for address", domain.ErrProfileLookup)
	}

	return domain.Profile{
		Name:   resp.Data[0].Name,
		Avatar: resp.Data[0].Avatar,
	}, nil
}

type checkSignatureResponse struct {
	Valid bool `json:"valid"`
}

// VerifySignature проверяет подпись через прокси и возвращает адрес подписанта.
func (c *Client) VerifySignature(ctx context.Context, sig domain.Signature) (string, error) {
	if sig.Address == "" || sig.Signature == "" {
		return "", domain.ErrUnauthorized
	}

	var resp checkSignatureResponse
	if err := c.call(ctx, "checksignature", map[string]interface{}{
		"signature": sig,
	}, &resp); err != nil {
		return "", fmt.Errorf("verify signature: %w", err)
	}
	if !resp.Valid {
		return "", domain.ErrUnauthorized
	}

	return sig.Address, nil
}

// GetNodeInfo возвращает сырой ответ getnodeinfo без интерпретации.
func (c *Client) GetNodeInfo(ctx context.Context) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.call(ctx, "getnodeinfo", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

var (
	_ domain.ProfileProvider   = (*Client)(nil)
	_ domain.SignatureVerifier = (*Client)(nil)
)
