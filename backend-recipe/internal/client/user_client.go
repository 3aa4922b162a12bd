package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/domain"
	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
	"github.com/D-Tasker207/gazpacho-backend/pkg/retry"
	"github.com/D-Tasker207/gazpacho-backend/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// UserClientConfig holds configuration for UserClient
type UserClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Retry   *retry.Config
}

// UserClient looks up the caller's identity in the user service
type UserClient struct {
	baseURL    string
	httpClient *http.Client
	retrier    *retry.Retrier
}

// NewUserClient creates a new UserClient
func NewUserClient(cfg *UserClientConfig) *UserClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &UserClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retrier:    retry.New(cfg.Retry),
	}
}

type userEnvelope struct {
	Success bool            `json:"success"`
	Data    *dto.PublicUser `json:"data"`
}

// CurrentUser forwards authorization to GET /users and returns the caller.
// A 401 maps to domain.ErrUnauthenticated, a 404 to domain.ErrForbidden since
// a token for a vanished identity can never be an admin. Transport errors and
// 5xx responses are retried and end in domain.ErrUserServiceUnavailable.
func (c *UserClient) CurrentUser(ctx context.Context, authorization string) (*dto.PublicUser, error) {
	ctx, span := telemetry.StartSpan(ctx, "client.user.current")
	defer span.End()

	var user *dto.PublicUser
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users", nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Authorization", authorization)
		req.Header.Set("Accept", "application/json")
		telemetry.InjectHTTPHeaders(ctx, req.Header)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var env userEnvelope
			if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
				return retry.Permanent(fmt.Errorf("failed to decode user response: %w", err))
			}
			if env.Data == nil {
				return retry.Permanent(errors.New("user response carried no data"))
			}
			user = env.Data
			return nil
		case resp.StatusCode == http.StatusUnauthorized:
			return retry.Permanent(domain.ErrUnauthenticated)
		case resp.StatusCode == http.StatusNotFound:
			return retry.Permanent(domain.ErrForbidden)
		case resp.StatusCode >= http.StatusInternalServerError:
			_, _ = io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("user service returned %d", resp.StatusCode)
		default:
			return retry.Permanent(fmt.Errorf("user service returned %d", resp.StatusCode))
		}
	}, nil)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) || errors.Is(err, domain.ErrForbidden) {
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrUserServiceUnavailable, err)
	}

	span.SetAttributes(attribute.Int64("user_id", user.ID), attribute.Bool("admin", user.Admin))
	return user, nil
}
