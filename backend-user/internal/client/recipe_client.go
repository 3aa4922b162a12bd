package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/backend-user/internal/domain"
	"github.com/D-Tasker207/gazpacho-backend/pkg/retry"
	"github.com/D-Tasker207/gazpacho-backend/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RecipeClientConfig holds configuration for RecipeClient
type RecipeClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Retry   *retry.Config
}

// RecipeClient asks the recipe service whether recipes exist
type RecipeClient struct {
	baseURL    string
	httpClient *http.Client
	retrier    *retry.Retrier
}

// NewRecipeClient creates a new RecipeClient
func NewRecipeClient(cfg *RecipeClientConfig) *RecipeClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RecipeClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retrier:    retry.New(cfg.Retry),
	}
}

// RecipeExists returns true on 200 and false on 404. Transport errors and 5xx
// responses are retried and end in domain.ErrRecipeCatalogUnavailable.
func (c *RecipeClient) RecipeExists(ctx context.Context, recipeID int64) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "client.recipe.exists")
	defer span.End()
	span.SetAttributes(attribute.Int64("recipe_id", recipeID))

	url := c.baseURL + "/recipes/" + strconv.FormatInt(recipeID, 10)
	var exists bool

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		telemetry.InjectHTTPHeaders(ctx, req.Header)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode == http.StatusOK:
			exists = true
			return nil
		case resp.StatusCode == http.StatusNotFound:
			exists = false
			return nil
		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("recipe service returned %d", resp.StatusCode)
		default:
			return retry.Permanent(fmt.Errorf("recipe service returned %d", resp.StatusCode))
		}
	}, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("%w: %v", domain.ErrRecipeCatalogUnavailable, err)
	}

	span.SetAttributes(attribute.Bool("exists", exists))
	return exists, nil
}
