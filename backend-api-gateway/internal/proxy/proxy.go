package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/pkg/logger"
	"github.com/D-Tasker207/gazpacho-backend/pkg/response"
	"github.com/D-Tasker207/gazpacho-backend/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	ErrCodeRouteNotFound  = "ROUTE_NOT_FOUND"
	ErrCodeBadGateway     = "BAD_GATEWAY"
	ErrCodeGatewayTimeout = "GATEWAY_TIMEOUT"
)

// ReverseProxy routes requests to backend services by path prefix
type ReverseProxy struct {
	config  ProxyConfig
	proxies map[string]*httputil.ReverseProxy
	client  *http.Client
}

// NewReverseProxy creates a reverse proxy for every service in config
func NewReverseProxy(config ProxyConfig) (*ReverseProxy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = 30 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	rp := &ReverseProxy{
		config:  config,
		proxies: make(map[string]*httputil.ReverseProxy),
		client: &http.Client{
			Transport: transport,
			Timeout:   5 * time.Second,
		},
	}

	for _, route := range config.Routes {
		if _, exists := rp.proxies[route.Service.Name]; exists {
			continue
		}
		proxy, err := rp.newServiceProxy(route.Service, transport)
		if err != nil {
			return nil, err
		}
		rp.proxies[route.Service.Name] = proxy
	}

	return rp, nil
}

func (rp *ReverseProxy) newServiceProxy(service ServiceConfig, transport http.RoundTripper) (*httputil.ReverseProxy, error) {
	targetURL, err := url.Parse(service.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url for %s: %w", service.Name, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(targetURL)
	proxy.Transport = transport

	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = targetURL.Host
		telemetry.InjectHTTPHeaders(req.Context(), req.Header)
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Get().Warn("Upstream request failed",
			zap.String("service", service.Name),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		status, body := upstreamError(err)
		writeJSON(w, status, body)
	}

	proxy.ModifyResponse = func(resp *http.Response) error {
		resp.Header.Set("X-Proxied-By", "api-gateway")
		return nil
	}

	return proxy, nil
}

// findRoute returns the first route matching path and method
func (rp *ReverseProxy) findRoute(path, method string) *RouteConfig {
	for i := range rp.config.Routes {
		if rp.config.Routes[i].matches(path, method) {
			return &rp.config.Routes[i]
		}
	}
	return nil
}

// Handler returns a Gin handler for proxying requests
func (rp *ReverseProxy) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "gateway.proxy")
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.path", c.Request.URL.Path),
		)

		route := rp.findRoute(c.Request.URL.Path, c.Request.Method)
		if route == nil {
			span.SetStatus(codes.Error, "no route")
			c.AbortWithStatusJSON(http.StatusNotFound, response.Error(ErrCodeRouteNotFound, "No route configured for this path"))
			return
		}
		span.SetAttributes(attribute.String("target.service", route.Service.Name))

		if route.StripPrefix != "" {
			c.Request.URL.Path = strings.TrimPrefix(c.Request.URL.Path, route.StripPrefix)
			if c.Request.URL.Path == "" {
				c.Request.URL.Path = "/"
			}
			c.Request.URL.RawPath = ""
		}

		timeout := route.Service.Timeout
		if timeout == 0 {
			timeout = rp.config.DefaultTimeout
		}
		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		c.Request = c.Request.WithContext(timeoutCtx)

		rp.proxies[route.Service.Name].ServeHTTP(c.Writer, c.Request)
	}
}

// HealthCheck calls /health on every backend service concurrently
func (rp *ReverseProxy) HealthCheck(ctx context.Context) map[string]bool {
	services := make(map[string]ServiceConfig)
	for _, route := range rp.config.Routes {
		services[route.Service.Name] = route.Service
	}

	results := make(map[string]bool, len(services))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, service := range services {
		wg.Add(1)
		go func(name string, service ServiceConfig) {
			defer wg.Done()
			healthy := rp.ping(ctx, service)

			mu.Lock()
			results[name] = healthy
			mu.Unlock()
		}(name, service)
	}

	wg.Wait()
	return results
}

func (rp *ReverseProxy) ping(ctx context.Context, service ServiceConfig) bool {
	healthURL := strings.TrimSuffix(service.BaseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := rp.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// upstreamError maps a transport failure to a gateway status and envelope
func upstreamError(err error) (int, response.Response) {
	if isTimeoutError(err) {
		return http.StatusGatewayTimeout, response.Error(ErrCodeGatewayTimeout, "Backend service timed out")
	}
	return http.StatusBadGateway, response.Error(ErrCodeBadGateway, "Backend service unavailable")
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
