package gateway

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/middleware"
	"github.com/eaglebank/accounts/internal/models"
)

// hopHeaders are connection-scoped and must not be forwarded.
var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// proxyTo forwards the request to serviceURL, rewriting the path so that
// everything after the matched route prefix is appended to the service root:
// /eazybank/accounts/api/fetch becomes {serviceURL}/api/fetch.
func proxyTo(serviceURL, prefix string, client *http.Client, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := strings.TrimPrefix(c.Request.URL.Path, prefix)
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		targetURL := serviceURL + path
		if c.Request.URL.RawQuery != "" {
			targetURL += "?" + c.Request.URL.RawQuery
		}

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, bytes.NewBuffer(bodyBytes))
		if err != nil {
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create request")
			return
		}

		for key, values := range c.Request.Header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
		for _, h := range hopHeaders {
			req.Header.Del(h)
		}

		resp, err := client.Do(req)
		if err != nil {
			log.Warn("error proxying request", "target", targetURL, "correlationId", middleware.GetCorrelationID(c), "error", err)
			middleware.RespondWithError(c, http.StatusServiceUnavailable, "Service unavailable")
			return
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadGateway, "Failed to read response")
			return
		}

		for key, values := range resp.Header {
			// The correlation header was already set on the way in.
			if isHopHeader(key) || http.CanonicalHeaderKey(key) == http.CanonicalHeaderKey(models.CorrelationIDHeader) {
				continue
			}
			for _, value := range values {
				c.Writer.Header().Add(key, value)
			}
		}
		c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), respBody)
	}
}

func isHopHeader(key string) bool {
	for _, h := range hopHeaders {
		if http.CanonicalHeaderKey(key) == h {
			return true
		}
	}
	return false
}
