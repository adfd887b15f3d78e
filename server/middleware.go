package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	twilioclient "github.com/twilio/twilio-go/client"
)

// verifySignature rejects webhook requests whose provider signature does not
// match the shared auth token. Twilio and SignalWire both sign with the same
// HMAC-SHA1 scheme over the full URL plus the sorted form parameters.
func verifySignature(authToken, publicBaseURL string, logger *slog.Logger) gin.HandlerFunc {
	validator := twilioclient.NewRequestValidator(authToken)

	return func(c *gin.Context) {
		signature := c.GetHeader("X-Twilio-Signature")
		if signature == "" {
			signature = c.GetHeader("X-Signalwire-Signature")
		}
		if signature == "" {
			logger.Warn("webhook without signature rejected", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "missing signature"})
			return
		}

		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "malformed form body"})
			return
		}
		params := make(map[string]string, len(c.Request.PostForm))
		for k, vs := range c.Request.PostForm {
			if len(vs) > 0 {
				params[k] = vs[0]
			}
		}

		if !validator.Validate(signedURL(c, publicBaseURL), params, signature) {
			logger.Warn("webhook signature mismatch", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "invalid signature"})
			return
		}

		c.Next()
	}
}

// signedURL reconstructs the URL the provider signed. Behind a proxy the
// public base is authoritative; otherwise the request host is used as-is.
func signedURL(c *gin.Context, publicBaseURL string) string {
	if publicBaseURL != "" {
		return strings.TrimSuffix(publicBaseURL, "/") + c.Request.URL.RequestURI()
	}
	scheme := "https"
	if c.Request.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}
