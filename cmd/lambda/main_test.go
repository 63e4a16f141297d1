package main

import (
	"testing"

	"docgraph/interfaces/http/rest/middleware"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
)

func TestForwardAuthorizerClaims(t *testing.T) {
	t.Run("spoofed headers are stripped", func(t *testing.T) {
		req := events.APIGatewayV2HTTPRequest{Headers: map[string]string{
			"x-api-gateway-authorized": "true",
			"X-Org-ID":                 "someone-elses-org",
			"authorization":            "Bearer abc",
		}}
		forwardAuthorizerClaims(&req)

		assert.NotContains(t, req.Headers, "x-api-gateway-authorized")
		assert.NotContains(t, req.Headers, "X-Org-ID")
		assert.Equal(t, "Bearer abc", req.Headers["authorization"])
	})

	t.Run("authorizer claims are forwarded", func(t *testing.T) {
		req := events.APIGatewayV2HTTPRequest{
			RequestContext: events.APIGatewayV2HTTPRequestContext{
				Authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
					JWT: &events.APIGatewayV2HTTPRequestContextAuthorizerJWTDescription{
						Claims: map[string]string{"sub": "user-1", "org_id": "org-1", "email": "u@example.com"},
					},
				},
			},
		}
		forwardAuthorizerClaims(&req)

		assert.Equal(t, "true", req.Headers[middleware.HeaderGatewayAuthorized])
		assert.Equal(t, "user-1", req.Headers[middleware.HeaderUserID])
		assert.Equal(t, "org-1", req.Headers[middleware.HeaderOrgID])
	})

	t.Run("claims without org are not trusted", func(t *testing.T) {
		req := events.APIGatewayV2HTTPRequest{
			RequestContext: events.APIGatewayV2HTTPRequestContext{
				Authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
					JWT: &events.APIGatewayV2HTTPRequestContextAuthorizerJWTDescription{
						Claims: map[string]string{"sub": "user-1"},
					},
				},
			},
		}
		forwardAuthorizerClaims(&req)
		assert.NotContains(t, req.Headers, middleware.HeaderGatewayAuthorized)
	})
}
