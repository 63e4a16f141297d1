package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"docgraph/infrastructure/config"
	"docgraph/infrastructure/di"
	"docgraph/interfaces/http/rest/middleware"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
)

var (
	// chiLambda wraps the Chi router for AWS Lambda integration
	chiLambda *chiadapter.ChiLambdaV2

	container *di.Container

	coldStart     = true
	coldStartTime time.Time
)

// forwardedClaimHeaders are only ever set from the authorizer context
var forwardedClaimHeaders = []string{
	middleware.HeaderGatewayAuthorized,
	middleware.HeaderUserID,
	middleware.HeaderOrgID,
	middleware.HeaderUserEmail,
	middleware.HeaderUserRoles,
}

// setup builds the container once per execution environment
func setup() {
	coldStartTime = time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The pool lives for the lifetime of the execution environment, so the
	// cleanup is never called.
	container, _, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	chiLambda = chiadapter.NewV2(container.Router.Setup())

	container.Logger.Info("Lambda cold start completed", zap.Duration("duration", time.Since(coldStartTime)))
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	forwardAuthorizerClaims(&req)

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		coldStart = false
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		container.Logger.Error("Lambda error response",
			zap.String("method", req.RequestContext.HTTP.Method),
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.String("requestID", req.RequestContext.RequestID),
			zap.Int("statusCode", resp.StatusCode),
		)
	}

	return resp, err
}

// forwardAuthorizerClaims replaces any client-supplied claim headers with the
// claims the API Gateway JWT authorizer validated. Without authorizer claims
// the request falls through to bearer token validation.
func forwardAuthorizerClaims(req *events.APIGatewayV2HTTPRequest) {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	for name := range req.Headers {
		for _, forwarded := range forwardedClaimHeaders {
			if strings.EqualFold(name, forwarded) {
				delete(req.Headers, name)
			}
		}
	}

	authorizer := req.RequestContext.Authorizer
	if authorizer == nil || authorizer.JWT == nil {
		return
	}
	claims := authorizer.JWT.Claims
	if claims["sub"] == "" || claims["org_id"] == "" {
		return
	}

	req.Headers[middleware.HeaderGatewayAuthorized] = "true"
	req.Headers[middleware.HeaderUserID] = claims["sub"]
	req.Headers[middleware.HeaderOrgID] = claims["org_id"]
	req.Headers[middleware.HeaderUserEmail] = claims["email"]
	req.Headers[middleware.HeaderUserRoles] = claims["roles"]
}

func main() {
	setup()
	lambda.Start(Handler)
}
