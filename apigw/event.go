package apigw

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aura-studio/bragg/chain"
	events "github.com/aws/aws-lambda-go/events"
	"github.com/tidwall/sjson"
)

// FromProxyRequest converts an API Gateway proxy request into a chain event.
// Base64 bodies are decoded; the identity mapping combines the caller
// identity with the authorizer's claims.
func FromProxyRequest(req events.APIGatewayProxyRequest) (chain.Event, error) {
	body := req.Body
	if req.IsBase64Encoded && body != "" {
		b, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("apigw: decode body: %w", err)
		}
		body = string(b)
	}

	ev := chain.Event{
		"httpMethod":            req.HTTPMethod,
		"path":                  req.Path,
		"resource":              req.Resource,
		"queryStringParameters": req.QueryStringParameters,
		"pathParameters":        req.PathParameters,
		"headers":               req.Headers,
		"identity":              identity(req.RequestContext),
		"stage":                 req.RequestContext.Stage,
	}
	if body != "" {
		ev["body"] = body
	}
	if req.RequestContext.RequestID != "" {
		ev["requestId"] = req.RequestContext.RequestID
	}
	return ev, nil
}

func identity(rc events.APIGatewayProxyRequestContext) map[string]any {
	id := rc.Identity
	m := make(map[string]any)
	for k, v := range map[string]string{
		"sourceIp":          id.SourceIP,
		"userAgent":         id.UserAgent,
		"user":              id.User,
		"userArn":           id.UserArn,
		"accountId":         id.AccountID,
		"caller":            id.Caller,
		"apiKey":            id.APIKey,
		"cognitoIdentityId": id.CognitoIdentityID,
	} {
		if v != "" {
			m[k] = v
		}
	}

	if claims, ok := rc.Authorizer["claims"].(map[string]any); ok {
		for k, v := range claims {
			m[k] = v
		}
	}
	for k, v := range rc.Authorizer {
		if k == "claims" {
			continue
		}
		if _, exists := m[k]; !exists {
			m[k] = v
		}
	}
	return m
}

// ToProxyResponse converts a chain response into an API Gateway proxy
// response. String bodies are sent as-is, byte slices base64 encoded and
// anything else as JSON.
func ToProxyResponse(rsp chain.Response, errorBody bool) (events.APIGatewayProxyResponse, error) {
	out := events.APIGatewayProxyResponse{
		StatusCode: rsp.StatusCode,
		Headers:    make(map[string]string, len(rsp.Headers)+1),
	}
	for k, v := range rsp.Headers {
		out.Headers[k] = v
	}

	switch body := rsp.Body.(type) {
	case nil:
	case string:
		if errorBody && rsp.StatusCode >= http.StatusBadRequest {
			b, err := sjson.SetBytes([]byte(`{}`), "error", body)
			if err != nil {
				return out, err
			}
			out.Body = string(b)
			setDefault(out.Headers, "Content-Type", "application/json")
			break
		}
		out.Body = body
		setDefault(out.Headers, "Content-Type", "text/plain; charset=utf-8")
	case []byte:
		out.Body = base64.StdEncoding.EncodeToString(body)
		out.IsBase64Encoded = true
		setDefault(out.Headers, "Content-Type", "application/octet-stream")
	default:
		b, err := json.Marshal(body)
		if err != nil {
			return out, fmt.Errorf("apigw: encode body: %w", err)
		}
		out.Body = string(b)
		setDefault(out.Headers, "Content-Type", "application/json")
	}
	return out, nil
}

func setDefault(headers map[string]string, key, value string) {
	for k := range headers {
		if http.CanonicalHeaderKey(k) == key {
			return
		}
	}
	headers[key] = value
}
