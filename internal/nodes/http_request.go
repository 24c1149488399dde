package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/node"
	"github.com/flowgrid/flowgrid/internal/platform/validate"
)

// TypeHTTPRequest is the registry key of the HTTP request node.
const TypeHTTPRequest = "http-request"

// HTTPRequest calls an external HTTP endpoint. One request is made per run;
// JSON responses land in the output record, other content types in the
// item's binary map.
type HTTPRequest struct {
	client *http.Client
}

// NewHTTPRequest creates an HTTP request processor.
func NewHTTPRequest() *HTTPRequest {
	return &HTTPRequest{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Definition returns the node type description.
func (n *HTTPRequest) Definition() node.Definition {
	return node.Definition{
		Type:        TypeHTTPRequest,
		Name:        "HTTP Request",
		Description: "Make an HTTP request to an external API",
		Category:    "core",
		Version:     "1.0.0",
		Inputs: []node.Port{
			{Name: node.PortMain, DataType: "any", LinkType: node.LinkStandard},
		},
		Outputs: []node.Port{
			{Name: node.PortMain, DataType: "any", LinkType: node.LinkStandard},
			{Name: node.PortError, DataType: "any", LinkType: node.LinkStandard},
		},
		Properties: []node.Property{
			{Name: "method", Type: validate.PropertySelect, Required: true, Default: "GET", Options: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"}, Description: "HTTP method"},
			{Name: "url", Type: validate.PropertyString, Required: true, Description: "Request URL"},
			{Name: "headers", Type: validate.PropertyJSON, Description: "Request headers"},
			{Name: "queryParams", Type: validate.PropertyJSON, Description: "Query parameters"},
			{Name: "body", Type: validate.PropertyJSON, Description: "JSON request body"},
			{Name: "timeoutSeconds", Type: validate.PropertyNumber, Default: 30, Description: "Request timeout"},
		},
	}
}

// Validate checks the URL.
func (n *HTTPRequest) Validate(config map[string]any) error {
	raw := getStringConfig(config, "url", "")
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid url %q", raw)
	}
	return nil
}

// Process performs the request.
func (n *HTTPRequest) Process(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
	method := getStringConfig(pc.Config, "method", http.MethodGet)
	rawURL := getStringConfig(pc.Config, "url", "")

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if params := getMapConfig(pc.Config, "queryParams"); params != nil {
		q := u.Query()
		for k, v := range params {
			q.Set(k, fmt.Sprint(v))
		}
		u.RawQuery = q.Encode()
	}

	var bodyReader io.Reader
	if body := getMapConfig(pc.Config, "body"); body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	timeout := time.Duration(getIntConfig(pc.Config, "timeoutSeconds", 30)) * time.Second
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if headers := getMapConfig(pc.Config, "headers"); headers != nil {
		for k, v := range headers {
			req.Header.Set(k, fmt.Sprint(v))
		}
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 50<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	record := item.Record{
		"statusCode": resp.StatusCode,
		"url":        u.String(),
	}
	respHeaders := item.Record{}
	for k := range resp.Header {
		respHeaders[k] = resp.Header.Get(k)
	}
	record["headers"] = respHeaders

	out := item.NewItem(record)
	contentType := resp.Header.Get("Content-Type")
	var parsed any
	if strings.Contains(contentType, "application/json") && json.Unmarshal(raw, &parsed) == nil {
		record["body"] = parsed
	} else if len(raw) > 0 {
		out.Binary = map[string]item.Binary{
			"body": {Data: raw, MIMEType: contentType},
		}
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("request returned status %d", resp.StatusCode)
	}
	return node.Output{node.PortMain: item.Single(out)}, nil
}
