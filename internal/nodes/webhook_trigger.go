package nodes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/node"
	"github.com/flowgrid/flowgrid/internal/platform/validate"
)

// TypeWebhookTrigger is the registry key of the webhook trigger.
const TypeWebhookTrigger = "webhook-trigger"

// WebhookTrigger starts a run for every HTTP request delivered to its path.
// Each trigger owns a small mux-routed listener started by Start.
type WebhookTrigger struct {
	defaultAddr string

	mu     sync.Mutex
	config map[string]any
	server *http.Server
}

var _ node.TriggerSource = (*WebhookTrigger)(nil)

// NewWebhookTrigger creates a webhook trigger processor. defaultAddr is the
// process-level listen address used when a node's config sets none; empty
// falls back to ":8081".
func NewWebhookTrigger(defaultAddr string) *WebhookTrigger {
	if defaultAddr == "" {
		defaultAddr = ":8081"
	}
	return &WebhookTrigger{defaultAddr: defaultAddr}
}

// Definition returns the node type description.
func (t *WebhookTrigger) Definition() node.Definition {
	return node.Definition{
		Type:        TypeWebhookTrigger,
		Name:        "Webhook Trigger",
		Description: "Start the workflow on an incoming HTTP request",
		Category:    "trigger",
		Version:     "1.0.0",
		IsTrigger:   true,
		Outputs: []node.Port{
			{Name: node.PortMain, DataType: "any", LinkType: node.LinkStandard},
		},
		Properties: []node.Property{
			{Name: "addr", Type: validate.PropertyString, Default: t.defaultAddr, Description: "Listen address"},
			{Name: "path", Type: validate.PropertyString, Default: "/hooks/default", Description: "Request path"},
			{Name: "method", Type: validate.PropertySelect, Default: "POST", Options: []string{"GET", "POST", "PUT"}, Description: "Accepted method"},
		},
	}
}

// Validate checks the listener settings and retains them for Start.
func (t *WebhookTrigger) Validate(config map[string]any) error {
	path := getStringConfig(config, "path", "/hooks/default")
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("webhook path must start with /")
	}
	t.mu.Lock()
	t.config = config
	t.mu.Unlock()
	return nil
}

// Process emits an empty delivery; real payloads arrive through Start.
func (t *WebhookTrigger) Process(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
	return node.Output{node.PortMain: item.Single(item.NewItem(item.Record{
		"receivedAt": time.Now().Format(time.RFC3339),
	}))}, nil
}

// Start launches the HTTP listener. Each accepted request becomes one fire:
// JSON bodies land in the item's record, anything else in its binary map.
func (t *WebhookTrigger) Start(ctx context.Context, fire node.FireFunc) error {
	t.mu.Lock()
	config := t.config
	t.mu.Unlock()

	addr := t.listenAddr(config)
	path := getStringConfig(config, "path", "/hooks/default")
	method := getStringConfig(config, "method", "POST")

	router := mux.NewRouter()
	router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		out, err := deliveryOutput(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := fire(out); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}).Methods(method)

	srv := &http.Server{Addr: addr, Handler: router}
	t.mu.Lock()
	t.server = srv
	t.mu.Unlock()

	go func() {
		_ = srv.ListenAndServe()
	}()
	go func() {
		<-ctx.Done()
		_ = t.Stop(context.Background())
	}()
	return nil
}

// listenAddr resolves the listen address: node config first, then the
// process-level default handed to the constructor.
func (t *WebhookTrigger) listenAddr(config map[string]any) string {
	return getStringConfig(config, "addr", t.defaultAddr)
}

// Stop shuts the listener down.
func (t *WebhookTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	srv := t.server
	t.server = nil
	t.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// deliveryOutput converts an HTTP request into the trigger payload.
func deliveryOutput(r *http.Request) (node.Output, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	record := item.Record{
		"method":     r.Method,
		"path":       r.URL.Path,
		"query":      r.URL.RawQuery,
		"receivedAt": time.Now().Format(time.RFC3339Nano),
	}
	headers := item.Record{}
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	record["headers"] = headers

	it := item.NewItem(record)
	contentType := r.Header.Get("Content-Type")
	if len(body) > 0 {
		var parsed any
		if strings.Contains(contentType, "application/json") && json.Unmarshal(body, &parsed) == nil {
			record["body"] = parsed
		} else {
			it.Binary = map[string]item.Binary{
				"body": {Data: body, MIMEType: contentType},
			}
			record["bodyBase64"] = base64.StdEncoding.EncodeToString(body)
		}
	}
	return node.Output{node.PortMain: item.Single(it)}, nil
}
