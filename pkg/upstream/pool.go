package upstream

import (
	"context"
	"net/http"
	"sync"

	"curvelaboratory/promptgateway/pkg/config"
)

// Cluster names reserved by the gateway. Developer endpoints use their
// configured names.
const (
	ModelServerCluster = "curve_internal"
	LLMCluster         = "llm_upstream"
)

// Pool holds one Client per named cluster.
type Pool struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{clients: make(map[string]*Client)}
}

// NewPoolFromConfig registers the model server, the LLM upstream, and every
// developer endpoint declared in cfg.
func NewPoolFromConfig(cfg *config.Config, httpClient *http.Client, secrets CredentialSource) *Pool {
	p := NewPool()

	p.Register(NewClient(ClusterConfig{
		Name:       ModelServerCluster,
		BaseURL:    cfg.ModelServer.BaseURL,
		MaxRetries: cfg.ModelServer.MaxRetries,
	}, httpClient, secrets))

	p.Register(NewClient(ClusterConfig{
		Name:         LLMCluster,
		BaseURL:      cfg.LLMUpstream.BaseURL,
		MaxRetries:   cfg.LLMUpstream.MaxRetries,
		APIKeySecret: cfg.LLMUpstream.APIKeySecret,
	}, httpClient, secrets))

	for name, ep := range cfg.Endpoints {
		p.Register(NewClient(ClusterConfig{
			Name:         name,
			BaseURL:      ep.Endpoint,
			MaxRetries:   ep.MaxRetries,
			APIKeySecret: ep.APIKeySecret,
		}, httpClient, secrets))
	}

	return p
}

// Register adds or replaces a client.
func (p *Pool) Register(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients[c.Name()] = c
}

// Get returns the client for cluster.
func (p *Pool) Get(cluster string) (*Client, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, ok := p.clients[cluster]
	if !ok {
		return nil, &UnknownClusterError{Cluster: cluster}
	}
	return c, nil
}

// Call performs req against cluster and returns the full body.
func (p *Pool) Call(ctx context.Context, cluster string, req Request) ([]byte, error) {
	c, err := p.Get(cluster)
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, req)
}
