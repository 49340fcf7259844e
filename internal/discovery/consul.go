// Package discovery registers this instance with Consul so gateways can
// route websocket and HTTP traffic to it.
package discovery

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

type Registration struct {
	ID      string
	Name    string
	Host    string
	Port    int
	Tags    []string
	Checker string // HTTP health endpoint path
}

type Registry struct {
	client *consulapi.Client
	logger *zap.SugaredLogger
}

func NewRegistry(addr string, logger *zap.SugaredLogger) (*Registry, error) {
	cfg := consulapi.DefaultConfig()
	cfg.Address = addr
	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Registry{client: client, logger: logger}, nil
}

// ServiceDefinition builds the agent payload for r.
func ServiceDefinition(r Registration) *consulapi.AgentServiceRegistration {
	reg := &consulapi.AgentServiceRegistration{
		ID:      r.ID,
		Name:    r.Name,
		Address: r.Host,
		Port:    r.Port,
		Tags:    r.Tags,
	}
	if r.Checker != "" {
		reg.Check = &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d%s", r.Host, r.Port, r.Checker),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		}
	}
	return reg
}

func (r *Registry) Register(reg Registration) error {
	if err := r.client.Agent().ServiceRegister(ServiceDefinition(reg)); err != nil {
		return err
	}
	r.logger.Infow("registered with consul", "service", reg.Name, "id", reg.ID)
	return nil
}

func (r *Registry) Deregister(id string) error {
	return r.client.Agent().ServiceDeregister(id)
}
