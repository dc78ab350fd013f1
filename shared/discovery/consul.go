// Package discovery registers services with a Consul agent.
package discovery

import (
	"fmt"
	"time"

	"github.com/hashicorp/consul/api"
)

// Config holds Consul agent settings. Registration is skipped when Addr is empty.
type Config struct {
	Addr          string        `env:"CONSUL_ADDR"`
	CheckInterval time.Duration `env:"CONSUL_CHECK_INTERVAL" envDefault:"10s"`
}

// Registration describes the service instance announced to Consul.
type Registration struct {
	Name      string
	Host      string
	Port      int
	HealthURL string
	Tags      []string
}

// ID returns the instance ID derived from name, host and port.
func (r Registration) ID() string {
	return fmt.Sprintf("%s-%s-%d", r.Name, r.Host, r.Port)
}

// Registrar announces and withdraws a single service instance.
type Registrar struct {
	client   *api.Client
	interval time.Duration
	id       string
}

// NewRegistrar creates a Consul API client for the agent at cfg.Addr.
func NewRegistrar(cfg Config) (*Registrar, error) {
	apiCfg := api.DefaultConfig()
	apiCfg.Address = cfg.Addr

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, err
	}

	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &Registrar{client: client, interval: interval}, nil
}

// Register announces the instance with an HTTP health check.
func (r *Registrar) Register(reg Registration) error {
	service := &api.AgentServiceRegistration{
		ID:      reg.ID(),
		Name:    reg.Name,
		Address: reg.Host,
		Port:    reg.Port,
		Tags:    reg.Tags,
	}

	if reg.HealthURL != "" {
		service.Check = &api.AgentServiceCheck{
			HTTP:                           reg.HealthURL,
			Interval:                       r.interval.String(),
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		}
	}

	if err := r.client.Agent().ServiceRegister(service); err != nil {
		return fmt.Errorf("failed to register %s with consul: %w", service.ID, err)
	}

	r.id = service.ID

	return nil
}

// Deregister withdraws the instance registered last. It is a no-op before Register.
func (r *Registrar) Deregister() error {
	if r.id == "" {
		return nil
	}

	if err := r.client.Agent().ServiceDeregister(r.id); err != nil {
		return fmt.Errorf("failed to deregister %s from consul: %w", r.id, err)
	}

	r.id = ""

	return nil
}
