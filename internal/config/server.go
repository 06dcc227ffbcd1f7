package config

import "time"

type Server struct {
	Address           string        `env:"SERVER_ADDRESS" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `env:"SERVER_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ProbeAddress      string        `env:"PROBE_ADDRESS" envDefault:":8091"`
	MetricsAddress    string        `env:"METRICS_ADDRESS" envDefault:":8092"`
}
