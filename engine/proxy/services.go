package proxy

import (
	"fmt"
	"strings"
)

// Services is the set of behaviors a Chain applies.
type Services uint8

const (
	Tracing Services = 1 << iota
	Caching
	Metrics
	ExceptionWrapping

	AllServices = Tracing | Caching | Metrics | ExceptionWrapping
)

var serviceNames = []struct {
	service Services
	name    string
}{
	{Tracing, "tracing"},
	{Caching, "caching"},
	{Metrics, "metrics"},
	{ExceptionWrapping, "exceptions"},
}

// Has reports whether every service in o is enabled in s.
func (s Services) Has(o Services) bool {
	return s&o == o
}

func (s Services) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	for _, sn := range serviceNames {
		if s.Has(sn.service) {
			names = append(names, sn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseServices reads a comma separated list such as "tracing,caching".
// "all" enables everything, "none" or an empty string nothing.
func ParseServices(s string) (Services, error) {
	var out Services
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		switch name {
		case "", "none":
			continue
		case "all":
			out |= AllServices
			continue
		}
		found := false
		for _, sn := range serviceNames {
			if sn.name == name {
				out |= sn.service
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown service %q", part)
		}
	}
	return out, nil
}
