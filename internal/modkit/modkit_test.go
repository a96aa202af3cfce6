package modkit

import (
	"testing"

	phttp "reviewprep/internal/platform/net/http"
)

type stub struct {
	mounted bool
	ports   any
}

func (s *stub) MountRoutes(_ phttp.Router) { s.mounted = true }
func (s *stub) Ports() any                 { return s.ports }
func (s *stub) Name() string               { return "stub" }

var _ Module = (*stub)(nil)

func TestModule_InterfaceSurface(t *testing.T) {
	t.Parallel()

	m := &stub{ports: 42}
	var r phttp.Router
	m.MountRoutes(r)
	if !m.mounted {
		t.Fatal("expected MountRoutes to be called")
	}
}

func TestPortsOf(t *testing.T) {
	t.Parallel()

	type ports struct{ N int }
	tests := []struct {
		name string
		m    Module
		ok   bool
	}{
		{"typed", &stub{ports: ports{N: 1}}, true},
		{"other type", &stub{ports: "x"}, false},
		{"nil ports", &stub{}, false},
		{"nil module", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := PortsOf[ports](tc.m)
			if ok != tc.ok {
				t.Fatalf("ok = %v", ok)
			}
			if ok && p.N != 1 {
				t.Fatalf("ports = %+v", p)
			}
		})
	}
}
