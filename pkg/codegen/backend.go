package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/tac"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// GenerateIR renders the backend's own intermediate form of prog, as shown
	// by --dump=ir.
	GenerateIR(prog *tac.Program, cfg *config.Config) (string, error)
	// Generate produces the target assembly for prog.
	Generate(prog *tac.Program, cfg *config.Config) (*bytes.Buffer, error)
}

// NewBackend returns the backend named by cfg.BackendName.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.BackendName {
	case "", config.BackendNative:
		return NewNativeBackend(), nil
	case config.BackendQBE:
		return NewQBEBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported backend '%s'", cfg.BackendName)
	}
}
