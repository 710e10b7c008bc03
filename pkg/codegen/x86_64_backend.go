package codegen

import (
	"bytes"

	"github.com/xplshn/ttc/pkg/asm"
	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/tac"
	"github.com/xplshn/ttc/pkg/util"
)

// NativeBackend lowers TAC through the asm passes and prints x86-64 itself.
type NativeBackend struct {
	// Asm is the lowered program of the last successful Generate or
	// GenerateIR call.
	Asm *asm.Program
}

func NewNativeBackend() *NativeBackend { return &NativeBackend{} }

// Lower runs the asm passes and checks their result. Broken invariants come
// back as *util.InternalError instead of a panic.
func Lower(prog *tac.Program) (lowered *asm.Program, err error) {
	defer util.RecoverICE(&err)
	lowered = asm.Lower(prog)
	if err := asm.Verify(lowered); err != nil {
		return nil, err
	}
	return lowered, nil
}

func (b *NativeBackend) GenerateIR(prog *tac.Program, cfg *config.Config) (string, error) {
	lowered, err := Lower(prog)
	if err != nil {
		return "", err
	}
	b.Asm = lowered
	return lowered.String(), nil
}

func (b *NativeBackend) Generate(prog *tac.Program, cfg *config.Config) (*bytes.Buffer, error) {
	lowered, err := Lower(prog)
	if err != nil {
		return nil, err
	}
	b.Asm = lowered

	var out bytes.Buffer
	if err := Emit(&out, lowered, cfg.Platform); err != nil {
		return nil, err
	}
	return &out, nil
}
