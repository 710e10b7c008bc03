//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/tac"
)

// Generate shells out to a system 'qbe', since libqbe does not build on Windows.
func (b *qbeBackend) Generate(prog *tac.Program, cfg *config.Config) (*bytes.Buffer, error) {
	if _, err := exec.LookPath("qbe"); err != nil {
		return nil, fmt.Errorf("the built-in QBE is not available on Windows and 'qbe' is not in PATH: %w", err)
	}

	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}

	input, err := os.CreateTemp("", "ttc-qbe-*.ssa")
	if err != nil {
		return nil, err
	}
	defer os.Remove(input.Name())
	_, err = input.WriteString(qbeIR)
	if cerr := input.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	var asmBuf, stderr bytes.Buffer
	cmd := exec.Command("qbe", "-t", cfg.QbeTarget, input.Name())
	cmd.Stdout = &asmBuf
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("QBE compilation failed: %w\n%s\ngenerated IR:\n%s", err, stderr.String(), qbeIR)
	}
	return &asmBuf, nil
}
