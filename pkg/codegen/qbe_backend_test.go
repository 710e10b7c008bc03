//go:build !windows

package codegen

import (
	"runtime"
	"strings"
	"testing"

	"github.com/xplshn/ttc/pkg/config"
)

func TestQBEGenerate(t *testing.T) {
	cfg := config.NewConfig()
	if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, "qbe"); err != nil {
		t.Fatal(err)
	}
	out, err := NewQBEBackend().Generate(complementOfNegate, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "main") {
		t.Errorf("QBE output does not define main:\n%s", out.String())
	}
}
