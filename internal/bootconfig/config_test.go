package bootconfig

import (
	"strings"
	"testing"
)

func TestParseLFAndComments(t *testing.T) {
	buf := []byte("# seraph boot config\nkernel=\\EFI\\seraph\\seraph-kernel\ninit=\\sbin\\init\n")
	cfg, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Kernel != `\EFI\seraph\seraph-kernel` {
		t.Fatalf("Kernel = %q", cfg.Kernel)
	}
	if cfg.Init != `\sbin\init` {
		t.Fatalf("Init = %q", cfg.Init)
	}
	if len(WidenUTF16(cfg.Kernel))-1 != 25 {
		t.Fatalf("kernel path length = %d, want 25", len(WidenUTF16(cfg.Kernel))-1)
	}
	if len(WidenUTF16(cfg.Init))-1 != 10 {
		t.Fatalf("init path length = %d, want 10", len(WidenUTF16(cfg.Init))-1)
	}
}

func TestParseCRLF(t *testing.T) {
	buf := []byte("kernel=\\k\r\ninit=\\i\r\n")
	cfg, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Kernel != `\k` || cfg.Init != `\i` {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestParseMissingRequiredKey(t *testing.T) {
	_, err := Parse([]byte("kernel=\\k\n"))
	cfgErr, ok := err.(*Error)
	if !ok || cfgErr.Kind != KindMissingKey {
		t.Fatalf("expected KindMissingKey, got %v", err)
	}
}

func TestParseIgnoresUnknownKeys(t *testing.T) {
	buf := []byte("kernel=\\k\ninit=\\i\nfuture_option=yes\n")
	cfg, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Kernel != `\k` || cfg.Init != `\i` {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestParseValueTooLong(t *testing.T) {
	long := strings.Repeat("a", MaxValueLen+1)
	buf := []byte("kernel=" + long + "\ninit=\\i\n")
	_, err := Parse(buf)
	cfgErr, ok := err.(*Error)
	if !ok || cfgErr.Kind != KindValueTooLong {
		t.Fatalf("expected KindValueTooLong, got %v", err)
	}
}

func TestParseTooLarge(t *testing.T) {
	buf := make([]byte, MaxSize+1)
	for i := range buf {
		buf[i] = 'a'
	}
	_, err := Parse(buf)
	cfgErr, ok := err.(*Error)
	if !ok || cfgErr.Kind != KindTooLarge {
		t.Fatalf("expected KindTooLarge, got %v", err)
	}
}

func TestWidenUTF16Empty(t *testing.T) {
	wide := WidenUTF16("")
	if len(wide) != 1 || wide[0] != 0 {
		t.Fatalf("expected single null code unit, got %v", wide)
	}
}
