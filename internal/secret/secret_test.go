package secret

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestValue_NeverFormatsContent(t *testing.T) {
	v := New("hunter2")

	for _, verb := range []string{"%s", "%v", "%+v", "%#v", "%q", "%x"} {
		out := fmt.Sprintf(verb, v)
		if strings.Contains(out, "hunter2") || strings.Contains(out, fmt.Sprintf("%x", "hunter2")) {
			t.Errorf("Sprintf(%q) leaked secret: %q", verb, out)
		}
	}

	wrapped := struct {
		User     string
		Password Value
	}{"alice", v}
	if out := fmt.Sprintf("%+v", wrapped); strings.Contains(out, "hunter2") {
		t.Errorf("struct formatting leaked secret: %q", out)
	}
}

func TestValue_JSON(t *testing.T) {
	b, err := json.Marshal(map[string]Value{"password": New("hunter2")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "hunter2") {
		t.Errorf("json leaked secret: %s", b)
	}
}

func TestValue_Zap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	log.Info("login", zap.Any("password", New("hunter2")), zap.Stringer("hash", New("$argon2id$")))

	for _, entry := range logs.All() {
		for k, val := range entry.ContextMap() {
			if strings.Contains(fmt.Sprint(val), "hunter2") || strings.Contains(fmt.Sprint(val), "argon2id") {
				t.Errorf("field %s leaked secret: %v", k, val)
			}
		}
	}
}

func TestValue_ExposeAndWipe(t *testing.T) {
	src := []byte("s3cret")
	v := FromBytes(src)
	src[0] = 'X'

	if got := v.ExposeString(); got != "s3cret" {
		t.Fatalf("ExposeString = %q; want %q", got, "s3cret")
	}

	v.Wipe()
	for i, b := range v.Expose() {
		if b != 0 {
			t.Fatalf("byte %d = %d after Wipe; want 0", i, b)
		}
	}
	if New("").IsEmpty() != true {
		t.Error("IsEmpty on empty value = false; want true")
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	var cfg struct {
		APIKey Value `json:"api_key"`
	}
	if err := json.Unmarshal([]byte(`{"api_key":"abc123"}`), &cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := cfg.APIKey.ExposeString(); got != "abc123" {
		t.Errorf("APIKey = %q; want %q", got, "abc123")
	}
}
