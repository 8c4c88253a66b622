package events

import (
	"strings"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	secret := "test-secret-key"
	body := []byte(`{"debug_tag":"onRun called","elapsed_ms":12,"app_name":"demo"}`)
	sig := Sign(body, secret)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		wantErr   bool
	}{
		{name: "prefixed", body: body, signature: sig, secret: secret},
		{name: "bare hex", body: body, signature: strings.TrimPrefix(sig, "sha256="), secret: secret},
		{name: "wrong signature", body: body, signature: "sha256=" + strings.Repeat("0", 64), secret: secret, wantErr: true},
		{name: "tampered body", body: []byte(`{"debug_tag":"onStop called"}`), signature: sig, secret: secret, wantErr: true},
		{name: "wrong secret", body: body, signature: sig, secret: "other", wantErr: true},
		{name: "empty signature", body: body, signature: "", secret: secret, wantErr: true},
		{name: "empty secret", body: body, signature: sig, secret: "", wantErr: true},
		{name: "not hex", body: body, signature: "sha256=zz", secret: secret, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.body, tt.signature, tt.secret)
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifySignature() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && err.Error() != errBadSignature.Error() {
				t.Errorf("error leaks detail: %v", err)
			}
		})
	}
}

func TestSignFormat(t *testing.T) {
	sig := Sign([]byte("x"), "k")
	if !strings.HasPrefix(sig, "sha256=") || len(sig) != len("sha256=")+64 {
		t.Fatalf("unexpected signature %q", sig)
	}
}
