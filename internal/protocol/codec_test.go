package protocol

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/mattjoyce/excbridge/internal/status"
)

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   *Frame
		wantErr bool
		checkFn func(t *testing.T, output string)
	}{
		{
			name:  "set cps with numeric arg",
			frame: &Frame{Opcode: OpSetCPS, Arg: json.RawMessage(`12.5`), ReplyTo: "r-1"},
			checkFn: func(t *testing.T, output string) {
				if !strings.Contains(output, `"opcode":10`) {
					t.Error("missing opcode field")
				}
				if !strings.Contains(output, `"arg":12.5`) {
					t.Error("missing arg field")
				}
				if !strings.Contains(output, `"reply_to":"r-1"`) {
					t.Error("missing reply_to field")
				}
				if !strings.HasSuffix(output, "\n") {
					t.Error("frame must be newline terminated")
				}
			},
		},
		{
			name:    "missing opcode",
			frame:   &Frame{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := EncodeFrame(&buf, tt.frame)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EncodeFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, buf.String())
			}
		})
	}
}

func TestFrameReaderStream(t *testing.T) {
	input := `{"opcode":3,"reply_to":"a"}
{"opcode":10,"arg":"2.5","reply_to":"b"}
`
	fr := NewFrameReader(strings.NewReader(input))

	f1, err := fr.Next()
	if err != nil {
		t.Fatalf("Next 1: %v", err)
	}
	if f1.Opcode != OpStart || f1.ReplyTo != "a" {
		t.Fatalf("unexpected frame 1: %+v", f1)
	}

	f2, err := fr.Next()
	if err != nil {
		t.Fatalf("Next 2: %v", err)
	}
	if f2.Payload() != "2.5" {
		t.Fatalf("payload = %q, want 2.5", f2.Payload())
	}

	if _, err := fr.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestFrameReaderRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown field", `{"opcode":3,"bogus":1}`},
		{"missing opcode", `{"reply_to":"x"}`},
		{"not json", `START`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFrameReader(strings.NewReader(tt.input)).Next(); err == nil || err == io.EOF {
				t.Fatalf("expected decode error, got %v", err)
			}
		})
	}
}

func TestFramePayload(t *testing.T) {
	tests := []struct {
		arg  string
		want string
	}{
		{``, ""},
		{`null`, ""},
		{`"30"`, "30"},
		{`30.25`, "30.25"},
		{`"fast"`, "fast"},
		{`true`, "true"},
	}
	for _, tt := range tests {
		f := Frame{Opcode: OpSetCPS, Arg: json.RawMessage(tt.arg)}
		if got := f.Payload(); got != tt.want {
			t.Errorf("Payload(%s) = %q, want %q", tt.arg, got, tt.want)
		}
	}
}

func TestEncodeReplyValues(t *testing.T) {
	tests := []struct {
		name  string
		reply *Reply
		want  string
	}{
		{"status only", &Reply{Opcode: OpStart, Status: status.OK}, `{"opcode":3,"status":0}`},
		{"int value", &Reply{Opcode: OpGetUID, Status: status.OK, Value: IntValue(7)}, `{"opcode":9,"status":0,"value":7}`},
		{"bool value", &Reply{Opcode: OpDone, Status: status.OK, Value: BoolValue(true), Correlation: "c"}, `{"opcode":13,"status":0,"value":true,"reply_to":"c"}`},
		{"fault status", &Reply{Opcode: OpTerminate, Status: status.RegistrationLost}, `{"opcode":5,"status":33}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := EncodeReply(&buf, tt.reply); err != nil {
				t.Fatalf("EncodeReply: %v", err)
			}
			if got := strings.TrimSpace(buf.String()); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}

	var buf bytes.Buffer
	if err := EncodeReply(&buf, &Reply{Opcode: OpStart, Status: status.ExitStatus(250)}); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestReplyReaderDecodesValueKinds(t *testing.T) {
	input := `{"opcode":13,"status":0,"value":false}
{"opcode":12,"status":0,"value":42}
{"opcode":3,"status":19}
`
	rr := NewReplyReader(strings.NewReader(input))

	r1, err := rr.Next()
	if err != nil {
		t.Fatalf("Next 1: %v", err)
	}
	if b, ok := r1.Value.Bool(); !ok || b {
		t.Fatalf("expected bool false, got %v", r1.Value)
	}

	r2, err := rr.Next()
	if err != nil {
		t.Fatalf("Next 2: %v", err)
	}
	if i, ok := r2.Value.Int(); !ok || i != 42 {
		t.Fatalf("expected int 42, got %v", r2.Value)
	}
	if _, ok := r2.Value.Bool(); ok {
		t.Fatal("int value must not report as bool")
	}

	r3, err := rr.Next()
	if err != nil {
		t.Fatalf("Next 3: %v", err)
	}
	if r3.Value != nil || r3.Status != status.EXCEnableFailed {
		t.Fatalf("unexpected reply 3: %+v", r3)
	}
}

func TestOpcodeSet(t *testing.T) {
	ops := Opcodes()
	if len(ops) != 14 {
		t.Fatalf("expected 14 opcodes, got %d", len(ops))
	}
	for _, op := range ops {
		if !op.Known() {
			t.Errorf("opcode %d has no name", op)
		}
		parsed, err := ParseOpcode(op.String())
		if err != nil || parsed != op {
			t.Errorf("ParseOpcode(%s) = %v, %v", op, parsed, err)
		}
	}
	if !OpCreate.Reserved() || !OpGetChUID.Reserved() || OpStart.Reserved() {
		t.Error("reserved set must be exactly CREATE and GET_CH_UID")
	}
	if Opcode(99).Known() {
		t.Error("opcode 99 must be unknown")
	}
	if op, err := ParseOpcode("10"); err != nil || op != OpSetCPS {
		t.Errorf("ParseOpcode(10) = %v, %v", op, err)
	}
	if _, err := ParseOpcode("LAUNCH"); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr bool
		wantOp  Opcode
	}{
		{name: "valid", line: `{"opcode":10,"arg":"2.5","reply_to":"abc"}`, wantOp: OpSetCPS},
		{name: "trailing newline", line: "{\"opcode\":9}\n", wantOp: OpGetUID},
		{name: "syntax error", line: `{"opcode":`, wantErr: true},
		{name: "unknown field", line: `{"opcode":9,"extra":1}`, wantErr: true},
		{name: "missing opcode", line: `{"arg":"x"}`, wantErr: true},
		{name: "two frames", line: `{"opcode":9} {"opcode":9}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFrame([]byte(tt.line))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.line)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if f.Opcode != tt.wantOp {
				t.Errorf("opcode = %v, want %v", f.Opcode, tt.wantOp)
			}
		})
	}
}
