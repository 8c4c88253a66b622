package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// EncodeFrame serializes a Frame as one JSON line and writes it to w.
func EncodeFrame(w io.Writer, f *Frame) error {
	if f.Opcode == 0 {
		return fmt.Errorf("frame missing required field: opcode")
	}
	if err := json.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return nil
}

// EncodeReply serializes a Reply as one JSON line and writes it to w.
func EncodeReply(w io.Writer, r *Reply) error {
	if !r.Status.Valid() {
		return fmt.Errorf("invalid reply status: %d", r.Status)
	}
	if err := json.NewEncoder(w).Encode(r); err != nil {
		return fmt.Errorf("failed to encode reply: %w", err)
	}
	return nil
}

// FrameReader decodes a stream of newline-delimited frames.
type FrameReader struct {
	dec *json.Decoder
}

// NewFrameReader returns a strict frame decoder reading from r.
func NewFrameReader(r io.Reader) *FrameReader {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields() // Strict parsing
	return &FrameReader{dec: dec}
}

// Next reads the next frame. io.EOF is returned unwrapped when the stream ends.
func (fr *FrameReader) Next() (*Frame, error) {
	var f Frame
	if err := fr.dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if f.Opcode == 0 {
		return nil, fmt.Errorf("frame missing required field: opcode")
	}
	return &f, nil
}

// DecodeFrame strictly decodes a single frame, e.g. one line read off a
// socket. Unlike FrameReader, a malformed line does not poison later ones.
func DecodeFrame(line []byte) (*Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	var f Frame
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after frame")
	}
	if f.Opcode == 0 {
		return nil, fmt.Errorf("frame missing required field: opcode")
	}
	return &f, nil
}

// ReplyReader decodes a stream of newline-delimited replies.
type ReplyReader struct {
	dec *json.Decoder
}

// NewReplyReader returns a reply decoder reading from r.
func NewReplyReader(r io.Reader) *ReplyReader {
	return &ReplyReader{dec: json.NewDecoder(r)}
}

// Next reads the next reply. io.EOF is returned unwrapped when the stream ends.
func (rr *ReplyReader) Next() (*Reply, error) {
	var r Reply
	if err := rr.dec.Decode(&r); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	if r.Opcode == 0 {
		return nil, fmt.Errorf("reply missing required field: opcode")
	}
	return &r, nil
}
