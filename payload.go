// Package oceanpost defines the core value types for the engagement-sync
// subsystem: content hashes and the typed payloads stored as immutable
// snapshots in the content-addressed store.
package oceanpost

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates the payload union stored in a snapshot blob.
type Kind string

const (
	KindBottle  Kind = "bottle"
	KindComment Kind = "comment"
)

// ErrParse is returned when a fetched blob fails structural validation.
var ErrParse = errors.New("payload parse failed")

// Payload is the tagged union of snapshot payloads. Concrete types are
// *BottlePayload and *CommentPayload.
type Payload interface {
	// PayloadKind returns the discriminator for the concrete payload type.
	PayloadKind() Kind

	// Validate checks the structural invariants of the payload.
	Validate() error
}

// BottlePayload is the snapshot of a bottle: the user content plus the
// engagement counts as of the snapshot's creation.
type BottlePayload struct {
	Kind          Kind   `json:"kind"`
	Text          string `json:"text"`
	AuthorID      string `json:"authorId"`
	CreatedAtUnix int64  `json:"createdAtUnix"`
	CreatedAtISO  string `json:"createdAtISO"`
	LikeCount     int64  `json:"likeCount"`
	CommentCount  int64  `json:"commentCount"`
}

// PayloadKind implements Payload.
func (p *BottlePayload) PayloadKind() Kind { return KindBottle }

// Validate implements Payload.
func (p *BottlePayload) Validate() error {
	if p.Kind != KindBottle {
		return fmt.Errorf("%w: bottle payload has kind %q", ErrParse, p.Kind)
	}
	if p.Text == "" {
		return fmt.Errorf("%w: bottle missing text", ErrParse)
	}
	if p.AuthorID == "" {
		return fmt.Errorf("%w: bottle missing authorId", ErrParse)
	}
	if p.CreatedAtUnix <= 0 {
		return fmt.Errorf("%w: bottle has invalid createdAtUnix %d", ErrParse, p.CreatedAtUnix)
	}
	if p.CreatedAtISO == "" {
		return fmt.Errorf("%w: bottle missing createdAtISO", ErrParse)
	}
	if p.LikeCount < 0 {
		return fmt.Errorf("%w: bottle has negative likeCount %d", ErrParse, p.LikeCount)
	}
	if p.CommentCount < 0 {
		return fmt.Errorf("%w: bottle has negative commentCount %d", ErrParse, p.CommentCount)
	}
	return nil
}

// CommentPayload is the snapshot of a single comment attached to a bottle.
type CommentPayload struct {
	Kind           Kind   `json:"kind"`
	Text           string `json:"text"`
	AuthorID       string `json:"authorId"`
	CreatedAtUnix  int64  `json:"createdAtUnix"`
	CreatedAtISO   string `json:"createdAtISO"`
	ParentEntityID uint64 `json:"parentEntityId"`
}

// PayloadKind implements Payload.
func (p *CommentPayload) PayloadKind() Kind { return KindComment }

// Validate implements Payload.
func (p *CommentPayload) Validate() error {
	if p.Kind != KindComment {
		return fmt.Errorf("%w: comment payload has kind %q", ErrParse, p.Kind)
	}
	if p.Text == "" {
		return fmt.Errorf("%w: comment missing text", ErrParse)
	}
	if p.AuthorID == "" {
		return fmt.Errorf("%w: comment missing authorId", ErrParse)
	}
	if p.CreatedAtUnix <= 0 {
		return fmt.Errorf("%w: comment has invalid createdAtUnix %d", ErrParse, p.CreatedAtUnix)
	}
	if p.CreatedAtISO == "" {
		return fmt.Errorf("%w: comment missing createdAtISO", ErrParse)
	}
	if p.ParentEntityID == 0 {
		return fmt.Errorf("%w: comment missing parentEntityId", ErrParse)
	}
	return nil
}

// ParsePayload decodes and validates a snapshot blob. The kind discriminator
// is sniffed first, then the concrete type is decoded and its invariants
// checked. A payload that fails any check is never returned partially parsed.
func ParsePayload(data []byte) (Payload, error) {
	var probe struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrParse, err)
	}

	var payload Payload
	switch probe.Kind {
	case KindBottle:
		payload = &BottlePayload{}
	case KindComment:
		payload = &CommentPayload{}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrParse, probe.Kind)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(payload); err != nil {
		return nil, fmt.Errorf("%w: decoding %s payload: %v", ErrParse, probe.Kind, err)
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

// EncodePayload serialises a payload to its canonical JSON form.
// Invalid payloads are refused so that a malformed snapshot can never
// reach the content store.
func EncodePayload(p Payload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", p.PayloadKind(), err)
	}
	return data, nil
}
