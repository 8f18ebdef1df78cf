package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alfredjeanlab/guardian/internal/model"
)

// Contract names a sidecar-data payload version. The subscriber decodes with
// exactly one contract; payloads of the other shape are rejected as malformed.
type Contract string

const (
	// ContractV0 is the legacy shape: the payload is the bare URL, either as
	// raw text or as a JSON string.
	ContractV0 Contract = "v0"
	// ContractV1 is a JSON object: {"url": ..., "analysis": ..., "title": ...}.
	// analysis and title are optional.
	ContractV1 Contract = "v1"

	DefaultContract = ContractV1
)

// String returns the string representation of the contract.
func (c Contract) String() string {
	return string(c)
}

// IsValid checks whether the contract is a known version.
func (c Contract) IsValid() bool {
	switch c {
	case ContractV0, ContractV1:
		return true
	}
	return false
}

// ParseContract converts a configuration value to a Contract.
// An empty string selects DefaultContract.
func ParseContract(s string) (Contract, error) {
	if s == "" {
		return DefaultContract, nil
	}
	c := Contract(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown payload contract %q (must be v0 or v1)", s)
	}
	return c, nil
}

// Payload is the v1 wire shape.
type Payload struct {
	URL      string  `json:"url"`
	Analysis *string `json:"analysis,omitempty"`
	Title    string  `json:"title,omitempty"`
}

// Decode converts a raw payload into a ClassificationEvent according to c.
// Shape errors wrap model.ErrMalformedEvent. Decode does not check that the
// URL is present; the store rejects such events on ingestion.
func Decode(c Contract, raw []byte) (model.ClassificationEvent, error) {
	switch c {
	case ContractV0:
		return decodeV0(raw)
	case ContractV1:
		return decodeV1(raw)
	default:
		return model.ClassificationEvent{}, fmt.Errorf("decode: unknown contract %q", c)
	}
}

func decodeV0(raw []byte) (model.ClassificationEvent, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return model.ClassificationEvent{}, fmt.Errorf("%w: v0 payload is empty", model.ErrMalformedEvent)
	}

	var url string
	switch trimmed[0] {
	case '"':
		if err := json.Unmarshal(trimmed, &url); err != nil {
			return model.ClassificationEvent{}, fmt.Errorf("%w: v0 payload: %v", model.ErrMalformedEvent, err)
		}
	case '{', '[':
		return model.ClassificationEvent{}, fmt.Errorf("%w: v0 payload must be a bare URL, got JSON %c", model.ErrMalformedEvent, trimmed[0])
	default:
		if !utf8.Valid(trimmed) {
			return model.ClassificationEvent{}, fmt.Errorf("%w: v0 payload is not valid UTF-8", model.ErrMalformedEvent)
		}
		url = string(trimmed)
	}
	return model.ClassificationEvent{URL: strings.TrimSpace(url)}, nil
}

func decodeV1(raw []byte) (model.ClassificationEvent, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return model.ClassificationEvent{}, fmt.Errorf("%w: v1 payload must be a JSON object", model.ErrMalformedEvent)
	}

	var p Payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return model.ClassificationEvent{}, fmt.Errorf("%w: v1 payload: %v", model.ErrMalformedEvent, err)
	}

	ev := model.ClassificationEvent{
		URL:   strings.TrimSpace(p.URL),
		Title: p.Title,
	}
	if p.Analysis != nil {
		ev = ev.WithAnalysis(*p.Analysis)
	}
	return ev, nil
}

// Encode renders ev in the wire shape of contract c. Under v0 only the URL
// survives.
func Encode(c Contract, ev model.ClassificationEvent) ([]byte, error) {
	switch c {
	case ContractV0:
		return json.Marshal(ev.URL)
	case ContractV1:
		p := Payload{URL: ev.URL, Title: ev.Title}
		if ev.HasAnalysis {
			analysis := ev.Analysis
			p.Analysis = &analysis
		}
		return json.Marshal(p)
	default:
		return nil, fmt.Errorf("encode: unknown contract %q", c)
	}
}
