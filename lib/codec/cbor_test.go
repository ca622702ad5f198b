// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bureau-foundation/ledger/lib/codec"
)

type transferRequest struct {
	Action string `cbor:"action"`
	Source string `cbor:"source"`
	Amount string `cbor:"amount"`
}

func TestMarshalIsDeterministic(t *testing.T) {
	first, err := codec.Marshal(map[string]any{"source": "100", "amount": "500", "action": "transfer"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 20 {
		again, err := codec.Marshal(map[string]any{"amount": "500", "action": "transfer", "source": "100"})
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("map encoding is not deterministic:\n%x\n%x", first, again)
		}
	}
}

func TestMapEncodesLikeStruct(t *testing.T) {
	fromMap, err := codec.Marshal(map[string]any{"action": "transfer", "source": "100", "amount": "500"})
	if err != nil {
		t.Fatalf("Marshal map: %v", err)
	}

	var decoded transferRequest
	if err := codec.Unmarshal(fromMap, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := transferRequest{Action: "transfer", Source: "100", Amount: "500"}
	if decoded != want {
		t.Errorf("decoded %+v, want %+v", decoded, want)
	}
}

func TestDecodeIntoAnyUsesStringKeys(t *testing.T) {
	data, err := codec.Marshal(map[string]any{"ok": true, "data": map[string]any{"balance": 7000}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	top, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if _, ok := top["data"].(map[string]any); !ok {
		t.Errorf("nested map decoded as %T, want map[string]any", top["data"])
	}
}

func TestStreamRoundTrip(t *testing.T) {
	var buffer bytes.Buffer
	request := transferRequest{Action: "transfer", Source: "190", Amount: "1500"}
	if err := codec.NewEncoder(&buffer).Encode(request); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var decoded transferRequest
	if err := codec.NewDecoder(&buffer).Decode(&decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != request {
		t.Errorf("decoded %+v, want %+v", decoded, request)
	}
}

func TestDiagnose(t *testing.T) {
	data, err := codec.Marshal(map[string]any{"sub": "alice@example.com"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	text, err := codec.Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(text, `"alice@example.com"`) {
		t.Errorf("Diagnose = %s, want it to contain the subject", text)
	}
}
