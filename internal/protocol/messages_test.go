package protocol

import (
	"testing"

	"syncengine/internal/causality"
)

func TestClockExchangeMessageRoundTrip(t *testing.T) {
	vc := causality.NewVectorClock()
	vc.Observe(causality.DeviceID("dev-a"), 5)
	vc.Observe(causality.DeviceID("dev-b"), 2)

	msg := NewClockExchangeMessage("dev-a", vc)
	payload, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeClockExchangeMessage(payload)
	if err != nil {
		t.Fatalf("DecodeClockExchangeMessage failed: %v", err)
	}

	if decoded.DeviceID != "dev-a" {
		t.Errorf("DeviceID mismatch: got %s", decoded.DeviceID)
	}
	got := decoded.VectorClock()
	if got.Get("dev-a") != 5 || got.Get("dev-b") != 2 {
		t.Errorf("clock mismatch: got %+v", got.Clocks)
	}
}

func TestAckMessageRoundTrip(t *testing.T) {
	msg := AckMessage{Accepted: 3}
	payload, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeAckMessage(payload)
	if err != nil {
		t.Fatalf("DecodeAckMessage failed: %v", err)
	}
	if decoded.Accepted != 3 {
		t.Errorf("Accepted mismatch: got %d", decoded.Accepted)
	}
	if decoded.Error != "" {
		t.Errorf("expected empty Error, got %q", decoded.Error)
	}
}

func TestErrorMessageRoundTrip(t *testing.T) {
	msg := ErrorMessage{Code: "SCHEMA_INCOMPATIBLE", Message: "remote schema_version ahead"}
	payload, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeErrorMessage(payload)
	if err != nil {
		t.Fatalf("DecodeErrorMessage failed: %v", err)
	}
	if decoded.Code != msg.Code || decoded.Message != msg.Message {
		t.Errorf("mismatch: got %+v", decoded)
	}
}

func TestOpsMessageEmptyRoundTrip(t *testing.T) {
	msg := OpsMessage{}
	payload, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeOpsMessage(payload)
	if err != nil {
		t.Fatalf("DecodeOpsMessage failed: %v", err)
	}
	if len(decoded.Operations) != 0 {
		t.Errorf("expected no operations, got %d", len(decoded.Operations))
	}
}
