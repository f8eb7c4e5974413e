package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		publicMsg string
		expose    bool
		retryable bool
	}{
		{code: CodeValidation, publicMsg: "validation failed", expose: true},
		{code: CodeUnauthorized, publicMsg: "Unauthorized", expose: true},
		{code: CodeForbidden, publicMsg: "access denied", expose: true},
		{code: CodeInternal, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, publicMsg: "dependency unavailable", retryable: true},
		{code: CodeContentPolicy, publicMsg: "video blocked by safety filters", expose: true},
		{code: CodeTimeout, publicMsg: "video generation timed out", expose: true, retryable: true},
		{code: CodeLinkage, publicMsg: "failed to link video to dream", expose: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.ExposeMessage != tt.expose {
			t.Fatalf("code %s expected expose %v got %v", tt.code, tt.expose, meta.ExposeMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.PublicMessage != "internal server error" {
		t.Fatalf("expected internal metadata, got %+v", meta)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "foo"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeStorage, cause, "upload video")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeStorage {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if got := wrapped.Error(); got != "STORAGE_ERROR: upload video: boom" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestAsAndCodeOfFollowWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeTimeout, "Video generation timed out after 5 minutes"))
	if got := As(err); got == nil || got.Code() != CodeTimeout {
		t.Fatalf("As failed to return typed error")
	}
	if !IsCode(err, CodeTimeout) {
		t.Fatal("expected IsCode to match timeout")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatal("plain errors should map to internal")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatal("nil error should not match any code")
	}
}
