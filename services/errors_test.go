package services

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"gorm.io/gorm"
)

func TestAppErrorNilReceiver(t *testing.T) {
	var appErr *AppError

	if got := appErr.Error(); got != "" {
		t.Fatalf("expected empty string for nil receiver, got %q", got)
	}
	if appErr.Unwrap() != nil {
		t.Fatalf("expected nil unwrap for nil receiver")
	}
}

func TestAppErrorErrorWithWrappedError(t *testing.T) {
	root := errors.New("db down")
	appErr := newAppError(KindInternal, "query failed", root)

	if got := appErr.Error(); got != "query failed: db down" {
		t.Fatalf("unexpected error text: %q", got)
	}
	if !errors.Is(appErr, root) {
		t.Fatalf("expected wrapped error to be discoverable via errors.Is")
	}
}

func TestNewAppErrorWithData(t *testing.T) {
	payload := map[string]string{"field": "name"}
	err := newAppErrorWithData(KindValidation, "bad request", payload, nil)

	if err.HTTPCode != http.StatusBadRequest {
		t.Fatalf("expected HTTPCode 400, got %d", err.HTTPCode)
	}
	if err.Message != "bad request" {
		t.Fatalf("unexpected message: %q", err.Message)
	}
	if !reflect.DeepEqual(err.Data, payload) {
		t.Fatalf("expected data payload to be preserved")
	}
}

func TestKindHTTPMapping(t *testing.T) {
	cases := map[ErrorKind]int{
		KindNotFound:            404,
		KindExpired:             410,
		KindAuthRequired:        401,
		KindAuthInvalid:         401,
		KindValidation:          400,
		KindConsistency:         500,
		KindPartialBatchFailure: 207,
		KindConfiguration:       500,
		KindRateLimited:         429,
		KindInternal:            500,
	}
	for kind, want := range cases {
		if got := newAppError(kind, "x", nil).HTTPCode; got != want {
			t.Fatalf("kind %s: expected %d, got %d", kind, want, got)
		}
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(nil) != "" {
		t.Fatalf("expected empty kind for nil")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatalf("expected plain errors to be internal")
	}
	wrapped := fmt.Errorf("outer: %w", newAppError(KindExpired, "gone", nil))
	if !IsKind(wrapped, KindExpired) {
		t.Fatalf("expected wrapped expired error to be detected")
	}
}

func TestLookupError(t *testing.T) {
	if got := lookupError(gorm.ErrRecordNotFound, "missing", "failed"); got.Kind != KindNotFound {
		t.Fatalf("expected not_found, got %s", got.Kind)
	}
	if got := lookupError(errors.New("boom"), "missing", "failed"); got.Kind != KindInternal || got.Message != "failed" {
		t.Fatalf("expected internal failure, got %+v", got)
	}
}

func TestConsistencyErrorCarriesIntent(t *testing.T) {
	err := newConsistencyError("intent-1", "file-1", errors.New("db down"))
	data, ok := err.Data.(ConsistencyData)
	if !ok || data.IntentID != "intent-1" || data.FileID != "file-1" {
		t.Fatalf("unexpected consistency data: %+v", err.Data)
	}
	if err.HTTPCode != 500 {
		t.Fatalf("expected 500, got %d", err.HTTPCode)
	}
}
