package response

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestSuccess(t *testing.T) {
	data := map[string]string{"name": "test"}
	resp := Success(data)

	if !resp.Success {
		t.Error("Expected success to be true")
	}
	if resp.Data == nil {
		t.Error("Expected data to be set")
	}
	if resp.Error != nil {
		t.Error("Expected error to be nil")
	}
}

func TestSuccess_JSONFormat(t *testing.T) {
	data := map[string]string{"id": "123"}
	resp := Success(data)

	jsonBytes, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal response: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if parsed["success"] != true {
		t.Errorf("Expected success=true, got %v", parsed["success"])
	}
	if _, ok := parsed["error"]; ok {
		t.Error("Expected error field to be omitted")
	}
}

func TestError(t *testing.T) {
	resp := Error(ErrCodeNotFound, "Booking not found")

	if resp.Success {
		t.Error("Expected success to be false")
	}
	if resp.Data != nil {
		t.Error("Expected data to be nil")
	}
	if resp.Error == nil {
		t.Fatal("Expected error to be set")
	}
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("Expected code %s, got %s", ErrCodeNotFound, resp.Error.Code)
	}
	if resp.Error.Message != "Booking not found" {
		t.Errorf("Expected message 'Booking not found', got '%s'", resp.Error.Message)
	}
}

func TestError_JSONFormat(t *testing.T) {
	resp := Error(ErrCodeBadRequest, "Invalid input")

	jsonBytes, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal response: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if parsed["success"] != false {
		t.Errorf("Expected success=false, got %v", parsed["success"])
	}

	errorObj, ok := parsed["error"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected error object")
	}
	if errorObj["code"] != ErrCodeBadRequest {
		t.Errorf("Expected code %s, got %v", ErrCodeBadRequest, errorObj["code"])
	}
	if errorObj["message"] != "Invalid input" {
		t.Errorf("Expected message 'Invalid input', got %v", errorObj["message"])
	}
}

func TestErrorWithDetails(t *testing.T) {
	details := map[string]string{
		"start_time":  "must be in the future",
		"resource_id": "required",
	}
	resp := ErrorWithDetails(ErrCodeValidationFailed, "Validation failed", details)

	if resp.Success {
		t.Error("Expected success to be false")
	}
	if resp.Error == nil {
		t.Fatal("Expected error to be set")
	}
	if resp.Error.Details == nil {
		t.Fatal("Expected details to be set")
	}
	if resp.Error.Details["start_time"] != "must be in the future" {
		t.Errorf("Expected start_time error, got %v", resp.Error.Details["start_time"])
	}
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int
	}{
		{"bad request", ErrCodeBadRequest, http.StatusBadRequest},
		{"unauthorized", ErrCodeUnauthorized, http.StatusUnauthorized},
		{"not found", ErrCodeNotFound, http.StatusNotFound},
		{"slot conflict", ErrCodeSlotConflict, http.StatusConflict},
		{"invalid state", ErrCodeInvalidState, http.StatusConflict},
		{"payment failed", ErrCodePaymentFailed, http.StatusPaymentRequired},
		{"processor unavailable", ErrCodeProcessorUnavailable, http.StatusBadGateway},
		{"validation failed", ErrCodeValidationFailed, http.StatusBadRequest},
		{"unknown code", "SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetHTTPStatus(tt.code); got != tt.want {
				t.Errorf("GetHTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestCommonErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		resp        *Response
		wantCode    string
		wantMessage string
	}{
		{"not found default", NotFound(""), ErrCodeNotFound, "Resource not found"},
		{"not found custom", NotFound("tenant not found"), ErrCodeNotFound, "tenant not found"},
		{"slot conflict default", SlotConflict(""), ErrCodeSlotConflict, "Requested time slot is not available"},
		{"invalid state default", InvalidState(""), ErrCodeInvalidState, "Operation not allowed in the current state"},
		{"unauthorized default", Unauthorized(""), ErrCodeUnauthorized, "Authentication required"},
		{"internal default", InternalError(""), ErrCodeInternalError, "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.resp.Success {
				t.Error("Expected success to be false")
			}
			if tt.resp.Error.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, tt.resp.Error.Code)
			}
			if tt.resp.Error.Message != tt.wantMessage {
				t.Errorf("Expected message %q, got %q", tt.wantMessage, tt.resp.Error.Message)
			}
		})
	}
}
