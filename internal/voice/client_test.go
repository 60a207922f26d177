package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("api-key", "")
	if client.BaseURL != "https://api.vapi.ai" {
		t.Errorf("BaseURL = %q, want default", client.BaseURL)
	}
	if client.HTTPClient == nil {
		t.Fatal("HTTPClient should be set")
	}
	if client.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("HTTPClient.Timeout = %v, want %v", client.HTTPClient.Timeout, defaultTimeout)
	}
	if c := NewClient("k", "https://voice.example/"); c.BaseURL != "https://voice.example" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", c.BaseURL)
	}
}

func TestCreateAssistant_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/assistant" {
			t.Errorf("request = %s %s, want POST /assistant", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Decode body: %v", err)
		}
		if body["name"] != "Phone Verification" {
			t.Errorf("name = %v", body["name"])
		}
		if body["firstMessageMode"] != "assistant-speaks-first" {
			t.Errorf("firstMessageMode = %v", body["firstMessageMode"])
		}
		model, _ := body["model"].(map[string]interface{})
		if model["provider"] != "openai" {
			t.Errorf("model.provider = %v", model["provider"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"asst_1","name":"Phone Verification"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	ref, err := client.CreateAssistant(context.Background(), &Assistant{
		Name:             "Phone Verification",
		Model:            Model{Provider: "openai", Model: "gpt-4"},
		FirstMessageMode: "assistant-speaks-first",
	})
	if err != nil {
		t.Fatalf("CreateAssistant: %v", err)
	}
	if ref.ID != "asst_1" {
		t.Errorf("ID = %q, want asst_1", ref.ID)
	}
}

func TestCreateCall_RequestFormat(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call" {
			t.Errorf("path = %q, want /call", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"call_1","status":"queued"}`))
	}))
	defer server.Close()

	client := NewClient("k", server.URL)
	call, err := client.CreateCall(context.Background(), &CallRequest{
		AssistantID:   "asst_1",
		PhoneNumberID: "pn_1",
		Customer:      Customer{Number: "+15551234567"},
	})
	if err != nil {
		t.Fatalf("CreateCall: %v", err)
	}
	if call.ID != "call_1" || call.Status != StatusQueued {
		t.Errorf("call = %+v", call)
	}
	if received["assistantId"] != "asst_1" || received["phoneNumberId"] != "pn_1" {
		t.Errorf("body = %v", received)
	}
	customer, _ := received["customer"].(map[string]interface{})
	if customer["number"] != "+15551234567" {
		t.Errorf("customer.number = %v", customer["number"])
	}
}

func TestGetCall_DecodesTranscriptAndSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/call/call_9" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{
			"id": "call_9",
			"status": "ended",
			"endedReason": "assistant-said-end-call-phrase",
			"messages": [
				{"role": "system", "content": "prompt"},
				{"role": "bot", "message": "Your code is 1234"},
				{"role": "user", "message": "1234"}
			],
			"analysis": {"summary": "{\"verified\": true, \"reason\": \"match\"}"}
		}`))
	}))
	defer server.Close()

	call, err := NewClient("k", server.URL).GetCall(context.Background(), "call_9")
	if err != nil {
		t.Fatalf("GetCall: %v", err)
	}
	if !call.Ended() {
		t.Error("call should be ended")
	}
	if len(call.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(call.Messages))
	}
	if call.Messages[0].Text() != "prompt" || call.Messages[2].Text() != "1234" {
		t.Errorf("message texts = %q, %q", call.Messages[0].Text(), call.Messages[2].Text())
	}
	if !strings.HasPrefix(string(call.Summary()), `"`) {
		t.Errorf("summary should stay raw JSON string, got %s", call.Summary())
	}
}

func TestClient_Non2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"phoneNumberId must be a UUID"}`))
	}))
	defer server.Close()

	_, err := NewClient("k", server.URL).CreateCall(context.Background(), &CallRequest{AssistantID: "a"})
	if err == nil {
		t.Fatal("expected error for non-2xx status")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %T, want *StatusError", err)
	}
	if se.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", se.Status)
	}
	if !strings.Contains(err.Error(), "status=400") || !strings.Contains(err.Error(), "phoneNumberId") {
		t.Errorf("error message = %q, want status and body", err.Error())
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient("", "").GetCall(context.Background(), "call_1")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestClient_EmptyIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()
	client := NewClient("k", server.URL)

	if _, err := client.CreateAssistant(context.Background(), &Assistant{}); err == nil {
		t.Error("CreateAssistant without id should fail")
	}
	if _, err := client.CreateCall(context.Background(), &CallRequest{}); err == nil {
		t.Error("CreateCall without id should fail")
	}
	if _, err := client.GetCall(context.Background(), ""); err == nil {
		t.Error("GetCall with empty id should fail")
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewClient("k", server.URL).GetCall(ctx, "call_1"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
