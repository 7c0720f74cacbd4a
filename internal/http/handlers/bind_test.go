package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/geocoder89/sheetlens/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindRouter() *gin.Engine {
	r := gin.New()

	r.POST("/users", func(ctx *gin.Context) {
		var req handlers.RegisterRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})

	return r
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	w := postJSON(t, bindRouter(), "/users", `{"email":"not-an-email"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}

	var resp bindErrorResponse

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	wantRules := map[string]string{
		"username": "required",
		"email":    "email",
		"password": "required",
	}

	got := make(map[string]string, len(resp.Error.Details.Fields))

	for _, fe := range resp.Error.Details.Fields {
		got[fe.Field] = fe.Rule
	}

	for field, rule := range wantRules {
		if got[field] != rule {
			t.Fatalf("field %q: got rule %q, want %q (fields=%v)", field, got[field], rule, resp.Error.Details.Fields)
		}
	}
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	w := postJSON(t, bindRouter(), "/users", `{"username":123,"email":"jess@example.com","password":"password123"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}

	var resp bindErrorResponse

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Fatalf("got json detail %q, want invalid_json_type", resp.Error.Details.JSON)
	}

	if resp.Error.Details.Field != "username" {
		t.Fatalf("got field %q, want username", resp.Error.Details.Field)
	}
}

func TestBindJSON_SyntaxError(t *testing.T) {
	w := postJSON(t, bindRouter(), "/users", `{"username": oops}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}

	var resp bindErrorResponse

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if resp.Error.Details.JSON != "invalid_json_syntax" {
		t.Fatalf("got json detail %q, want invalid_json_syntax", resp.Error.Details.JSON)
	}
}
