// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/watchly/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return one shared instance")
	}
}

func TestValidateStruct_IssueTokenRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       models.IssueTokenRequest
		wantField string
		wantTag   string
	}{
		{name: "auth key only", req: models.IssueTokenRequest{AuthKey: "abc"}},
		{name: "username and password", req: models.IssueTokenRequest{Username: "a@b.c", Password: "pw"}},
		{name: "all three", req: models.IssueTokenRequest{Username: "a@b.c", Password: "pw", AuthKey: "abc", IncludeWatched: true}},
		{name: "empty", req: models.IssueTokenRequest{}, wantField: "authKey", wantTag: "required_without"},
		{name: "username without password", req: models.IssueTokenRequest{Username: "a@b.c"}, wantField: "password", wantTag: "required_with"},
		{name: "password without username", req: models.IssueTokenRequest{Password: "pw", AuthKey: "abc"}, wantField: "username", wantTag: "required_with"},
		{name: "oversized auth key", req: models.IssueTokenRequest{AuthKey: strings.Repeat("k", 513)}, wantField: "authKey", wantTag: "max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("ValidateStruct() = nil, want %s on %s", tt.wantTag, tt.wantField)
			}
			found := false
			for _, fe := range verr.Errors() {
				if fe.Field() == tt.wantField && fe.Tag() == tt.wantTag {
					found = true
				}
			}
			if !found {
				t.Errorf("errors = %v, want %s on %s", verr, tt.wantTag, tt.wantField)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	verr := ValidateStruct(&models.IssueTokenRequest{Username: "a@b.c"})
	if verr == nil {
		t.Fatal("expected a validation error")
	}
	if got, want := verr.Error(), "password is required when username is provided"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	verr = ValidateStruct(&models.IssueTokenRequest{})
	if got, want := verr.Error(), "authKey is required when username is not provided"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	verr = ValidateStruct(&models.IssueTokenRequest{AuthKey: strings.Repeat("k", 513)})
	if got, want := verr.Error(), "authKey must be at most 512 characters"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestToAPIError_SingleErrorHidesSecrets(t *testing.T) {
	verr := ValidateStruct(&models.IssueTokenRequest{AuthKey: strings.Repeat("s", 600)})
	apiErr := verr.ToAPIError()

	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details["field"] != "authKey" {
		t.Errorf("Details[field] = %v, want authKey", apiErr.Details["field"])
	}
	if _, ok := apiErr.Details["value"]; ok {
		t.Error("auth key value echoed in error details")
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	type form struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"required,email"`
	}
	apiErr := ValidateStruct(&form{}).ToAPIError()

	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("Details[fields] = %v, want 2 entries", apiErr.Details["fields"])
	}
	if fields[0]["field"] != "name" || fields[1]["field"] != "email" {
		t.Errorf("fields = %v", fields)
	}
	if apiErr.Message != "name is required; email is required" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestIsIMDbID(t *testing.T) {
	tests := map[string]bool{
		"tt0111161":      true,
		"tt1":            true,
		"watchly.rec":    false,
		"tt":             false,
		"ttabc":          false,
		"tt0111161.json": false,
		"nm0000001":      false,
		"":               false,
	}
	for id, want := range tests {
		if got := IsIMDbID(id); got != want {
			t.Errorf("IsIMDbID(%q) = %v, want %v", id, got, want)
		}
	}
}
