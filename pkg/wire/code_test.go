package wire

import "testing"

func TestCodeClasses(t *testing.T) {
	tests := []struct {
		code          Code
		success       bool
		clientFailure bool
		serverFailure bool
		str           string
	}{
		{CodeContent, true, false, false, "2.05 Content"},
		{CodeChanged, true, false, false, "2.04 Changed"},
		{CodeBadRequest, false, true, false, "4.00 Bad Request"},
		{CodeNotFound, false, true, false, "4.04 Not Found"},
		{CodeInternalServerError, false, false, true, "5.00 Internal Server Error"},
		{CodeServiceUnavailable, false, false, true, "5.03 Service Unavailable"},
		{NewCode(4, 30), false, true, false, "4.30"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if got := tt.code.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.success)
			}
			if got := tt.code.IsClientError(); got != tt.clientFailure {
				t.Errorf("IsClientError() = %v, want %v", got, tt.clientFailure)
			}
			if got := tt.code.IsServerError(); got != tt.serverFailure {
				t.Errorf("IsServerError() = %v, want %v", got, tt.serverFailure)
			}
			if got := tt.code.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
		})
	}
}

func TestNewCode(t *testing.T) {
	c := NewCode(4, 4)
	if c != CodeNotFound {
		t.Errorf("NewCode(4, 4) = %v, want %v", c, CodeNotFound)
	}
	if c.Class() != 4 || c.Detail() != 4 {
		t.Errorf("class/detail = %d/%d, want 4/4", c.Class(), c.Detail())
	}
}

func TestMethod(t *testing.T) {
	if MethodFetch.Verb() != "GET" || MethodReplace.Verb() != "PUT" || MethodCreate.Verb() != "POST" {
		t.Error("unexpected verbs")
	}
	if Method(0).IsValid() || Method(9).IsValid() {
		t.Error("out of range method reported valid")
	}
	if MethodReplace.String() != "replace" {
		t.Errorf("String() = %q", MethodReplace.String())
	}
}
