package courier

import "testing"

func TestStatusPredicates(t *testing.T) {
	cases := []struct {
		status        int
		success       bool
		redirect      bool
		clientError   bool
		serverError   bool
		unexceptional bool
	}{
		{199, false, false, false, false, false},
		{200, true, false, false, false, true},
		{204, true, false, false, false, true},
		{299, true, false, false, false, true},
		{300, false, true, false, false, true},
		{304, false, true, false, false, true},
		{399, false, true, false, false, true},
		{400, false, false, true, false, false},
		{404, false, false, true, false, false},
		{409, false, false, true, false, false},
		{499, false, false, true, false, false},
		{500, false, false, false, true, false},
		{503, false, false, false, true, false},
		{599, false, false, false, true, false},
		{600, false, false, false, false, false},
	}
	for _, tc := range cases {
		if got := Success(tc.status); got != tc.success {
			t.Errorf("Success(%d) = %v, want %v", tc.status, got, tc.success)
		}
		if got := Redirect(tc.status); got != tc.redirect {
			t.Errorf("Redirect(%d) = %v, want %v", tc.status, got, tc.redirect)
		}
		if got := ClientError(tc.status); got != tc.clientError {
			t.Errorf("ClientError(%d) = %v, want %v", tc.status, got, tc.clientError)
		}
		if got := ServerError(tc.status); got != tc.serverError {
			t.Errorf("ServerError(%d) = %v, want %v", tc.status, got, tc.serverError)
		}
		if got := Unexceptional(tc.status); got != tc.unexceptional {
			t.Errorf("Unexceptional(%d) = %v, want %v", tc.status, got, tc.unexceptional)
		}
	}
}

func TestConflictIsExactly409(t *testing.T) {
	for status := 100; status < 600; status++ {
		want := status == 409
		if got := Conflict(status); got != want {
			t.Fatalf("Conflict(%d) = %v, want %v", status, got, want)
		}
	}
}
