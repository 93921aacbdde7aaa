package logging

import "testing"

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{input: "debug", want: DEBUG},
		{input: "info", want: INFO},
		{input: "warn", want: WARNING},
		{input: "warning", want: WARNING},
		{input: "error", want: ERROR},
		{input: "ERROR", want: ERROR},
		{input: "verbose", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseLevel(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestGetLoggerReturnsSameInstance(t *testing.T) {
	a := GetLogger("logger-test")
	b := GetLogger("logger-test")
	if a != b {
		t.Errorf("expected the same logger instance for the same name")
	}
}
