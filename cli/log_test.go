package cli

import "testing"

func TestLogConfig_Scan(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantLevel  logLevel
		wantFormat logFormat
		wantPretty bool
		wantCaller bool
	}{
		{
			name:       "assigned",
			args:       []string{"gen", "--log-level=debug", "--log-format=json"},
			wantLevel:  "debug",
			wantFormat: "json",
			wantPretty: true,
		},
		{
			name:       "separate_value",
			args:       []string{"--log-level", "warn", "build.yaml"},
			wantLevel:  "warn",
			wantPretty: true,
		},
		{
			name:       "booleans",
			args:       []string{"--no-log-pretty", "--log-caller"},
			wantCaller: true,
		},
		{
			name:       "explicit_boolean_values",
			args:       []string{"--log-pretty=false", "--no-log-caller=false"},
			wantCaller: true,
		},
		{
			name:       "stops_at_terminator",
			args:       []string{"--", "--log-level=error"},
			wantPretty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := logConfig{Pretty: true}
			f.scan(tt.args)

			if f.Level != tt.wantLevel || f.Format != tt.wantFormat {
				t.Errorf("level, format = %q, %q; want %q, %q",
					f.Level, f.Format, tt.wantLevel, tt.wantFormat)
			}

			if f.Pretty != tt.wantPretty || f.Caller != tt.wantCaller {
				t.Errorf("pretty, caller = %v, %v; want %v, %v",
					f.Pretty, f.Caller, tt.wantPretty, tt.wantCaller)
			}
		})
	}
}
