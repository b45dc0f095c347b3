package worker

import (
	"reflect"
	"testing"
)

func TestBuildEngineCommand(t *testing.T) {
	addrs := ChannelAddrs{
		Stream:  "127.0.0.1:4001",
		Status:  "127.0.0.1:4002",
		Control: "127.0.0.1:4003",
	}

	argv, err := BuildEngineCommand("workflow", "/work/.flowtap/cell-X.wf", "-v2 --queue local", "X", addrs)
	if err != nil {
		t.Fatalf("BuildEngineCommand failed: %v", err)
	}

	want := []string{
		"workflow", "run", "/work/.flowtap/cell-X.wf",
		"-v2", "--queue", "local",
		"-m", "tapping", "slave", "X",
		"127.0.0.1:4001", "127.0.0.1:4002", "127.0.0.1:4003",
	}
	if !reflect.DeepEqual(argv, want) {
		t.Errorf("argv = %v, expected %v", argv, want)
	}
}

func TestBuildEngineCommandNoArgs(t *testing.T) {
	argv, err := BuildEngineCommand("workflow", "s.wf", "", "X", ChannelAddrs{})
	if err != nil {
		t.Fatalf("BuildEngineCommand failed: %v", err)
	}
	// marker comes straight after the script when no raw args
	if argv[3] != "-m" || argv[4] != "tapping" || argv[5] != "slave" {
		t.Errorf("argv = %v, expected tapping marker after script", argv)
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"spaces only", "   ", nil, false},
		{"plain words", "-v2 --dryrun", []string{"-v2", "--dryrun"}, false},
		{"double quotes", `--name "hello world"`, []string{"--name", "hello world"}, false},
		{"single quotes", `--name 'hello world'`, []string{"--name", "hello world"}, false},
		{"escaped space", `a\ b c`, []string{"a b", "c"}, false},
		{"quote inside word", `a"b c"d`, []string{"ab cd"}, false},
		{"backslash in single quotes", `'a\b'`, []string{`a\b`}, false},
		{"tabs and newlines", "a\tb\nc", []string{"a", "b", "c"}, false},
		{"unterminated quote", `"open`, nil, true},
		{"trailing backslash", `a\`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitArgs(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitArgs(%q) succeeded, expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitArgs(%q) failed: %v", tt.raw, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitArgs(%q) = %v, expected %v", tt.raw, got, tt.want)
			}
		})
	}
}
