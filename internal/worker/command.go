package worker

import (
	"fmt"
)

// ChannelAddrs are the supervisor channel endpoints handed to the engine
// so its tapped run can report back directly
type ChannelAddrs struct {
	Stream  string `json:"stream"`
	Status  string `json:"status"`
	Control string `json:"control"`
}

// BuildEngineCommand constructs the argv for one supervised engine run:
//
//	<engine> run <script> <raw-args...> -m tapping slave <identity> <stream> <status> <control>
//
// The raw argument string is split shell-style but otherwise passed
// through uninterpreted.
func BuildEngineCommand(engine, scriptPath, rawArgs, cellID string, addrs ChannelAddrs) ([]string, error) {
	args, err := SplitArgs(rawArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid argument string: %w", err)
	}
	argv := []string{engine, "run", scriptPath}
	argv = append(argv, args...)
	argv = append(argv, "-m", "tapping", "slave", cellID,
		addrs.Stream, addrs.Status, addrs.Control)
	return argv, nil
}

// SplitArgs splits a raw argument string the way a POSIX shell would,
// honoring single quotes, double quotes and backslash escapes
func SplitArgs(raw string) ([]string, error) {
	var args []string
	var cur []rune
	var quote rune
	inWord := false
	escaped := false

	for _, r := range raw {
		switch {
		case escaped:
			cur = append(cur, r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur = append(cur, r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n':
			if inWord {
				args = append(args, string(cur))
				cur = cur[:0]
				inWord = false
			}
		default:
			cur = append(cur, r)
			inWord = true
		}
	}

	if escaped {
		return nil, fmt.Errorf("trailing backslash")
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inWord {
		args = append(args, string(cur))
	}
	return args, nil
}
