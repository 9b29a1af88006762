package kvfs

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// parseConf reads a ceph.conf style file and returns the normalized options
// that apply to client id: those in [global], [client] and [client.<id>],
// later sections overriding earlier ones.
func parseConf(r io.Reader, id string) (map[string]string, error) {
	opts := make(map[string]string)
	applies := true

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("line %d: unterminated section header", lineNo)
			}
			section := strings.TrimSpace(line[1 : len(line)-1])
			applies = section == "global" || section == "client" || section == "client."+id
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key = value", lineNo)
		}
		if applies {
			opts[normalizeOption(key)] = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return opts, nil
}
