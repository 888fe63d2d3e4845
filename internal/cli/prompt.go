package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// promptYesNo asks a yes/no question. An empty answer or end of input
// selects the default.
func promptYesNo(reader *bufio.Reader, out io.Writer, label string, defaultYes bool) (bool, error) {
	suffix := "y/N"
	if defaultYes {
		suffix = "Y/n"
	}
	for {
		fmt.Fprintf(out, "%s [%s]: ", label, suffix)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch answer := strings.ToLower(strings.TrimSpace(line)); answer {
		case "":
			return defaultYes, nil
		case "y", "yes", "д", "да":
			return true, nil
		case "n", "no", "н", "нет":
			return false, nil
		default:
			if err == io.EOF {
				return false, fmt.Errorf("invalid response %q", answer)
			}
			fmt.Fprintln(out, "Please answer yes or no.")
		}
	}
}
