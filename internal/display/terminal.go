package display

import (
	"bufio"
	"io"
	"strings"
)

// ReadCommands turns terminal lines into signals on ch until r is exhausted:
// an empty line or "s" toggles recording, "q" quits.
func ReadCommands(r io.Reader, ch *Channel) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "", "s", "space":
			ch.Toggle()
		case "q", "quit":
			ch.Quit()
			return nil
		}
	}
	return scanner.Err()
}
