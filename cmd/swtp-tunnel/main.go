// Command swtp-tunnel brings up one end of a point-to-point SWTP/SWTLLP
// tunnel between a TUN device and a UDP socket.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
