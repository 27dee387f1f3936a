// ABOUTME: Version information for livetranslate
// ABOUTME: Version and Commit are overridden at build time with -ldflags -X
package version

import "fmt"

const (
	Product      = "livetranslate"
	Manufacturer = "Sendspin"
)

var (
	Version = "0.1.0"
	Commit  = "dev"
)

// String formats the product, version and commit for display
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Commit)
}
