// Package version reports the build version.
package version

import (
	"fmt"
	"runtime"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "0.1.0"

// String is the one line version banner.
func String() string {
	return fmt.Sprintf("anistream v%s (%s, %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
