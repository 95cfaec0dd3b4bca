package app

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
)

// Version is set at build time with
// -ldflags "-X github.com/agbru/factorcalc/internal/app.Version=v1.2.3".
var Version = "dev"

// HasVersionFlag reports whether args ask for the version. It is checked
// before full parsing so that -version works even with otherwise invalid
// flags.
func HasVersionFlag(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-V", "--V", "-version", "--version":
			return true
		case "--":
			return false
		}
	}
	return false
}

// PrintVersion writes the version banner to out.
func PrintVersion(out io.Writer) {
	version := Version
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
	fmt.Fprintf(out, "factorcalc %s\n", version)
	fmt.Fprintf(out, "Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
