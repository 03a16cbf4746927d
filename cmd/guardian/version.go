package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/types"
	"github.com/spf13/cobra"
)

// GitCommit is set with -ldflags at build time.
var GitCommit string

const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)

func VersionWithCommit(gitCommit string) string {
	if len(gitCommit) >= 8 {
		return Version + "-" + gitCommit[:8]
	}
	return Version
}

// schemaVersions lists the newest layout of every upgradable component this
// binary can migrate to, e.g. "registry=v2 emergency=v1".
func schemaVersions() string {
	parts := make([]string, 0, len(state.UpgradableComponents))
	for _, c := range state.UpgradableComponents {
		parts = append(parts, fmt.Sprintf("%s=v%d", c, state.LatestVersion(c)))
	}
	return strings.Join(parts, " ")
}

func printVersion(w io.Writer, gitCommit string) {
	fmt.Fprintf(w, "%s %s\n", types.GuardianModuleName, VersionWithCommit(gitCommit))
	fmt.Fprintf(w, "schema: %s\n", schemaVersions())
	fmt.Fprintf(w, "payment domain: %s v%s\n", state.PaymentDomainName, state.PaymentDomainVersion)
}

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the binary version and the state schema versions it supports",
	Aliases: []string{"V"},
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(os.Stdout, GitCommit)
	},
}
