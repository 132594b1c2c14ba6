package cmd

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags -X
var (
	Version   string
	BuildDate string
	GitCommit string
	GitState  string
)

// VersionInfo describes the build of casctl
type VersionInfo struct {
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	BuildDate string `json:"buildDate,omitempty" yaml:"buildDate,omitempty"`
	GitCommit string `json:"gitCommit,omitempty" yaml:"gitCommit,omitempty"`
	GitState  string `json:"gitState,omitempty" yaml:"gitState,omitempty"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
}

func NewVersionInfo() VersionInfo {
	ver := VersionInfo{
		Version:   "dev",
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}
	if Version != "" {
		ver.Version = Version
		ver.GitState = "clean"
	}
	if GitState != "" {
		ver.GitState = GitState
	}
	return ver
}

func (v VersionInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Version: %s\n", v.Version)
	fmt.Fprintf(&b, "Build date: %s\n", v.BuildDate)
	fmt.Fprintf(&b, "Commit: %s\n", v.GitCommit)
	fmt.Fprintf(&b, "Working tree: %s\n", v.GitState)
	fmt.Fprintf(&b, "Go: %s\n", v.GoVersion)
	return b.String()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "prints the version of casctl",
	Long: `Prints the version of casctl. It includes the following components:
	* Semver (output of git describe --tags)
	* Build Date (date at which the binary was built)
	* Git Commit (the git commit hash this binary was built from
	* Git State (when dirty there were uncommitted changes during the build)
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := printResult(cmd, NewVersionInfo()); err != nil {
			wrapFatalln("failed to print version", err)
			return
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	addFormatFlag(versionCmd, "text", map[string]Formatter{
		"text": FormatterFunc(func(w io.Writer, data interface{}) error {
			_, err := io.WriteString(w, data.(VersionInfo).String())
			return err
		}),
	})
}
