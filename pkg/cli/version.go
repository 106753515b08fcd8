package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/settings-sdk/pkg/protocol"
)

// Version is the SDK release, overridable at link time.
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/settings-sdk"

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the SDK version and supported protocols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			versions := make([]string, 0, len(a.ext.Versions()))
			for _, info := range a.ext.Versions() {
				versions = append(versions, string(info.Version))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nsdk: v%s (%s)\nprotocols: %s\nsettings versions: %s\n",
				a.ext.Name(), Version, modulePath,
				strings.Join(protocol.SupportedVersions, ", "),
				strings.Join(versions, ", "))
			return nil
		},
	}
}
