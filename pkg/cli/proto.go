package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mesh-intelligence/settings-sdk/pkg/protocol"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

// payloadFlags selects where an operation's payload comes from. Without
// either flag the payload is read from stdin.
type payloadFlags struct {
	value string
	file  string
}

func addPayloadFlags(fs *pflag.FlagSet, p *payloadFlags) {
	fs.StringVar(&p.value, "value", "", "payload as JSON (default: read stdin)")
	fs.StringVar(&p.file, "input-file", "", "read the payload from a file")
}

// read returns the payload. Input that cannot be read is a sysError; input
// that is not JSON is a protocol error.
func (p payloadFlags) read(cmd *cobra.Command) (*value.Value, error) {
	var (
		data   []byte
		source string
		err    error
	)
	switch {
	case p.value != "" && p.file != "":
		return nil, &types.ProtocolError{Reason: "--value and --input-file are mutually exclusive"}
	case p.value != "":
		data, source = []byte(p.value), "--value"
	case p.file != "":
		data, err = os.ReadFile(p.file)
		if err != nil {
			return nil, sysErr("read payload: %w", err)
		}
		source = p.file
	default:
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, sysErr("read payload: %w", err)
		}
		source = "stdin"
	}
	v, err := value.Parse(data)
	if err != nil {
		return nil, &types.ProtocolError{Reason: fmt.Sprintf("payload from %s: %v", source, err)}
	}
	return &v, nil
}

// parseOptional parses a JSON flag value; an empty flag yields nil.
func parseOptional(flag, s string) (*value.Value, error) {
	if s == "" {
		return nil, nil
	}
	v, err := value.Parse([]byte(s))
	if err != nil {
		return nil, &types.ProtocolError{Reason: fmt.Sprintf("--%s: %v", flag, err)}
	}
	return &v, nil
}

// respond dispatches req and writes the response, or writes an error
// response for err when the request could not be built.
func (a *app) respond(cmd *cobra.Command, req protocol.Request, err error) error {
	var resp protocol.Response
	switch {
	case err == nil:
		resp = a.dispatcher().Dispatch(req)
	case isSysError(err):
		return err
	default:
		resp = protocol.Failure(err)
	}

	out, err := a.codec.EncodeResponse(resp)
	if err != nil {
		return sysErr("encode response: %w", err)
	}
	if err := a.codec.WriteFrame(cmd.OutOrStdout(), out); err != nil {
		return sysErr("write response: %w", err)
	}
	if resp.Status == protocol.StatusError {
		return errErrorStatus
	}
	return nil
}

// requireFlags reports unset required flags as a protocol error so that the
// caller still gets a response on stdout.
func requireFlags(cmd *cobra.Command, names ...string) error {
	var missing []string
	for _, name := range names {
		if !cmd.Flags().Changed(name) {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		return &types.ProtocolError{Reason: "missing required flag " + strings.Join(missing, ", ")}
	}
	return nil
}

func isSysError(err error) bool {
	var se *sysError
	return errors.As(err, &se)
}

func request(op protocol.Operation) protocol.Request {
	return protocol.Request{ProtocolVersion: protocol.Proto1, Operation: op}
}

func (a *app) newProtoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   protocol.Proto1,
		Short: fmt.Sprintf("Run one %s operation", protocol.Proto1),
	}
	cmd.AddCommand(
		a.newGenerateCmd(),
		a.newValidateCmd(),
		a.newSetCmd(),
		a.newGetCmd(),
		a.newMigrateCmd(),
		a.newFloodMigrateCmd(),
		a.newHelperCmd(),
		a.newListVersionsCmd(),
	)
	return cmd
}

func (a *app) newGenerateCmd() *cobra.Command {
	var version, existing, related string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate settings for a version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request(protocol.OpGenerate)
			if err := requireFlags(cmd, "setting-version"); err != nil {
				return a.respond(cmd, req, err)
			}
			req.VersionContext.Version = types.Version(version)
			var err error
			if req.Payload, err = parseOptional("existing-partial", existing); err == nil {
				req.RequiredSettings, err = parseOptional("required-settings", related)
			}
			return a.respond(cmd, req, err)
		},
	}
	cmd.Flags().StringVar(&version, "setting-version", "", "settings version (required)")
	cmd.Flags().StringVar(&existing, "existing-partial", "", "values already known, as JSON")
	cmd.Flags().StringVar(&related, "required-settings", "", "related settings, as JSON")
	return cmd
}

func (a *app) newValidateCmd() *cobra.Command {
	var (
		version, related string
		payload          payloadFlags
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate settings against a version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request(protocol.OpValidate)
			if err := requireFlags(cmd, "setting-version"); err != nil {
				return a.respond(cmd, req, err)
			}
			req.VersionContext.Version = types.Version(version)
			var err error
			if req.RequiredSettings, err = parseOptional("required-settings", related); err == nil {
				req.Payload, err = payload.read(cmd)
			}
			return a.respond(cmd, req, err)
		},
	}
	cmd.Flags().StringVar(&version, "setting-version", "", "settings version (required)")
	cmd.Flags().StringVar(&related, "required-settings", "", "related settings, as JSON")
	addPayloadFlags(cmd.Flags(), &payload)
	return cmd
}

func (a *app) newSetCmd() *cobra.Command {
	var (
		version, current string
		payload          payloadFlags
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Merge a fragment into the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request(protocol.OpSet)
			if err := requireFlags(cmd, "setting-version"); err != nil {
				return a.respond(cmd, req, err)
			}
			req.VersionContext.Version = types.Version(version)
			var err error
			if req.Current, err = parseOptional("current-value", current); err == nil {
				req.Payload, err = payload.read(cmd)
			}
			return a.respond(cmd, req, err)
		},
	}
	cmd.Flags().StringVar(&version, "setting-version", "", "settings version (required)")
	cmd.Flags().StringVar(&current, "current-value", "", "stored settings the fragment is merged into, as JSON")
	addPayloadFlags(cmd.Flags(), &payload)
	return cmd
}

func (a *app) newGetCmd() *cobra.Command {
	var (
		version string
		payload payloadFlags
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Return settings in canonical form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request(protocol.OpGet)
			if err := requireFlags(cmd, "setting-version"); err != nil {
				return a.respond(cmd, req, err)
			}
			req.VersionContext.Version = types.Version(version)
			var err error
			req.Payload, err = payload.read(cmd)
			return a.respond(cmd, req, err)
		},
	}
	cmd.Flags().StringVar(&version, "setting-version", "", "settings version (required)")
	addPayloadFlags(cmd.Flags(), &payload)
	return cmd
}

func (a *app) newMigrateCmd() *cobra.Command {
	var (
		from, to string
		payload  payloadFlags
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate settings between versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request(protocol.OpMigrate)
			if err := requireFlags(cmd, "from-version", "target-version"); err != nil {
				return a.respond(cmd, req, err)
			}
			req.VersionContext.From = types.Version(from)
			req.VersionContext.To = types.Version(to)
			var err error
			req.Payload, err = payload.read(cmd)
			return a.respond(cmd, req, err)
		},
	}
	cmd.Flags().StringVar(&from, "from-version", "", "version of the payload (required)")
	cmd.Flags().StringVar(&to, "target-version", "", "version to migrate to (required)")
	addPayloadFlags(cmd.Flags(), &payload)
	return cmd
}

func (a *app) newFloodMigrateCmd() *cobra.Command {
	var (
		from    string
		payload payloadFlags
	)
	cmd := &cobra.Command{
		Use:   "flood-migrate",
		Short: "Migrate settings to every registered version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request(protocol.OpFloodMigrate)
			if err := requireFlags(cmd, "from-version"); err != nil {
				return a.respond(cmd, req, err)
			}
			req.VersionContext.From = types.Version(from)
			var err error
			req.Payload, err = payload.read(cmd)
			return a.respond(cmd, req, err)
		},
	}
	cmd.Flags().StringVar(&from, "from-version", "", "version of the payload (required)")
	addPayloadFlags(cmd.Flags(), &payload)
	return cmd
}

func (a *app) newHelperCmd() *cobra.Command {
	var (
		version, name string
		rawArgs       []string
	)
	cmd := &cobra.Command{
		Use:   "helper",
		Short: "Call a helper function of a version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request(protocol.OpHelper)
			if err := requireFlags(cmd, "setting-version", "helper-name"); err != nil {
				return a.respond(cmd, req, err)
			}
			req.VersionContext.Version = types.Version(version)
			req.Helper = name
			for i, raw := range rawArgs {
				v, err := parseOptional(fmt.Sprintf("arg[%d]", i), raw)
				if err != nil {
					return a.respond(cmd, req, err)
				}
				if v == nil {
					req.Args = append(req.Args, value.Null())
					continue
				}
				req.Args = append(req.Args, *v)
			}
			return a.respond(cmd, req, nil)
		},
	}
	cmd.Flags().StringVar(&version, "setting-version", "", "settings version (required)")
	cmd.Flags().StringVar(&name, "helper-name", "", "helper to call (required)")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "helper argument as JSON (repeatable)")
	return cmd
}

func (a *app) newListVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-versions",
		Short: "List the registered versions and supported protocols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.respond(cmd, request(protocol.OpListVersions), nil)
		},
	}
}
