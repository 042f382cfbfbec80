package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/mailsort/internal/brand"
	"github.com/hpungsan/mailsort/internal/email"
	"github.com/hpungsan/mailsort/internal/errors"
	"github.com/hpungsan/mailsort/internal/logging"
	"github.com/hpungsan/mailsort/internal/web"
)

// maxStdinBytes caps piped email text.
const maxStdinBytes = email.MaxAttachmentBytes

// newCLIApp creates the CLI application with all commands.
// a may be nil when only --help or --version will run.
func newCLIApp(a *app) *cli.App {
	cliApp := &cli.App{
		Name:    "mailsort",
		Usage:   "Classify emails and draft replies with a remote classification service",
		Version: Version,
		Commands: []*cli.Command{
			classifyCmd(a),
			langCmd(a),
			brandCmd(a),
			serveCmd(a),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

// classifyCmd creates the classify command.
func classifyCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Classify an email (text from --text, --file or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Email body"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Path to an email file (.pdf, .txt, ...)"},
			&cli.BoolFlag{Name: "dropped", Usage: "Treat --file as a drag-and-drop upload (.pdf/.txt only)"},
			&cli.StringFlag{Name: "lang", Aliases: []string{"l"}, Usage: "Reply language for this session: pt|en"},
		},
		Action: func(c *cli.Context) error {
			text, path := c.String("text"), c.String("file")
			if text != "" && path != "" {
				return outputError(errors.NewInvalidRequest("provide --text or --file, not both"))
			}

			var req email.Request
			switch {
			case path != "":
				r, err := email.ReadFileRequest(path, c.Bool("dropped"))
				if err != nil {
					return outputError(err)
				}
				req = r
			case text != "":
				req = email.NewTextRequest(text, "")
			case stdinHasData():
				piped, err := readStdin(maxStdinBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				req = email.NewTextRequest(piped, "")
			default:
				return outputError(errors.NewValidation(email.ValidationMessage))
			}

			if l := c.String("lang"); l != "" {
				if _, err := a.machine.SetLanguage(c.Context, l); err != nil {
					return outputError(err)
				}
			}

			snap, err := a.machine.Submit(c.Context, req)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(snap)
		},
	}
}

// langOutput is printed by the lang subcommands.
type langOutput struct {
	ReplyLang string `json:"reply_lang,omitempty"`
	Set       bool   `json:"set"`
}

// langCmd creates the lang command group.
func langCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "lang",
		Usage: "Show or change the saved reply language",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the saved reply language",
				Action: func(c *cli.Context) error {
					l, ok := a.machine.PersistedLanguage(c.Context)
					return outputJSON(langOutput{ReplyLang: l, Set: ok})
				},
			},
			{
				Name:      "set",
				Usage:     "Save the reply language",
				ArgsUsage: "<pt|en>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("exactly one language is required: pt or en"))
					}
					snap, err := a.machine.SetLanguage(c.Context, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(langOutput{ReplyLang: snap.Override, Set: true})
				},
			},
			{
				Name:  "clear",
				Usage: "Forget the saved reply language",
				Action: func(c *cli.Context) error {
					a.machine.ForgetLanguage(c.Context)
					return outputJSON(langOutput{})
				},
			},
		},
	}
}

// brandOutput is printed by the brand subcommands.
// Saved logos are data URLs; only their header is shown.
type brandOutput struct {
	Name       string `json:"name"`
	Logo       string `json:"logo"`
	CustomLogo bool   `json:"custom_logo"`
	Title      string `json:"title"`
}

func newBrandOutput(s brand.State) brandOutput {
	out := brandOutput{Name: s.Name, Logo: s.Logo, Title: s.Title()}
	if strings.HasPrefix(s.Logo, "data:") {
		out.CustomLogo = true
		if i := strings.Index(s.Logo, ","); i > 0 {
			out.Logo = s.Logo[:i+1] + "..."
		}
	}
	return out
}

// brandCmd creates the brand command group.
func brandCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "brand",
		Usage: "Show or change the company name and logo",
		Before: func(c *cli.Context) error {
			if a != nil {
				a.brands.Load(c.Context)
			}
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the branding in effect",
				Action: func(c *cli.Context) error {
					return outputJSON(newBrandOutput(a.brands.Current()))
				},
			},
			{
				Name:      "rename",
				Usage:     "Save a company name",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					s, err := a.brands.Rename(c.Context, strings.Join(c.Args().Slice(), " "))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(newBrandOutput(s))
				},
			},
			{
				Name:      "logo",
				Usage:     "Save a logo image (.png, .jpg, .svg)",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "consent", Usage: "Confirm you are authorized to use this logo"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("a logo path is required"))
					}
					s, err := applyLogo(c.Context, a.brands, c.Args().First(), c.Bool("consent"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(newBrandOutput(s))
				},
			},
			{
				Name:  "reset-logo",
				Usage: "Forget the saved logo",
				Action: func(c *cli.Context) error {
					return outputJSON(newBrandOutput(a.brands.ResetLogo(c.Context)))
				},
			},
		},
	}
}

// applyLogo stages the file at path and applies it. Without consent the
// staged logo is dropped again so nothing lingers between invocations.
func applyLogo(ctx context.Context, brands *brand.Manager, path string, consent bool) (brand.State, error) {
	data, err := email.ReadLocalFile(path, brand.MaxLogoBytes)
	if err != nil {
		return brand.State{}, err
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		return brand.State{}, errors.NewInvalidRequest(fmt.Sprintf("unknown image type for %s", filepath.Base(path)))
	}
	if _, err := brands.StageLogo(contentType, data); err != nil {
		return brand.State{}, err
	}

	s, err := brands.ApplyLogo(ctx, consent)
	if err != nil {
		brands.CancelLogo()
		return brand.State{}, err
	}
	return s, nil
}

// serveCmd creates the serve command.
func serveCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Address to bind (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default from config)"},
		},
		Action: func(c *cli.Context) error {
			bind, port := a.cfg.WebBind, a.cfg.WebPort
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}

			log := logging.Component(a.log, "web")
			log.Info().Str("service_url", a.client.BaseURL()).Msg("using classification service")
			a.brands.Load(c.Context)
			srv, err := web.NewServer(a.machine, a.brands, log, Version, bind, port)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			if err := web.Run(srv, log); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if appErr, ok := err.(*errors.AppError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin, up to limit bytes.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}
