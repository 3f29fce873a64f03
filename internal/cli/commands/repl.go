package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapbind/internal/cli/output"
)

const (
	replPrompt     = "leapbind> "
	replContPrompt = "     ...> "
)

// replState is what dot-commands change between inputs.
type replState struct {
	from   []string
	expect string
	tree   bool
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Bind expressions interactively",
		Long: `Start an interactive session that binds each expression you enter.

Input ending in a backslash continues on the next line. Type .help for the
dot-commands that change scope, expected type and output.`,
		Example: `  leapbind repl --catalog shop.yaml --watch`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, watch)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the catalog file when it changes")
	return cmd
}

func runREPL(cmd *cobra.Command, watch bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	historyFile := ""
	if cmdCtx.Cfg.StatePath != ":memory:" {
		historyFile = filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "bind_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newRelationCompleter(cmdCtx.Session),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	if watch && cmdCtx.Cfg.CatalogFile != "" {
		go func() {
			_ = watchCatalog(ctx, cmdCtx.Session, cmdCtx.Cfg.CatalogFile, cmdCtx.Logger, func(err error) {
				if err != nil {
					cmdCtx.Renderer.Error("reload failed: " + err.Error())
					return
				}
				cmdCtx.Renderer.Muted("catalog reloaded")
				rl.Refresh()
			})
		}()
	}

	r := cmdCtx.Renderer
	r.Printf("leapbind REPL (catalog: %s)\n", cmdCtx.Session.Origin())
	r.Println("Type .help for commands, .quit to exit")
	r.Println()

	st := &replState{}
	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if cont, ok := strings.CutSuffix(line, "\\"); ok {
			buf.WriteString(cont)
			buf.WriteString("\n")
			rl.SetPrompt(replContPrompt)
			continue
		}
		buf.WriteString(line)
		input := strings.TrimSpace(buf.String())
		buf.Reset()
		rl.SetPrompt(replPrompt)

		if input == "" {
			continue
		}
		if strings.HasPrefix(input, ".") {
			quit, err := handleDotCommand(ctx, cmdCtx, st, input)
			if err != nil {
				r.Error(err.Error())
			}
			if quit {
				break
			}
			continue
		}

		evalREPLInput(cmdCtx, st, input)
		r.Println()
	}
	return nil
}

func evalREPLInput(cmdCtx *CommandContext, st *replState, input string) {
	r := cmdCtx.Renderer
	res, err := cmdCtx.Session.Bind(BindRequest{Input: input, From: st.from, Expect: st.expect})
	if err != nil {
		r.Error(describeError(input, err).Error())
		return
	}
	if err := renderBindResult(r, res, st.tree); err != nil {
		r.Error(err.Error())
	}
}

// handleDotCommand runs one dot-command and reports whether to quit.
func handleDotCommand(ctx context.Context, cmdCtx *CommandContext, st *replState, line string) (bool, error) {
	r := cmdCtx.Renderer
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case ".quit", ".exit":
		return true, nil

	case ".help":
		printREPLHelp(r)

	case ".from":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: .from alias=relation ...")
		}
		items, err := scopeItems(args)
		if err != nil {
			return false, err
		}
		for _, item := range items {
			if _, ok := cmdCtx.Session.Catalog().LookupRelation(item.Relation); !ok {
				return false, fmt.Errorf("relation %q not found", item.Relation)
			}
		}
		st.from = append(st.from, args...)
		r.Muted("scope: " + strings.Join(st.from, ", "))

	case ".clear":
		st.from = nil
		r.Muted("scope cleared")

	case ".scope":
		scope := append(append([]string{}, cmdCtx.Cfg.Bind.Scope...), st.from...)
		if len(scope) == 0 {
			r.Muted("scope is empty")
		} else {
			r.Println(strings.Join(scope, ", "))
		}

	case ".expect":
		switch {
		case len(args) == 0:
			if st.expect == "" {
				r.Muted("no expected type")
			} else {
				r.Println(st.expect)
			}
		case args[0] == "none":
			st.expect = ""
		default:
			st.expect = strings.Join(args, "")
		}

	case ".tree":
		st.tree = len(args) == 0 || args[0] != "off"

	case ".relations":
		var names []string
		for _, rel := range cmdCtx.Session.Base().Relations() {
			names = append(names, rel.Name)
		}
		r.Println(strings.Join(names, "  "))

	case ".describe":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: .describe <relation>")
		}
		return false, showRelation(cmdCtx, args[0])

	case ".reload":
		if err := cmdCtx.Session.Reload(ctx); err != nil {
			return false, err
		}
		r.Muted("catalog reloaded: " + cmdCtx.Session.Origin())

	default:
		return false, fmt.Errorf("unknown command %s (try .help)", command)
	}
	return false, nil
}

func printREPLHelp(r *output.Renderer) {
	r.Println(`Commands:
  .from alias=relation ...  add relations to the scope
  .clear                    remove relations added with .from
  .scope                    show the scope
  .expect <type>|none       coerce results to a type
  .tree [off]               show bound trees with per-node types
  .relations                list relations
  .describe <relation>      show a relation's columns
  .reload                   recompile the catalog
  .quit                     exit

End a line with \ to continue on the next one.`)
}

// newRelationCompleter completes dot-commands and, after .describe, the
// relation names of the current catalog.
func newRelationCompleter(sess *Session) *readline.PrefixCompleter {
	relations := func(string) []string {
		var names []string
		for _, rel := range sess.Base().Relations() {
			names = append(names, rel.Name)
		}
		sort.Strings(names)
		return names
	}

	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".from"),
		readline.PcItem(".clear"),
		readline.PcItem(".scope"),
		readline.PcItem(".expect", readline.PcItem("none")),
		readline.PcItem(".tree", readline.PcItem("off")),
		readline.PcItem(".relations"),
		readline.PcItem(".describe", readline.PcItemDynamic(relations)),
		readline.PcItem(".reload"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
